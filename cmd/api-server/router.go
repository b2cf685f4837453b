package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"epubhub/internal/auth"
	"epubhub/internal/books"
	"epubhub/internal/catalog"
	"epubhub/internal/library"
	"epubhub/internal/progress"
	synchub "epubhub/internal/sync"
)

type routerDeps struct {
	DB             *sql.DB
	Catalog        *catalog.Service
	Tokens         auth.TokenService
	Hub            *synchub.Hub
	AllowedOrigins []string
}

func buildRouter(d routerDeps) *gin.Engine {
	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Server is running!"})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "epub_dir": d.Catalog.Dir()})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := d.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	api := router.Group("/api")

	// Auth
	authRepo := auth.NewRepo(d.DB)
	authHandler := auth.NewHandler(authRepo, d.Tokens)
	authHandler.RegisterRoutes(api.Group("/auth"))

	// Protected routes
	protected := api.Group("")
	protected.Use(auth.AuthMiddleware(authHandler.Verifier))

	protected.GET("/ws", synchub.WSHandler(d.Hub, nil))

	books.NewHandler(d.Catalog).RegisterRoutes(protected)

	library.NewHandler(library.NewRepo(d.DB, library.Favorites), library.Favorites, d.Hub).RegisterRoutes(protected)
	library.NewHandler(library.NewRepo(d.DB, library.Downloads), library.Downloads, d.Hub).RegisterRoutes(protected)
	progress.NewHandler(progress.NewRepo(d.DB), d.Hub).RegisterRoutes(protected)

	return router
}

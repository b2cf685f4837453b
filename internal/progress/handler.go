package progress

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"epubhub/internal/auth"
	"epubhub/internal/sync"
)

type Handler struct {
	Repo *Repo
	Hub  sync.Publisher
}

func NewHandler(repo *Repo, hub sync.Publisher) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

// RegisterRoutes mounts the progress routes. GET /books/:book/progress
// reaches books whose names collide with a static route, such as "epubs".
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/progress", h.set)
	rg.GET("/:book/progress", h.get)
	rg.GET("/books/:book/progress", h.get)
	rg.GET("/progress/all", h.list)
}

type setReq struct {
	Book     string   `json:"book"`
	Progress *float64 `json:"progress"`
}

func (h *Handler) set(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req setReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	book := strings.TrimSpace(req.Book)
	if book == "" || req.Progress == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book and progress required"})
		return
	}
	p := *req.Progress
	if p < 0 || p > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Progress must be between 0 and 1."})
		return
	}

	if err := h.Repo.Upsert(c.Request.Context(), claims.UserID, book, p); err != nil {
		log.Printf("[progress] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update progress."})
		return
	}

	if h.Hub != nil {
		ev := sync.NewEvent(sync.EventProgressUpdated, claims.UserID, book)
		ev.Progress = &p
		go h.Hub.Publish(ev)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Progress updated successfully."})
}

func (h *Handler) get(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	e, err := h.Repo.Get(c.Request.Context(), claims.UserID, c.Param("book"))
	if err != nil {
		log.Printf("[progress] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve progress."})
		return
	}
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Progress not found for the specified book."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": e.Progress})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	books, err := h.Repo.List(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Printf("[progress] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve progress for all books."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"epubhub/internal/auth"
	"epubhub/internal/catalog"
	"epubhub/internal/grpcserver"
	synchub "epubhub/internal/sync"
	"epubhub/pkg/database"
	"epubhub/pkg/utils"
)

func main() {
	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	verifier := auth.Verifier{Tokens: tokenSvc, Repo: authRepo}

	adminCfg := utils.LoadAdminConfig()
	if err := auth.SeedAdmin(context.Background(), authRepo, adminCfg.Email, adminCfg.Password); err != nil {
		log.Printf("seed admin failed: %v", err)
	}

	catCfg := utils.LoadCatalogConfig()
	catalogSvc := catalog.NewService(catalog.Config{
		Dir:            catCfg.EpubDir,
		DownloadPrefix: "/api",
		DefaultLimit:   catCfg.DefaultLimit,
		DefaultSort:    catalog.SortField(catCfg.DefaultSort),
		Scope:          catalog.SortScope(catCfg.SortScope),
		Workers:        catCfg.ParseWorkers,
		CoverMaxWidth:  catCfg.CoverMaxWidth,
	})

	srvCfg := utils.LoadServerConfig()
	hub := synchub.NewHub(nil)
	tcpSrv := synchub.NewServer(srvCfg.SyncAddr, hub, verifier, nil)

	router := buildRouter(routerDeps{
		DB:             db,
		Catalog:        catalogSvc,
		Tokens:         tokenSvc,
		Hub:            hub,
		AllowedOrigins: srvCfg.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	grpcSrv := grpcserver.New(grpcserver.NewServer(catalogSvc), verifier, nil)

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		lis, err := net.Listen("tcp", srvCfg.GrpcAddr)
		if err != nil {
			errCh <- err
			return
		}
		log.Printf("gRPC server listening on %s", srvCfg.GrpcAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s (epubs in %s)", srvCfg.HTTPAddr, catCfg.EpubDir)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}
	grpcSrv.GracefulStop()
	hub.Close()

	wg.Wait()
	log.Println("servers stopped")
}

package main

import (
	"log"
	"net"

	"epubhub/internal/auth"
	"epubhub/internal/catalog"
	"epubhub/internal/grpcserver"
	"epubhub/pkg/database"
	"epubhub/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	authCfg := utils.LoadAuthConfig()
	verifier := auth.Verifier{
		Tokens: auth.TokenService{
			Secret:   []byte(authCfg.JWTSecret),
			Issuer:   authCfg.JWTIssuer,
			Duration: authCfg.JWTDuration,
		},
		Repo: auth.NewRepo(db),
	}

	catCfg := utils.LoadCatalogConfig()
	svc := catalog.NewService(catalog.Config{
		Dir:            catCfg.EpubDir,
		DownloadPrefix: "/api",
		DefaultLimit:   catCfg.DefaultLimit,
		DefaultSort:    catalog.SortField(catCfg.DefaultSort),
		Scope:          catalog.SortScope(catCfg.SortScope),
		Workers:        catCfg.ParseWorkers,
		CoverMaxWidth:  catCfg.CoverMaxWidth,
	})

	srvCfg := utils.LoadServerConfig()
	listener, err := net.Listen("tcp", srvCfg.GrpcAddr)
	if err != nil {
		log.Fatalf("grpc listen failed: %v", err)
	}

	grpcServer := grpcserver.New(grpcserver.NewServer(svc), verifier, nil)

	log.Printf("gRPC server listening on %s", srvCfg.GrpcAddr)
	if err := grpcServer.Serve(listener); err != nil {
		log.Fatalf("grpc server stopped: %v", err)
	}
}

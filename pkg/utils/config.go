package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type CatalogConfig struct {
	EpubDir       string
	DefaultLimit  int
	DefaultSort   string
	SortScope     string
	ParseWorkers  int
	CoverMaxWidth int
}

func LoadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		EpubDir:       envString("EPUBHUB_EPUB_DIR", "./epubs"),
		DefaultLimit:  envInt("EPUBHUB_DEFAULT_LIMIT", 10),
		DefaultSort:   envString("EPUBHUB_DEFAULT_SORT", "fileName"),
		SortScope:     envString("EPUBHUB_SORT_SCOPE", "page"),
		ParseWorkers:  envInt("EPUBHUB_PARSE_WORKERS", 4),
		CoverMaxWidth: envInt("EPUBHUB_COVER_MAX_WIDTH", 0),
	}
}

type ServerConfig struct {
	HTTPAddr       string
	SyncAddr       string
	GrpcAddr       string
	AllowedOrigins []string
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:       envString("EPUBHUB_HTTP_ADDR", ":3000"),
		SyncAddr:       envString("EPUBHUB_SYNC_ADDR", ":7070"),
		GrpcAddr:       envString("EPUBHUB_GRPC_ADDR", ":9090"),
		AllowedOrigins: splitList(envString("EPUBHUB_ALLOWED_ORIGINS", "http://localhost:3000")),
	}
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	// dev default (change for demo / production)
	secret := envString("EPUBHUB_JWT_SECRET", "dev-secret-change-me")

	hours := envInt("EPUBHUB_JWT_TTL_HOURS", 24)
	if hours <= 0 {
		hours = 24
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   envString("EPUBHUB_JWT_ISSUER", "epubhub"),
		JWTDuration: time.Duration(hours) * time.Hour,
	}
}

// AdminConfig holds the account seeded on startup.
type AdminConfig struct {
	Email    string
	Password string
}

func LoadAdminConfig() AdminConfig {
	return AdminConfig{
		Email:    envString("EPUBHUB_ADMIN_EMAIL", "admin@example.com"),
		Password: envString("EPUBHUB_ADMIN_PASSWORD", "Password123#"),
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt falls back to def when the variable is unset or not an integer.
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

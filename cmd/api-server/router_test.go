package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"epubhub/internal/apitest"
	"epubhub/internal/auth"
	"epubhub/internal/catalog"
	"epubhub/internal/dbtest"
	"epubhub/internal/epubtest"
	synchub "epubhub/internal/sync"
	"epubhub/pkg/models"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	epubtest.Write(t, dir, "dune.epub", epubtest.Book{Title: "Dune", Creator: "Frank Herbert"})

	return buildRouter(routerDeps{
		DB:             dbtest.Open(t),
		Catalog:        catalog.NewService(catalog.Config{Dir: dir, DownloadPrefix: "/api", Logger: log.New(io.Discard, "", 0)}),
		Tokens:         auth.TokenService{Secret: []byte("router-secret"), Issuer: "epubhub", Duration: time.Hour},
		Hub:            synchub.NewHub(log.New(io.Discard, "", 0)),
		AllowedOrigins: []string{"http://localhost:3000"},
	})
}

func authed(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	return send(t, h, http.MethodGet, path, token, nil)
}

func send(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// signup registers a reader and returns a login token.
func signup(t *testing.T, h http.Handler) string {
	t.Helper()
	creds := map[string]string{"email": "reader@example.com", "password": "Password123!"}

	if w := apitest.Do(t, h, http.MethodPost, "/api/auth/signup", creds); w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d (%s)", w.Code, w.Body)
	}
	w := apitest.Do(t, h, http.MethodPost, "/api/auth/login", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d (%s)", w.Code, w.Body)
	}
	var login struct {
		Token string `json:"token"`
	}
	apitest.Decode(t, w, &login)
	return login.Token
}

func TestRouter_SignupLoginAndBrowse(t *testing.T) {
	r := newTestRouter(t)
	token := signup(t, r)

	w := authed(t, r, "/api/epubs", token)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d (%s)", w.Code, w.Body)
	}
	var page models.PaginatedBooks
	apitest.Decode(t, w, &page)
	if page.TotalItems != 1 || page.Books[0].Title != "Dune" {
		t.Errorf("page = %+v", page)
	}
	if page.Books[0].DownloadURL != "/api/epubs/dune/download" {
		t.Errorf("downloadUrl = %q", page.Books[0].DownloadURL)
	}

	if w := authed(t, r, "/api/favorite/all", token); w.Code != http.StatusOK {
		t.Errorf("favorites status = %d (%s)", w.Code, w.Body)
	}
	if w := authed(t, r, "/api/progress/all", token); w.Code != http.StatusOK {
		t.Errorf("progress status = %d (%s)", w.Code, w.Body)
	}
}

func TestRouter_BooksPrefixReachesCollidingNames(t *testing.T) {
	r := newTestRouter(t)
	token := signup(t, r)

	body := map[string]any{"book": "epubs", "progress": 0.5}
	if w := send(t, r, http.MethodPost, "/api/progress", token, body); w.Code != http.StatusOK {
		t.Fatalf("set progress status = %d (%s)", w.Code, w.Body)
	}

	// "/epubs/progress" belongs to the catalog routes.
	w := authed(t, r, "/api/epubs/progress", token)
	var miss map[string]string
	apitest.Decode(t, w, &miss)
	if w.Code != http.StatusNotFound || miss["error"] != "Book not found" {
		t.Errorf("GET /api/epubs/progress = %d %s", w.Code, w.Body)
	}

	w = authed(t, r, "/api/books/epubs/progress", token)
	var got struct {
		Progress float64 `json:"progress"`
	}
	apitest.Decode(t, w, &got)
	if w.Code != http.StatusOK || got.Progress != 0.5 {
		t.Errorf("GET /api/books/epubs/progress = %d %s", w.Code, w.Body)
	}

	if w := send(t, r, http.MethodPost, "/api/favorite", token, map[string]string{"book": "epubs"}); w.Code >= 300 {
		t.Fatalf("add favorite status = %d (%s)", w.Code, w.Body)
	}
	w = authed(t, r, "/api/books/epubs/favorite", token)
	var fav map[string]bool
	apitest.Decode(t, w, &fav)
	if w.Code != http.StatusOK || !fav["favorite"] {
		t.Errorf("GET /api/books/epubs/favorite = %d %s", w.Code, w.Body)
	}

	// The unprefixed form still serves ordinary names.
	if w := authed(t, r, "/api/dune/favorite", token); w.Code != http.StatusOK {
		t.Errorf("GET /api/dune/favorite = %d %s", w.Code, w.Body)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/epubs", "/api/epubs/dune", "/api/favorite/all", "/api/downloaded/all", "/api/progress/all", "/api/ws"} {
		if w := authed(t, r, path, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, w.Code)
		}
	}
}

func TestRouter_HealthAndReady(t *testing.T) {
	r := newTestRouter(t)

	if w := authed(t, r, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
	w := authed(t, r, "/ready", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ready status = %d (%s)", w.Code, w.Body)
	}
	var body map[string]any
	apitest.Decode(t, w, &body)
	if body["status"] != "ready" || body["tcp_clients"] != float64(0) {
		t.Errorf("ready body = %v", body)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/epubs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
}

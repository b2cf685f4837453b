// Package apitest has helpers for handler tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"epubhub/internal/auth"
	"epubhub/internal/sync"
)

// Router returns a gin engine in test mode whose /api group is
// authenticated as userID without a token.
func Router(userID string) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: userID, Role: auth.RoleUser})
	})
	return r, api
}

// Do sends body as JSON and records the response.
func Do(t testing.TB, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the recorded body into v.
func Decode(t testing.TB, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
}

// Events collects published events.
type Events chan sync.UserEvent

func NewEvents() Events { return make(Events, 16) }

func (e Events) Publish(ev sync.UserEvent) { e <- ev }

// Next waits for the next event.
func (e Events) Next(t testing.TB) sync.UserEvent {
	t.Helper()
	select {
	case ev := <-e:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return sync.UserEvent{}
	}
}

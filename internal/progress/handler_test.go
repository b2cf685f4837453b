package progress

import (
	"net/http"
	"testing"

	"epubhub/internal/apitest"
	"epubhub/internal/dbtest"
	"epubhub/internal/sync"
)

func ptr(f float64) *float64 { return &f }

func TestProgressFlow(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.InsertUser(t, db, "u1", "u1@example.com")
	events := apitest.NewEvents()

	r, api := apitest.Router("u1")
	NewHandler(NewRepo(db), events).RegisterRoutes(api)

	if w := apitest.Do(t, r, http.MethodGet, "/api/Dune/progress", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing progress status = %d, want 404", w.Code)
	}

	for _, p := range []float64{0.25, 0.75} {
		if w := apitest.Do(t, r, http.MethodPost, "/api/progress", setReq{Book: "Dune", Progress: ptr(p)}); w.Code != http.StatusOK {
			t.Fatalf("set %v status = %d (%s)", p, w.Code, w.Body)
		}
		ev := events.Next(t)
		if ev.Type != sync.EventProgressUpdated || ev.Progress == nil || *ev.Progress != p {
			t.Errorf("event = %+v", ev)
		}
	}

	var got struct {
		Progress float64 `json:"progress"`
	}
	w := apitest.Do(t, r, http.MethodGet, "/api/Dune/progress", nil)
	apitest.Decode(t, w, &got)
	if w.Code != http.StatusOK || got.Progress != 0.75 {
		t.Errorf("get = %d %s", w.Code, w.Body)
	}

	apitest.Do(t, r, http.MethodPost, "/api/progress", setReq{Book: "Neuromancer", Progress: ptr(0)})
	events.Next(t)

	var all struct {
		Books []struct {
			Book     string  `json:"book"`
			Progress float64 `json:"progress"`
		} `json:"books"`
	}
	apitest.Decode(t, apitest.Do(t, r, http.MethodGet, "/api/progress/all", nil), &all)
	if len(all.Books) != 2 {
		t.Fatalf("all = %+v", all)
	}
	byBook := map[string]float64{}
	for _, b := range all.Books {
		byBook[b.Book] = b.Progress
	}
	if byBook["Dune"] != 0.75 || byBook["Neuromancer"] != 0 {
		t.Errorf("all = %v", byBook)
	}
}

func TestSetProgress_Validation(t *testing.T) {
	db := dbtest.Open(t)
	r, api := apitest.Router("u1")
	NewHandler(NewRepo(db), nil).RegisterRoutes(api)

	tests := []struct {
		name string
		body any
	}{
		{"above one", setReq{Book: "Dune", Progress: ptr(1.01)}},
		{"negative", setReq{Book: "Dune", Progress: ptr(-0.1)}},
		{"missing progress", map[string]string{"book": "Dune"}},
		{"missing book", setReq{Progress: ptr(0.5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := apitest.Do(t, r, http.MethodPost, "/api/progress", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

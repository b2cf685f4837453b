package utils

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadCatalogConfig_Defaults(t *testing.T) {
	for _, k := range []string{
		"EPUBHUB_EPUB_DIR", "EPUBHUB_DEFAULT_LIMIT", "EPUBHUB_DEFAULT_SORT",
		"EPUBHUB_SORT_SCOPE", "EPUBHUB_PARSE_WORKERS", "EPUBHUB_COVER_MAX_WIDTH",
	} {
		t.Setenv(k, "")
	}

	got := LoadCatalogConfig()
	want := CatalogConfig{
		EpubDir:      "./epubs",
		DefaultLimit: 10,
		DefaultSort:  "fileName",
		SortScope:    "page",
		ParseWorkers: 4,
	}
	if got != want {
		t.Errorf("LoadCatalogConfig() = %+v, want %+v", got, want)
	}
}

func TestLoadCatalogConfig_Overrides(t *testing.T) {
	t.Setenv("EPUBHUB_EPUB_DIR", "/srv/books")
	t.Setenv("EPUBHUB_DEFAULT_LIMIT", "25")
	t.Setenv("EPUBHUB_SORT_SCOPE", "catalog")
	t.Setenv("EPUBHUB_PARSE_WORKERS", "not-a-number")

	got := LoadCatalogConfig()
	if got.EpubDir != "/srv/books" || got.DefaultLimit != 25 || got.SortScope != "catalog" {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.ParseWorkers != 4 {
		t.Errorf("ParseWorkers = %d, want fallback 4", got.ParseWorkers)
	}
}

func TestLoadAuthConfig_TTL(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 24 * time.Hour},
		{"2", 2 * time.Hour},
		{"0", 24 * time.Hour},
		{"abc", 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Setenv("EPUBHUB_JWT_TTL_HOURS", tt.raw)
		if got := LoadAuthConfig().JWTDuration; got != tt.want {
			t.Errorf("TTL %q = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestLoadServerConfig_Origins(t *testing.T) {
	t.Setenv("EPUBHUB_ALLOWED_ORIGINS", " http://a.test, ,http://b.test ")
	got := LoadServerConfig().AllowedOrigins
	if want := []string{"http://a.test", "http://b.test"}; !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedOrigins = %v, want %v", got, want)
	}
}

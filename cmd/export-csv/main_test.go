package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"testing"

	"epubhub/internal/catalog"
	"epubhub/internal/dbtest"
	"epubhub/internal/epubtest"
	"epubhub/internal/progress"
)

func TestExportCatalog_AllPages(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= catalog.MaxLimit+5; i++ {
		epubtest.Write(t, dir, fmt.Sprintf("book%03d.epub", i), epubtest.Book{Title: fmt.Sprintf("Book %d", i)})
	}
	epubtest.Write(t, dir, "zz-described.epub", epubtest.Book{
		Title:       "Described",
		Description: "<p>Line, with comma</p>",
		Publisher:   "Ace",
	})
	svc := catalog.NewService(catalog.Config{Dir: dir, Logger: log.New(io.Discard, "", 0)})

	var buf bytes.Buffer
	if err := exportCatalog(context.Background(), svc, &buf); err != nil {
		t.Fatalf("exportCatalog: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != catalog.MaxLimit+7 {
		t.Fatalf("got %d records, want header plus %d rows", len(records), catalog.MaxLimit+6)
	}
	if records[1][0] != "book001" {
		t.Errorf("first row = %v", records[1])
	}
	last := records[len(records)-1]
	if last[1] != "Described" || last[4] != "Ace" || last[8] != "Line, with comma" || last[7] != "false" {
		t.Errorf("last row = %v", last)
	}
}

func TestExportProgress(t *testing.T) {
	db := dbtest.Open(t)
	uid := dbtest.InsertUser(t, db, "u1", "reader@example.com")
	if err := progress.NewRepo(db).Upsert(context.Background(), uid, "dune", 0.25); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := exportProgress(context.Background(), db, &buf); err != nil {
		t.Fatalf("exportProgress: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %v", records)
	}
	if got := records[1]; got[0] != "u1" || got[1] != "dune" || got[2] != "0.25" || got[3] == "" {
		t.Errorf("row = %v", got)
	}
}

package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"epubhub/internal/catalog"
	"epubhub/pkg/database"
	"epubhub/pkg/utils"
)

func main() {
	catCfg := utils.LoadCatalogConfig()
	var (
		dir         = flag.String("dir", catCfg.EpubDir, "EPUB directory")
		catalogOut  = flag.String("catalog", "data/catalog.csv", "output CSV path for the catalog")
		progressOut = flag.String("progress", "data/progress.csv", "output CSV path for reading progress (empty to skip)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc := catalog.NewService(catalog.Config{
		Dir:     *dir,
		Workers: catCfg.ParseWorkers,
	})
	if err := writeFile(*catalogOut, func(w io.Writer) error { return exportCatalog(ctx, svc, w) }); err != nil {
		log.Fatalf("export catalog failed: %v", err)
	}

	if *progressOut != "" {
		db := database.MustOpen(database.DefaultConfig())
		defer db.Close()

		if err := writeFile(*progressOut, func(w io.Writer) error { return exportProgress(ctx, db, w) }); err != nil {
			log.Fatalf("export progress failed: %v", err)
		}
	}

	log.Printf("✅ exported catalog to %s", *catalogOut)
}

func writeFile(outPath string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// exportCatalog writes every book in file-name order, one page at a time.
func exportCatalog(ctx context.Context, svc *catalog.Service, out io.Writer) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"file_name", "title", "author", "date", "publisher", "language", "tag", "has_cover", "description"}); err != nil {
		return err
	}

	for page := 1; ; page++ {
		res, err := svc.List(ctx, catalog.Query{
			Page:  page,
			Limit: catalog.MaxLimit,
			Sort:  catalog.SortFileName,
			Order: catalog.OrderAsc,
		})
		if err != nil {
			return fmt.Errorf("list page %d: %w", page, err)
		}

		for _, b := range res.Books {
			if err := w.Write([]string{
				b.FileName,
				b.Title,
				b.Author,
				str(b.Date),
				str(b.Publisher),
				str(b.Language),
				str(b.Tag),
				strconv.FormatBool(b.Cover != nil),
				b.Description,
			}); err != nil {
				return err
			}
		}
		if page >= res.TotalPages {
			break
		}
	}

	w.Flush()
	return w.Error()
}

func exportProgress(ctx context.Context, db *sql.DB, out io.Writer) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"user_id", "book", "progress", "updated_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT user_id, book, progress, updated_at
        FROM progress
        ORDER BY updated_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID    string
			book      string
			progress  float64
			updatedAt sql.NullTime
		)

		if err := rows.Scan(&userID, &book, &progress, &updatedAt); err != nil {
			return err
		}

		updated := ""
		if updatedAt.Valid {
			updated = updatedAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			userID,
			book,
			strconv.FormatFloat(progress, 'f', -1, 64),
			updated,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

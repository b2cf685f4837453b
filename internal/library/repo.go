package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"epubhub/internal/sync"
	"epubhub/pkg/models"
)

// Collection is one per-user set of marked books.
type Collection struct {
	Table        string // backing table, (user_id, book) keyed
	Noun         string // route segment and JSON status key
	AddedEvent   string
	RemovedEvent string
	Label        string // used in response messages
}

var (
	Favorites = Collection{
		Table:        "favorites",
		Noun:         "favorite",
		AddedEvent:   sync.EventFavoriteAdded,
		RemovedEvent: sync.EventFavoriteRemoved,
		Label:        "favorite",
	}
	Downloads = Collection{
		Table:        "downloads",
		Noun:         "downloaded",
		AddedEvent:   sync.EventDownloadAdded,
		RemovedEvent: sync.EventDownloadRemoved,
		Label:        "downloaded",
	}
)

type Repo struct {
	DB    *sql.DB
	table string
}

func NewRepo(db *sql.DB, c Collection) *Repo {
	return &Repo{DB: db, table: c.Table}
}

// Add marks book for userID. Marking twice is a no-op.
func (r *Repo) Add(ctx context.Context, userID, book string) error {
	_, err := r.DB.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user_id, book, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, book) DO NOTHING
	`, r.table), userID, book)
	if err != nil {
		return fmt.Errorf("add %s entry: %w", r.table, err)
	}
	return nil
}

// Remove reports whether a row was deleted.
func (r *Repo) Remove(ctx context.Context, userID, book string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = ? AND book = ?
	`, r.table), userID, book)
	if err != nil {
		return false, fmt.Errorf("remove %s entry: %w", r.table, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Has(ctx context.Context, userID, book string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE user_id = ? AND book = ?
	`, r.table), userID, book).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s entry: %w", r.table, err)
	}
	return n > 0, nil
}

// List returns the user's entries, newest first.
func (r *Repo) List(ctx context.Context, userID string) ([]models.LibraryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT book, created_at
		FROM %s
		WHERE user_id = ?
		ORDER BY created_at DESC, book
	`, r.table), userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}
	defer rows.Close()

	out := make([]models.LibraryEntry, 0)
	for rows.Next() {
		var it models.LibraryEntry
		var added time.Time
		if err := rows.Scan(&it.Book, &added); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", r.table, err)
		}
		it.AddedAt = added
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

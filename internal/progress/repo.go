package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"epubhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert sets the user's progress on book.
func (r *Repo) Upsert(ctx context.Context, userID, book string, progress float64) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO progress (user_id, book, progress, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, book) DO UPDATE SET
			progress = excluded.progress,
			updated_at = CURRENT_TIMESTAMP
	`, userID, book, progress)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Get returns nil when the user has no progress on book.
func (r *Repo) Get(ctx context.Context, userID, book string) (*models.ProgressEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT book, progress, updated_at
		FROM progress
		WHERE user_id = ? AND book = ?
	`, userID, book)

	var e models.ProgressEntry
	if err := row.Scan(&e.Book, &e.Progress, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &e, nil
}

// List returns every book the user has progress on, most recent first.
func (r *Repo) List(ctx context.Context, userID string) ([]models.ProgressEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT book, progress, updated_at
		FROM progress
		WHERE user_id = ?
		ORDER BY updated_at DESC, book
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProgressEntry, 0)
	for rows.Next() {
		var e models.ProgressEntry
		var updated time.Time
		if err := rows.Scan(&e.Book, &e.Progress, &updated); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		e.UpdatedAt = updated
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows progress: %w", err)
	}
	return out, nil
}

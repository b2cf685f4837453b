package models

import "time"

// ProgressEntry is how far a user has read a book, from 0 to 1.
type ProgressEntry struct {
	Book      string    `json:"book"`
	Progress  float64   `json:"progress"`
	UpdatedAt time.Time `json:"updatedAt"`
}

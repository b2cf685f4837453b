package models

import "time"

// LibraryEntry is a book a user has marked, e.g. as a favorite or as
// downloaded. Book is the catalog fileName.
type LibraryEntry struct {
	Book    string    `json:"book"`
	AddedAt time.Time `json:"addedAt"`
}

package sync

import "time"

const (
	EventFavoriteAdded   = "favorite.added"
	EventFavoriteRemoved = "favorite.removed"
	EventProgressUpdated = "progress.updated"
	EventDownloadAdded   = "download.added"
	EventDownloadRemoved = "download.removed"
)

// UserEvent is pushed to every connection of the user who caused it.
type UserEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	Book     string    `json:"book"`
	Progress *float64  `json:"progress,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(typ, userID, book string) UserEvent {
	return UserEvent{Type: typ, UserID: userID, Book: book, At: time.Now().UTC()}
}

// Publisher receives user-state changes. *Hub implements it.
type Publisher interface {
	Publish(ev UserEvent)
}

package epub

import "errors"

var (
	// ErrArchive means the file could not be opened as a zip container.
	ErrArchive = errors.New("epub: unreadable archive")

	// ErrParse means the archive is a zip but its mimetype entry or
	// package document is missing or malformed.
	ErrParse = errors.New("epub: invalid package document")

	// ErrItemNotFound means a manifest id or its referenced entry does
	// not exist in the archive.
	ErrItemNotFound = errors.New("epub: manifest item not found")
)

package models

// Book is one catalog entry, built fresh from an archive on every request.
// Nullable fields serialize as JSON null when absent.
type Book struct {
	FileName    string  `json:"fileName"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Cover       *string `json:"cover"` // data:<mime>;base64,<payload>
	Date        *string `json:"date"`
	Publisher   *string `json:"publisher"`
	Language    *string `json:"language"`
	Tag         *string `json:"tag"`
	DownloadURL string  `json:"downloadUrl"`
}

// PaginatedBooks is one page of the catalog listing.
type PaginatedBooks struct {
	TotalItems  int    `json:"totalItems"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	PageSize    int    `json:"pageSize"`
	Books       []Book `json:"books"`
}

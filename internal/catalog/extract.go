package catalog

import (
	"context"
	"errors"
	"log"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"epubhub/internal/cover"
	"epubhub/internal/epub"
	"epubhub/pkg/models"
)

const (
	DefaultAuthor      = "Unknown Author"
	DefaultDescription = "No description available"
	epubExt            = ".epub"
)

// Extractor turns one archive into a catalog Book.
type Extractor struct {
	// DownloadPrefix is prepended to "/epubs/<name>/download".
	DownloadPrefix string
	// CoverMaxWidth downscales wider covers when positive.
	CoverMaxWidth int
	Logger        *log.Logger
}

func (e *Extractor) logger() *log.Logger {
	if e.Logger == nil {
		return log.Default()
	}
	return e.Logger
}

// Extract parses the archive at path. Archive and package errors are
// returned (wrapping epub.ErrArchive / epub.ErrParse); cover problems are
// logged and leave Cover nil.
func (e *Extractor) Extract(ctx context.Context, path string) (models.Book, error) {
	if err := ctx.Err(); err != nil {
		return models.Book{}, err
	}

	a, err := epub.Open(path)
	if err != nil {
		return models.Book{}, err
	}
	defer a.Close()

	name := baseName(path)
	book := e.fromMetadata(name, a.Package().Metadata)

	img, _, ok, err := cover.Find(a)
	switch {
	case err != nil:
		e.logger().Printf("[catalog] cover for %s: %v", name, err)
	case !ok:
		e.logger().Printf("[catalog] no cover image found for %s", name)
	default:
		if e.CoverMaxWidth > 0 {
			thumb, terr := cover.Thumbnail(img, e.CoverMaxWidth)
			if terr != nil {
				e.logger().Printf("[catalog] thumbnail for %s: %v", name, terr)
			}
			img = thumb
		}
		dataURL := img.DataURL()
		book.Cover = &dataURL
	}
	return book, nil
}

// Placeholder is the entry listed for an archive that failed to parse.
func (e *Extractor) Placeholder(path string) models.Book {
	return e.fromMetadata(baseName(path), epub.Metadata{})
}

func (e *Extractor) fromMetadata(name string, md epub.Metadata) models.Book {
	return models.Book{
		FileName:    name,
		Title:       orDefault(md.Title, name),
		Author:      orDefault(md.Creator, DefaultAuthor),
		Description: orDefault(plainText(md.Description), DefaultDescription),
		Date:        optional(md.Date),
		Publisher:   optional(md.Publisher),
		Language:    optional(md.Language),
		Tag:         optional(md.Subject),
		DownloadURL: e.DownloadPrefix + "/epubs/" + url.PathEscape(name) + "/download",
	}
}

// plainText strips markup from descriptions that embed HTML. Text without
// a known HTML element, such as "a<b", is returned as is.
func plainText(s string) string {
	if !strings.Contains(s, "<") || !hasElement(s) {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("br").Each(func(_ int, sel *goquery.Selection) {
		sel.ReplaceWithNodes(newline())
	})
	doc.Find("p, div, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendNodes(newline())
	})
	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// hasElement reports whether s contains a complete tag naming a known
// HTML element.
func hasElement(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if z.Token().DataAtom != 0 {
				return true
			}
		}
	}
}

func newline() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n"}
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), epubExt)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// isParseFailure reports errors that mean the archive itself is bad.
func isParseFailure(err error) bool {
	return errors.Is(err, epub.ErrArchive) || errors.Is(err, epub.ErrParse)
}

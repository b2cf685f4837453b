package catalog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"epubhub/internal/cover"
	"epubhub/internal/epub"
	"epubhub/pkg/models"
)

// Config configures a Service.
type Config struct {
	Dir            string
	DownloadPrefix string
	DefaultLimit   int
	DefaultSort    SortField
	Scope          SortScope
	Workers        int
	CoverMaxWidth  int
	Logger         *log.Logger
}

// Service lists and looks up the archives of a single directory. Nothing
// is cached: every call reads the directory and parses archives afresh.
type Service struct {
	cfg       Config
	extractor *Extractor
}

func NewService(cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if !cfg.DefaultSort.Valid() {
		cfg.DefaultSort = SortFileName
	}
	if !cfg.Scope.Valid() {
		cfg.Scope = ScopePage
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Service{
		cfg: cfg,
		extractor: &Extractor{
			DownloadPrefix: cfg.DownloadPrefix,
			CoverMaxWidth:  cfg.CoverMaxWidth,
			Logger:         cfg.Logger,
		},
	}
}

// Dir is the catalog directory.
func (s *Service) Dir() string { return s.cfg.Dir }

// List returns one page of the catalog.
func (s *Service) List(ctx context.Context, q Query) (models.PaginatedBooks, error) {
	if err := q.Validate(); err != nil {
		return models.PaginatedBooks{}, err
	}

	paths, err := s.files()
	if err != nil {
		return models.PaginatedBooks{}, err
	}
	paths = filterByName(paths, q.Search)

	total := len(paths)
	res := models.PaginatedBooks{
		TotalItems:  total,
		TotalPages:  (total + q.Limit - 1) / q.Limit,
		CurrentPage: q.Page,
		PageSize:    q.Limit,
		Books:       []models.Book{},
	}
	if q.Page > res.TotalPages {
		return res, nil
	}
	offset := (q.Page - 1) * q.Limit

	var books []models.Book
	switch {
	case s.cfg.Scope == ScopeCatalog && q.Sort == SortFileName:
		sortPaths(paths, q.Order)
		books, err = s.parseAll(ctx, window(paths, offset, q.Limit))
	case s.cfg.Scope == ScopeCatalog:
		books, err = s.parseAll(ctx, paths)
		if err == nil {
			sortBooks(books, q.Sort, q.Order)
			books = window(books, offset, q.Limit)
		}
	default:
		books, err = s.parseAll(ctx, window(paths, offset, q.Limit))
		if err == nil {
			sortBooks(books, q.Sort, q.Order)
		}
	}
	if err != nil {
		return models.PaginatedBooks{}, err
	}

	res.Books = books
	return res, nil
}

// GetByTitle parses the archive whose base name equals title, ignoring case.
func (s *Service) GetByTitle(ctx context.Context, title string) (models.Book, error) {
	path, err := s.FindFile(title)
	if err != nil {
		return models.Book{}, err
	}
	book, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return models.Book{}, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return book, nil
}

// FindFile resolves title to an archive path in the catalog directory.
func (s *Service) FindFile(title string) (string, error) {
	paths, err := s.files()
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if strings.EqualFold(baseName(p), title) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, title)
}

// Cover returns the cover image of the titled archive, downscaled to width
// when width is positive. A book without a usable cover yields ErrNotFound.
func (s *Service) Cover(ctx context.Context, title string, width int) (cover.Image, error) {
	if err := ctx.Err(); err != nil {
		return cover.Image{}, err
	}
	path, err := s.FindFile(title)
	if err != nil {
		return cover.Image{}, err
	}

	a, err := epub.Open(path)
	if err != nil {
		return cover.Image{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer a.Close()

	img, _, ok, err := cover.Find(a)
	if err != nil {
		return cover.Image{}, fmt.Errorf("%w: cover of %s: %v", ErrNotFound, title, err)
	}
	if !ok {
		return cover.Image{}, fmt.Errorf("%w: %s has no cover", ErrNotFound, title)
	}
	if width > 0 {
		if img, err = cover.Thumbnail(img, width); err != nil {
			s.cfg.Logger.Printf("[catalog] thumbnail for %s: %v", title, err)
		}
	}
	return img, nil
}

// files lists *.epub entries of the catalog directory in name order.
func (s *Service) files() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), epubExt) {
			continue
		}
		paths = append(paths, filepath.Join(s.cfg.Dir, e.Name()))
	}
	return paths, nil
}

// parseAll extracts paths with bounded parallelism. Result order matches
// input order. Archives that fail to parse become placeholders.
func (s *Service) parseAll(ctx context.Context, paths []string) ([]models.Book, error) {
	books := make([]models.Book, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, p := range paths {
		g.Go(func() error {
			book, err := s.extractor.Extract(gctx, p)
			if err != nil {
				if !isParseFailure(err) {
					return err
				}
				s.cfg.Logger.Printf("[catalog] failed to parse %s: %v", filepath.Base(p), err)
				book = s.extractor.Placeholder(p)
			}
			books[i] = book
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return books, nil
}

func filterByName(paths []string, search string) []string {
	if search == "" {
		return paths
	}
	needle := strings.ToLower(search)
	out := paths[:0]
	for _, p := range paths {
		if strings.Contains(strings.ToLower(baseName(p)), needle) {
			out = append(out, p)
		}
	}
	return out
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

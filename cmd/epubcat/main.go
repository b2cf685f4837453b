package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"epubhub/internal/catalog"
	"epubhub/internal/epub"
	"epubhub/pkg/models"
	"epubhub/pkg/utils"
)

type options struct {
	dir     string
	scope   string
	workers int
	verbose bool
}

func newRootCmd() *cobra.Command {
	cfg := utils.LoadCatalogConfig()
	opts := &options{}

	root := &cobra.Command{
		Use:   "epubcat",
		Short: "Browse a directory of EPUB files",
		Long: `epubcat reads the metadata of every .epub in a directory and prints
the catalog the API server would serve, without starting the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.dir, "dir", "d", cfg.EpubDir, "EPUB directory")
	root.PersistentFlags().StringVar(&opts.scope, "scope", cfg.SortScope, "sort scope: page or catalog")
	root.PersistentFlags().IntVar(&opts.workers, "workers", cfg.ParseWorkers, "archives parsed in parallel")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log skipped and broken archives")

	root.AddCommand(newListCmd(opts, cfg), newShowCmd(opts, cfg), newCoverCmd(opts, cfg))
	return root
}

func (o *options) service(cfg utils.CatalogConfig) *catalog.Service {
	logger := log.New(io.Discard, "", 0)
	if o.verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return catalog.NewService(catalog.Config{
		Dir:           o.dir,
		DefaultLimit:  cfg.DefaultLimit,
		DefaultSort:   catalog.SortField(cfg.DefaultSort),
		Scope:         catalog.SortScope(o.scope),
		Workers:       o.workers,
		CoverMaxWidth: cfg.CoverMaxWidth,
		Logger:        logger,
	})
}

func newListCmd(opts *options, cfg utils.CatalogConfig) *cobra.Command {
	var raw catalog.RawQuery
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.service(cfg)
			q, err := svc.ParseQuery(raw)
			if err != nil {
				return err
			}
			res, err := svc.List(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("list %s: %w", opts.dir, err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writeTable(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&raw.Page, "page", "", "page number (default 1)")
	cmd.Flags().StringVar(&raw.Limit, "limit", "", "books per page")
	cmd.Flags().StringVar(&raw.Sort, "sort", "", "fileName, title, author, date, publisher or language")
	cmd.Flags().StringVar(&raw.Order, "order", "", "asc or desc")
	cmd.Flags().StringVar(&raw.Search, "search", "", "filter by file name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the API response body")
	return cmd
}

func newShowCmd(opts *options, cfg utils.CatalogConfig) *cobra.Command {
	var manifest bool

	cmd := &cobra.Command{
		Use:   "show <title>",
		Short: "Print the metadata of one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := opts.service(cfg)
			if manifest {
				path, err := svc.FindFile(args[0])
				if err != nil {
					return err
				}
				pkg, err := epub.Parse(path)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), pkg)
			}

			book, err := svc.GetByTitle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), book)
		},
	}
	cmd.Flags().BoolVar(&manifest, "manifest", false, "print the raw package document instead")
	return cmd
}

func newCoverCmd(opts *options, cfg utils.CatalogConfig) *cobra.Command {
	var out string
	var width int

	cmd := &cobra.Command{
		Use:   "cover <title>",
		Short: "Extract the cover image of one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := opts.service(cfg).Cover(cmd.Context(), args[0], width)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + extFor(img.MediaType)
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, img.Data, 0o644); err != nil {
				return fmt.Errorf("write cover: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes)\n", out, img.MediaType, len(img.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <title> plus extension)")
	cmd.Flags().IntVar(&width, "width", 0, "scale down to this width")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, res models.PaginatedBooks) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tTITLE\tAUTHOR\tDATE\tLANG")
	for _, b := range res.Books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.FileName, b.Title, b.Author, deref(b.Date), deref(b.Language))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d books\n", res.CurrentPage, res.TotalPages, res.TotalItems)
	return err
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func extFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	return ".img"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

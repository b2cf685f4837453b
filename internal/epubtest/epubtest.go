// Package epubtest writes small EPUB archives for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
)

// Item is a manifest entry. Data is written to the archive next to the
// package document; a nil Data leaves the entry out of the zip.
type Item struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
	Data       []byte
}

// Book describes the archive to generate.
type Book struct {
	Title       string
	Creator     string
	Description string
	Date        string
	Publisher   string
	Language    string
	Subject     string
	CoverID     string
	Items       []Item

	OPFPath       string // default OEBPS/content.opf
	RawOPF        string // replaces the generated package document
	Mimetype      string // default application/epub+zip
	SkipMimetype  bool
	SkipContainer bool
}

// Write creates dir/name and returns its path.
func Write(t testing.TB, dir, name string, b Book) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, Bytes(t, b), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// Bytes renders b as an in-memory zip.
func Bytes(t testing.TB, b Book) []byte {
	t.Helper()
	opfPath := b.OPFPath
	if opfPath == "" {
		opfPath = "OEBPS/content.opf"
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	if !b.SkipMimetype {
		mt := b.Mimetype
		if mt == "" {
			mt = "application/epub+zip"
		}
		mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("create mimetype: %v", err)
		}
		_, _ = mw.Write([]byte(mt))
	}

	if !b.SkipContainer {
		writeEntry(t, w, "META-INF/container.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="%s" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`, opfPath))
	}

	opf := b.RawOPF
	if opf == "" {
		opf = renderOPF(b)
	}
	writeEntry(t, w, opfPath, opf)

	dir := path.Dir(opfPath)
	for _, it := range b.Items {
		if it.Data == nil {
			continue
		}
		ew, err := w.Create(path.Join(dir, it.Href))
		if err != nil {
			t.Fatalf("create %s: %v", it.Href, err)
		}
		_, _ = ew.Write(it.Data)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func writeEntry(t testing.TB, w *zip.Writer, name, content string) {
	t.Helper()
	ew, err := w.Create(name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	_, _ = ew.Write([]byte(content))
}

func renderOPF(b Book) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	dc := func(tag, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "    <dc:%s>%s</dc:%s>\n", tag, esc(v), tag)
		}
	}
	dc("title", b.Title)
	dc("creator", b.Creator)
	dc("description", b.Description)
	dc("date", b.Date)
	dc("publisher", b.Publisher)
	dc("language", b.Language)
	dc("subject", b.Subject)
	if b.CoverID != "" {
		fmt.Fprintf(&sb, "    <meta name=\"cover\" content=\"%s\"/>\n", esc(b.CoverID))
	}
	sb.WriteString("  </metadata>\n  <manifest>\n")
	for _, it := range b.Items {
		fmt.Fprintf(&sb, "    <item id=\"%s\" href=\"%s\" media-type=\"%s\"", esc(it.ID), esc(it.Href), esc(it.MediaType))
		if it.Properties != "" {
			fmt.Fprintf(&sb, " properties=\"%s\"", esc(it.Properties))
		}
		sb.WriteString("/>\n")
	}
	sb.WriteString("  </manifest>\n</package>\n")
	return sb.String()
}

func esc(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// PNG returns an encoded w x h image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	mimetypePath  = "mimetype"
	containerPath = "META-INF/container.xml"
	epubMimetype  = "application/epub+zip"
)

// Archive is an open EPUB container with its package document parsed.
type Archive struct {
	zr   *zip.ReadCloser
	pkg  Package
	byID map[string]int
}

type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Open opens the EPUB at path and parses its package document.
// Errors wrap ErrArchive when the file is not a readable zip and ErrParse
// when the EPUB structure is missing or malformed.
func Open(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchive, path, err)
	}

	a := &Archive{zr: zr}
	if err := a.load(); err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	return a, nil
}

// Parse opens path, returns its package and closes the archive.
func Parse(path string) (Package, error) {
	a, err := Open(path)
	if err != nil {
		return Package{}, err
	}
	defer a.Close()
	return a.Package(), nil
}

func (a *Archive) load() error {
	if err := a.checkMimetype(); err != nil {
		return err
	}

	opfPath, err := a.locatePackage()
	if err != nil {
		return err
	}

	f := findFile(&a.zr.Reader, opfPath)
	if f == nil {
		return fmt.Errorf("package document %s not found", opfPath)
	}
	data, err := readZipFile(f)
	if err != nil {
		return err
	}

	pkg, err := parsePackage(data, f.Name)
	if err != nil {
		return err
	}

	a.pkg = pkg
	a.byID = make(map[string]int, len(pkg.Manifest))
	for i, it := range pkg.Manifest {
		a.byID[it.ID] = i
	}
	return nil
}

func (a *Archive) checkMimetype() error {
	f := findFile(&a.zr.Reader, mimetypePath)
	if f == nil {
		return fmt.Errorf("no mimetype file in archive")
	}
	data, err := readZipFileWithLimit(f, 1024)
	if err != nil {
		return fmt.Errorf("read mimetype: %w", err)
	}
	if got := strings.TrimSpace(string(data)); got != epubMimetype {
		return fmt.Errorf("unsupported mimetype %q", got)
	}
	return nil
}

// locatePackage returns the OPF path from container.xml, or the first
// *.opf entry when container.xml is absent.
func (a *Archive) locatePackage() (string, error) {
	f := findFile(&a.zr.Reader, containerPath)
	if f == nil {
		for _, e := range a.zr.File {
			if strings.HasSuffix(strings.ToLower(e.Name), ".opf") {
				return e.Name, nil
			}
		}
		return "", fmt.Errorf("no container.xml and no .opf entry")
	}

	data, err := readZipFile(f)
	if err != nil {
		return "", fmt.Errorf("read container.xml: %w", err)
	}
	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("parse container.xml: %w", err)
	}

	fallback := ""
	for _, rf := range c.RootFiles {
		p := strings.TrimSpace(rf.FullPath)
		if p == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), "application/oebps-package+xml") {
			return p, nil
		}
		if fallback == "" {
			fallback = p
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("container.xml has no rootfile")
	}
	return fallback, nil
}

// Close releases the underlying zip reader.
func (a *Archive) Close() error {
	return a.zr.Close()
}

// Package returns the parsed package document.
func (a *Archive) Package() Package {
	return a.pkg
}

// Item looks up a manifest item by id.
func (a *Archive) Item(id string) (ManifestItem, bool) {
	i, ok := a.byID[id]
	if !ok {
		return ManifestItem{}, false
	}
	return a.pkg.Manifest[i], true
}

// ReadItem returns the bytes of the resource referenced by manifest item id.
func (a *Archive) ReadItem(id string) ([]byte, error) {
	item, ok := a.Item(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrItemNotFound, id)
	}
	if item.Href == "" {
		return nil, fmt.Errorf("%w: id %q has no usable href", ErrItemNotFound, id)
	}
	f := findFile(&a.zr.Reader, item.Href)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, item.Href)
	}
	return readZipFile(f)
}

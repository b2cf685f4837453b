package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// ManifestItem is one <item> of the package manifest.
type ManifestItem struct {
	ID         string `json:"id"`
	Href       string `json:"href"` // archive path, already resolved against the OPF directory
	MediaType  string `json:"mediaType"`
	Properties string `json:"properties,omitempty"`
}

// IsImage reports whether the item declares an image/* media type.
func (m ManifestItem) IsImage() bool {
	return strings.HasPrefix(m.MediaType, "image/")
}

// Metadata holds the subset of the OPF <metadata> block used by the catalog.
// Absent or blank elements are left empty.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Language    string `json:"language,omitempty"`
	Subject     string `json:"subject,omitempty"`
	CoverID     string `json:"coverId,omitempty"` // from <meta name="cover" content="..."/>
}

// Package is the parsed package document: metadata plus the manifest in
// declaration order. Path is the document's location in the archive.
type Package struct {
	Path     string         `json:"path"`
	Metadata Metadata       `json:"metadata"`
	Manifest []ManifestItem `json:"manifest"`
}

type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
}

type opfMetadata struct {
	Titles       []string  `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators     []string  `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Descriptions []string  `xml:"http://purl.org/dc/elements/1.1/ description"`
	Dates        []string  `xml:"http://purl.org/dc/elements/1.1/ date"`
	Publishers   []string  `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Languages    []string  `xml:"http://purl.org/dc/elements/1.1/ language"`
	Subjects     []string  `xml:"http://purl.org/dc/elements/1.1/ subject"`
	Metas        []opfMeta `xml:"meta"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// parsePackage decodes the OPF document found at opfPath.
func parsePackage(data []byte, opfPath string) (Package, error) {
	dec := xml.NewDecoder(bytes.NewReader(stripBOM(data)))
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var raw opfPackage
	if err := dec.Decode(&raw); err != nil {
		return Package{}, fmt.Errorf("decode %s: %w", opfPath, err)
	}

	pkg := Package{
		Path:     opfPath,
		Metadata: extractMetadata(&raw.Metadata),
		Manifest: make([]ManifestItem, 0, len(raw.Manifest.Items)),
	}

	seen := make(map[string]struct{}, len(raw.Manifest.Items))
	for _, it := range raw.Manifest.Items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pkg.Manifest = append(pkg.Manifest, ManifestItem{
			ID:         id,
			Href:       resolveHref(opfPath, it.Href),
			MediaType:  strings.TrimSpace(it.MediaType),
			Properties: strings.TrimSpace(it.Properties),
		})
	}
	return pkg, nil
}

func extractMetadata(om *opfMetadata) Metadata {
	md := Metadata{
		Title:       firstNonEmpty(om.Titles),
		Creator:     firstNonEmpty(om.Creators),
		Description: firstNonEmpty(om.Descriptions),
		Date:        firstNonEmpty(om.Dates),
		Publisher:   firstNonEmpty(om.Publishers),
		Language:    firstNonEmpty(om.Languages),
		Subject:     firstNonEmpty(om.Subjects),
	}
	for _, m := range om.Metas {
		if strings.EqualFold(m.Name, "cover") && strings.TrimSpace(m.Content) != "" {
			md.CoverID = strings.TrimSpace(m.Content)
			break
		}
	}
	return md
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

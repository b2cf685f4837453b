// Package cover picks a representative cover image from an EPUB manifest.
//
// Producers mark covers inconsistently, so selection runs an ordered chain
// of filters over the manifest. Explicit signals come first, then id
// keyword guessing:
//
//  1. Declared: items whose id equals the metadata cover id.
//  2. Property: image items with properties="cover-image".
//  3. Keyword: image items whose id contains "cover" and no blacklisted word.
//  4. Relaxed: image items whose id contains no blacklisted word.
//
// Stages 2 and 3 run whenever the previous stage did not produce exactly one
// candidate; stage 4 runs only when stage 3 produced none. The final
// candidate set is reduced to the item with the longest id, earliest in
// manifest order on ties.
package cover

import (
	"slices"
	"strings"
	"unicode/utf8"

	"epubhub/internal/epub"
)

// blacklist holds id substrings of images known not to be covers in the
// target corpus: title pages, icons, maps, excerpts, alternate languages.
var blacklist = [...]string{"x40k", "title", "icon", "extract", "part", "map", "-fr-"}

// Blacklist returns a copy of the id substrings that disqualify an image.
func Blacklist() []string {
	return slices.Clone(blacklist[:])
}

// Keyword must appear in an id for the keyword stage to accept it.
const Keyword = "cover"

// CoverImageProperty is the EPUB 3 manifest property for cover images.
const CoverImageProperty = "cover-image"

// Stage names which filter produced the final candidate set.
type Stage string

const (
	StageNone     Stage = ""
	StageDeclared Stage = "declared"
	StageProperty Stage = "property"
	StageKeyword  Stage = "keyword"
	StageRelaxed  Stage = "relaxed"
)

// Declared returns the items whose id equals coverID, regardless of media type.
func Declared(manifest []epub.ManifestItem, coverID string) []epub.ManifestItem {
	if coverID == "" {
		return nil
	}
	return filter(manifest, func(it epub.ManifestItem) bool {
		return it.ID == coverID
	})
}

// ByProperty returns the image items flagged with the cover-image property.
func ByProperty(manifest []epub.ManifestItem) []epub.ManifestItem {
	return filter(manifest, func(it epub.ManifestItem) bool {
		return it.IsImage() && it.Properties == CoverImageProperty
	})
}

// ByKeyword returns the non-blacklisted image items whose id mentions Keyword.
func ByKeyword(manifest []epub.ManifestItem) []epub.ManifestItem {
	return filter(manifest, func(it epub.ManifestItem) bool {
		id := strings.ToLower(it.ID)
		return it.IsImage() && !Blacklisted(id) && strings.Contains(id, Keyword)
	})
}

// Relaxed returns every non-blacklisted image item.
func Relaxed(manifest []epub.ManifestItem) []epub.ManifestItem {
	return filter(manifest, func(it epub.ManifestItem) bool {
		return it.IsImage() && !Blacklisted(strings.ToLower(it.ID))
	})
}

// Blacklisted reports whether the lower-cased id contains a blacklisted word.
func Blacklisted(lowerID string) bool {
	for _, word := range blacklist {
		if strings.Contains(lowerID, word) {
			return true
		}
	}
	return false
}

// Longest returns the candidate with the longest id, counted in characters.
// Ties keep the earliest candidate.
func Longest(candidates []epub.ManifestItem) (epub.ManifestItem, bool) {
	if len(candidates) == 0 {
		return epub.ManifestItem{}, false
	}
	best := candidates[0]
	bestLen := utf8.RuneCountInString(best.ID)
	for _, c := range candidates[1:] {
		if n := utf8.RuneCountInString(c.ID); n > bestLen {
			best, bestLen = c, n
		}
	}
	return best, true
}

// Select runs the stage chain and returns the chosen item and the stage
// whose candidate set it came from. ok is false when no image qualifies.
func Select(pkg epub.Package) (item epub.ManifestItem, stage Stage, ok bool) {
	set, stage := candidates(pkg)
	item, ok = Longest(set)
	if !ok {
		return epub.ManifestItem{}, StageNone, false
	}
	return item, stage, true
}

func candidates(pkg epub.Package) ([]epub.ManifestItem, Stage) {
	c := Declared(pkg.Manifest, pkg.Metadata.CoverID)
	if len(c) == 1 {
		return c, StageDeclared
	}

	c = ByProperty(pkg.Manifest)
	if len(c) == 1 {
		return c, StageProperty
	}

	c = ByKeyword(pkg.Manifest)
	if len(c) > 0 {
		return c, StageKeyword
	}

	c = Relaxed(pkg.Manifest)
	if len(c) > 0 {
		return c, StageRelaxed
	}
	return nil, StageNone
}

func filter(items []epub.ManifestItem, keep func(epub.ManifestItem) bool) []epub.ManifestItem {
	var out []epub.ManifestItem
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

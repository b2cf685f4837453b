package cover

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"epubhub/internal/epub"
)

// ErrCoverDecode is returned when a selected item cannot be turned into
// image bytes. Callers treat it as "no cover".
var ErrCoverDecode = errors.New("cover: decode failed")

const thumbnailJPEGQuality = 85

// Image is a decoded cover resource.
type Image struct {
	Data      []byte
	MediaType string
}

// DataURL renders the image as data:<mime>;base64,<payload>.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Source is an opened archive: its package document plus item access.
// *epub.Archive satisfies it.
type Source interface {
	Package() epub.Package
	ReadItem(id string) ([]byte, error)
}

// Decode reads the bytes of item from src. Items without an image/* media
// type are rejected. An empty entry decodes to an empty image.
func Decode(src Source, item epub.ManifestItem) (Image, error) {
	if !item.IsImage() {
		return Image{}, fmt.Errorf("%w: item %q has media type %q", ErrCoverDecode, item.ID, item.MediaType)
	}
	data, err := src.ReadItem(item.ID)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrCoverDecode, err)
	}
	return Image{Data: data, MediaType: item.MediaType}, nil
}

// Find selects and decodes the cover of src. ok is false when no manifest
// item qualifies; err is non-nil (wrapping ErrCoverDecode) when one was
// selected but could not be read.
func Find(src Source) (img Image, stage Stage, ok bool, err error) {
	item, stage, ok := Select(src.Package())
	if !ok {
		return Image{}, StageNone, false, nil
	}
	img, err = Decode(src, item)
	if err != nil {
		return Image{}, stage, false, err
	}
	return img, stage, true, nil
}

// Thumbnail downscales img to maxWidth pixels wide and re-encodes it as JPEG.
// Images already within the limit, and a non-positive maxWidth, return img
// unchanged.
func Thumbnail(img Image, maxWidth int) (Image, error) {
	if maxWidth <= 0 {
		return img, nil
	}
	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return img, fmt.Errorf("%w: %v", ErrCoverDecode, err)
	}
	if src.Bounds().Dx() <= maxWidth {
		return img, nil
	}

	resized := imaging.Resize(src, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(thumbnailJPEGQuality)); err != nil {
		return img, fmt.Errorf("encode thumbnail: %w", err)
	}
	return Image{Data: buf.Bytes(), MediaType: "image/jpeg"}, nil
}

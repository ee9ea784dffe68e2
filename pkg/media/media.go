// Package media validates fetched image content.
package media

import (
	"bufio"
	"fmt"
	"image"
	"mime"
	"os"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// accepted maps every allowed declared content type to the extension used
// when a target URL carries no usable filename.
var accepted = map[string]string{
	"image/bmp":  ".bmp",
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// Info describes a decoded image
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MediaType returns the lower-cased media type of a Content-Type header value
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = mediaType[:i]
		}
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Accepts reports whether contentType is on the image allow-list
func Accepts(contentType string) bool {
	_, ok := accepted[MediaType(contentType)]
	return ok
}

// ExtensionFor returns the file extension for an accepted content type, or ""
func ExtensionFor(contentType string) string {
	return accepted[MediaType(contentType)]
}

// Verifier checks that a written file decodes as an image
type Verifier interface {
	Verify(path string) (Info, error)
}

// DecodeVerifier performs a full decode with the registered image codecs
type DecodeVerifier struct{}

// Verify fully decodes the file at path
func (DecodeVerifier) Verify(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return Info{}, fmt.Errorf("decoded %s image is empty", format)
	}
	return Info{Format: format, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

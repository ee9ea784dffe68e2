package resolver

import (
	"context"
	"strings"

	"wallgrab/pkg/models"
)

var imageExtensions = []string{".jpg", ".jpeg", ".gif", ".bmp", ".png"}

// Direct accepts URLs that already point at an image file
type Direct struct{}

// NewDirect creates the direct link resolver
func NewDirect() *Direct {
	return &Direct{}
}

func (d *Direct) Name() string { return "direct" }

// Resolve strips the query (and the reddit tracking fragment imgur appends)
// and accepts the result if it ends in an image extension.
func (d *Direct) Resolve(ctx context.Context, c models.Candidate) ([]models.Target, error) {
	rawURL := c.URL
	if hostOf(rawURL) == "i.imgur.com" && strings.HasSuffix(rawURL, ".reddit") {
		rawURL, _, _ = strings.Cut(rawURL, "#")
	}
	rawURL, _, _ = strings.Cut(rawURL, "?")

	if !hasImageExtension(rawURL) {
		return nil, nil
	}
	return []models.Target{target(c, rawURL)}, nil
}

func hasImageExtension(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

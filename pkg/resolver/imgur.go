package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	errs "wallgrab/pkg/errors"
	"wallgrab/pkg/models"
)

// Imgur resolves single-image imgur pages to the image they show
type Imgur struct {
	fetcher PageFetcher
}

// NewImgur creates the imgur page resolver
func NewImgur(fetcher PageFetcher) *Imgur {
	return &Imgur{fetcher: fetcher}
}

func (r *Imgur) Name() string { return "imgur" }

// Matches reports whether rawURL is an imgur page rather than an image or album
func (r *Imgur) Matches(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if len(lower) >= 4 {
		switch lower[len(lower)-4:] {
		case ".jpg", ".bmp", ".png", ".gif":
			return false
		}
	}

	rest := stripScheme(lower)
	switch {
	case strings.HasPrefix(rest, "imgur.com/a/"):
		return false
	case strings.HasPrefix(rest, "imgur.com/"), strings.HasPrefix(rest, "i.imgur.com/"):
		return true
	}
	return false
}

// Resolve fetches the page and returns the first head link that points at
// the same host and path as the page itself.
func (r *Imgur) Resolve(ctx context.Context, c models.Candidate) ([]models.Target, error) {
	if !r.Matches(c.URL) {
		return nil, nil
	}

	doc, err := r.fetcher.GetDocument(ctx, c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load imgur page: %w", err)
	}

	needle := stripScheme(c.URL)
	var found string
	doc.Find("head link[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.Contains(href, needle) {
			found = absolute(doc, href)
			return false
		}
		return true
	})

	if found == "" {
		return nil, errs.New(errs.ErrorTypeParsing, 0, c.URL, "no image link found on imgur page")
	}
	found, _, _ = strings.Cut(found, "?")
	return []models.Target{target(c, found)}, nil
}

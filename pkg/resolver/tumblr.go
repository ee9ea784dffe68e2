package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"wallgrab/pkg/models"
)

// Tumblr collects the photos of tumblr photoset posts
type Tumblr struct {
	fetcher PageFetcher
}

// NewTumblr creates the tumblr photoset resolver
func NewTumblr(fetcher PageFetcher) *Tumblr {
	return &Tumblr{fetcher: fetcher}
}

func (r *Tumblr) Name() string { return "tumblr" }

// Resolve loads the post, follows every photoset iframe and returns the
// linked photos in page order.
func (r *Tumblr) Resolve(ctx context.Context, c models.Candidate) ([]models.Target, error) {
	if !strings.Contains(strings.ToLower(c.URL), "tumblr.com") {
		return nil, nil
	}

	doc, err := r.fetcher.GetDocument(ctx, c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load tumblr post: %w", err)
	}

	var frames []string
	doc.Find("iframe.photoset[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src = absolute(doc, src); src != "" {
			frames = append(frames, src)
		}
	})

	var targets []models.Target
	seen := models.NewSet()
	for _, frame := range frames {
		set, err := r.fetcher.GetDocument(ctx, frame)
		if err != nil {
			return nil, fmt.Errorf("failed to load tumblr photoset %s: %w", frame, err)
		}
		set.Find(".photoset_photo[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			href = absolute(set, href)
			if href != "" && seen.Add(href) {
				targets = append(targets, target(c, href))
			}
		})
	}
	return targets, nil
}

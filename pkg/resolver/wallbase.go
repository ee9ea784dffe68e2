package resolver

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	errs "wallgrab/pkg/errors"
	"wallgrab/pkg/logger"
	"wallgrab/pkg/models"
)

const (
	wallbasePrefix   = "wallbase.cc/user/collection/"
	wallbasePageSize = 32
	wallbaseCountSel = "#delwrap > div:nth-of-type(1) > div:nth-of-type(3) > span:nth-of-type(1)"
)

var wallbaseSrc = regexp.MustCompile(`src="'\+B\('([A-Za-z0-9=+\\/]+)'\)\+'"`)

// Wallbase expands wallbase.cc collections into their wallpapers
type Wallbase struct {
	fetcher PageFetcher
	logger  logger.Logger
}

// NewWallbase creates the wallbase collection resolver
func NewWallbase(fetcher PageFetcher, log logger.Logger) *Wallbase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Wallbase{fetcher: fetcher, logger: log}
}

func (r *Wallbase) Name() string { return "wallbase" }

// Resolve reads the collection size, walks every listing page and decodes
// the image address embedded in each wallpaper page. A wallpaper page that
// cannot be loaded or decoded is logged and skipped.
func (r *Wallbase) Resolve(ctx context.Context, c models.Candidate) ([]models.Target, error) {
	if !strings.HasPrefix(stripScheme(strings.ToLower(c.URL)), wallbasePrefix) {
		return nil, nil
	}

	doc, err := r.fetcher.GetDocument(ctx, c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallbase collection: %w", err)
	}
	total, err := parseCount(doc.Find(wallbaseCountSel).First().Text())
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, 0, c.URL, "collection size not found")
	}

	var targets []models.Target
	seen := models.NewSet()
	for _, page := range wallbasePages(c.URL, total) {
		listing, err := r.fetcher.GetDocument(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to load wallbase page %s: %w", page, err)
		}

		var links []string
		listing.Find(".thumb a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			links = append(links, absolute(listing, href))
		})

		for _, link := range links {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			imgURL, err := r.wallpaper(ctx, link)
			if err != nil {
				r.logger.WithError(err).WarnWithFields("Skipping wallbase wallpaper", map[string]interface{}{
					"url": link,
				})
				continue
			}
			if seen.Add(imgURL) {
				targets = append(targets, target(c, imgURL))
			}
		}
	}
	return targets, nil
}

func (r *Wallbase) wallpaper(ctx context.Context, link string) (string, error) {
	doc, err := r.fetcher.GetDocument(ctx, link)
	if err != nil {
		return "", err
	}
	return decodeWallpaperSrc(doc.Find("#bigwall script").Text())
}

// wallbasePages lists the paged collection URLs. Listing offsets on the site
// are shifted by one page, so the walk runs two pages past the count.
func wallbasePages(base string, total int) []string {
	var pages []string
	for start, end := 1, wallbasePageSize; end <= total+2*wallbasePageSize; start, end = start+wallbasePageSize, end+wallbasePageSize {
		pages = append(pages, fmt.Sprintf("%s%d/%d", base, start, end))
	}
	return pages
}

func parseCount(text string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	return strconv.Atoi(digits)
}

func decodeWallpaperSrc(script string) (string, error) {
	m := wallbaseSrc.FindStringSubmatch(script)
	if m == nil {
		return "", fmt.Errorf("no encoded image source in wallpaper page")
	}
	encoded := strings.ReplaceAll(m[1], `\`, "")
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return "", fmt.Errorf("failed to decode image source: %w", err)
		}
	}
	return string(data), nil
}

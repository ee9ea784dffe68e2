package feed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"wallgrab/pkg/config"
	"wallgrab/pkg/logger"
	"wallgrab/pkg/models"
)

const maxPageSize = 100

// JSONGetter performs a GET and decodes JSON into target
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, target interface{}) error
}

// RedditSource pages through a reddit listing endpoint
type RedditSource struct {
	client  JSONGetter
	baseURL string
	path    string
	limit   int
	logger  logger.Logger
}

// NewRedditSource creates a listing source. The client is expected to carry
// the bearer token for the account.
func NewRedditSource(client JSONGetter, cfg config.FeedConfig, log logger.Logger) (*RedditSource, error) {
	path, err := ListingPath(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = maxPageSize
	}
	return &RedditSource{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		path:    path,
		limit:   limit,
		logger:  log,
	}, nil
}

// ListingPath returns the endpoint path for the configured listing
func ListingPath(cfg config.FeedConfig) (string, error) {
	switch cfg.Listing {
	case "upvoted", "saved":
		if cfg.User == "" {
			return "", fmt.Errorf("user is required for %s listings", cfg.Listing)
		}
		return fmt.Sprintf("/user/%s/%s", url.PathEscape(cfg.User), cfg.Listing), nil
	case "subreddit":
		if cfg.Subreddit == "" {
			return "", fmt.Errorf("subreddit is required for subreddit listings")
		}
		sort := cfg.Sort
		if sort == "" {
			sort = "hot"
		}
		return fmt.Sprintf("/r/%s/%s", url.PathEscape(cfg.Subreddit), sort), nil
	default:
		return "", fmt.Errorf("unsupported listing %q", cfg.Listing)
	}
}

// Posts implements Source, following after cursors until limit posts were
// collected or the listing ends
func (s *RedditSource) Posts(ctx context.Context) ([]models.Post, error) {
	var (
		posts []models.Post
		after string
		page  int
	)

	for len(posts) < s.limit {
		page++
		size := s.limit - len(posts)
		if size > maxPageSize {
			size = maxPageSize
		}

		var listing Listing
		if err := s.client.GetJSON(ctx, s.pageURL(after, size), &listing); err != nil {
			return nil, fmt.Errorf("failed to fetch listing page %d: %w", page, err)
		}

		batch := listing.Posts()
		s.logger.DebugWithFields("Fetched listing page", map[string]interface{}{
			"page":     page,
			"children": len(listing.Data.Children),
			"posts":    len(batch),
			"after":    listing.Data.After,
		})
		posts = append(posts, batch...)

		if listing.Data.After == "" || len(listing.Data.Children) == 0 {
			break
		}
		after = listing.Data.After
	}

	if len(posts) > s.limit {
		posts = posts[:s.limit]
	}
	return posts, nil
}

func (s *RedditSource) pageURL(after string, size int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(size))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	return s.baseURL + s.path + "?" + q.Encode()
}

// Package feed supplies the raw posts a run starts from.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wallgrab/pkg/models"
)

// Source produces the posts for one run, in feed order
type Source interface {
	Posts(ctx context.Context) ([]models.Post, error)
}

// Listing is a reddit listing document
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

// ListingData holds one page of listing children
type ListingData struct {
	After    string  `json:"after"`
	Children []Child `json:"children"`
}

// Child is one listing entry
type Child struct {
	Kind string    `json:"kind"`
	Data ChildData `json:"data"`
}

// ChildData holds the post fields wallgrab uses
type ChildData struct {
	Title     string `json:"title"`
	Subreddit string `json:"subreddit"`
	URL       string `json:"url"`
	IsSelf    bool   `json:"is_self"`
}

// Posts converts the listing children to posts, skipping self posts and
// entries without a url
func (l Listing) Posts() []models.Post {
	posts := make([]models.Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		d := child.Data
		if d.IsSelf || strings.TrimSpace(d.URL) == "" {
			continue
		}
		posts = append(posts, models.Post{Title: d.Title, Channel: d.Subreddit, URL: d.URL})
	}
	return posts
}

// flatPost is the plain export format; subreddit is accepted for channel
type flatPost struct {
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Subreddit string `json:"subreddit"`
	URL       string `json:"url"`
}

// Parse decodes a listing, an array of listings, or a flat array of posts
func Parse(data []byte) ([]models.Post, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		var l Listing
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("failed to parse listing: %w", err)
		}
		return l.Posts(), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse feed array: %w", err)
		}
		var posts []models.Post
		for i, item := range items {
			p, err := parseItem(item)
			if err != nil {
				return nil, fmt.Errorf("feed entry %d: %w", i, err)
			}
			posts = append(posts, p...)
		}
		return posts, nil
	default:
		return nil, fmt.Errorf("unrecognized feed format")
	}
}

func parseItem(item json.RawMessage) ([]models.Post, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(item, &probe); err != nil {
		return nil, err
	}

	if _, ok := probe["data"]; ok {
		var l Listing
		if err := json.Unmarshal(item, &l); err != nil {
			return nil, err
		}
		return l.Posts(), nil
	}

	var fp flatPost
	if err := json.Unmarshal(item, &fp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fp.URL) == "" {
		return nil, nil
	}
	channel := fp.Channel
	if channel == "" {
		channel = fp.Subreddit
	}
	return []models.Post{{Title: fp.Title, Channel: channel, URL: fp.URL}}, nil
}

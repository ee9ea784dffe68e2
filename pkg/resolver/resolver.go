// Package resolver turns post URLs into direct image URLs.
//
// Each supported site is one Resolver. A resolver that does not recognize a
// candidate returns no targets and no error; an error is only returned when a
// recognized page could not be fetched or parsed.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"wallgrab/pkg/logger"
	"wallgrab/pkg/models"
)

// Resolver is one site-specific strategy
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, c models.Candidate) ([]models.Target, error)
}

// PageFetcher loads and parses an HTML page
type PageFetcher interface {
	GetDocument(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Factory builds a named resolver
type Factory func(fetcher PageFetcher, log logger.Logger) Resolver

var factories = map[string]Factory{
	"direct":   func(PageFetcher, logger.Logger) Resolver { return NewDirect() },
	"imgur":    func(f PageFetcher, l logger.Logger) Resolver { return NewImgur(f) },
	"tumblr":   func(f PageFetcher, l logger.Logger) Resolver { return NewTumblr(f) },
	"wallbase": func(f PageFetcher, l logger.Logger) Resolver { return NewWallbase(f, l) },
}

// Available lists the built-in resolver names
func Available() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry tries resolvers in registration order
type Registry struct {
	resolvers []Resolver
	logger    logger.Logger
}

// NewRegistry creates a registry from resolvers, kept in the given order
func NewRegistry(log logger.Logger, resolvers ...Resolver) *Registry {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Registry{resolvers: resolvers, logger: log}
}

// Build creates a registry from resolver names
func Build(names []string, fetcher PageFetcher, log logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	reg := NewRegistry(log)
	for _, name := range names {
		factory, ok := factories[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown resolver %q (available: %s)", name, strings.Join(Available(), ", "))
		}
		reg.Register(factory(fetcher, log))
	}
	return reg, nil
}

// Register appends r to the registry
func (r *Registry) Register(res Resolver) {
	r.resolvers = append(r.resolvers, res)
}

// Names returns the registered resolver names in order
func (r *Registry) Names() []string {
	names := make([]string, len(r.resolvers))
	for i, res := range r.resolvers {
		names[i] = res.Name()
	}
	return names
}

// Name implements Resolver
func (r *Registry) Name() string {
	return "registry"
}

// Resolve returns the targets of the first resolver that produces any.
// The first error stops the search.
func (r *Registry) Resolve(ctx context.Context, c models.Candidate) ([]models.Target, error) {
	for _, res := range r.resolvers {
		targets, err := res.Resolve(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Name(), err)
		}
		if len(targets) > 0 {
			r.logger.DebugWithFields("Candidate resolved", map[string]interface{}{
				"resolver": res.Name(),
				"url":      c.URL,
				"targets":  len(targets),
			})
			return targets, nil
		}
	}
	return nil, nil
}

func target(c models.Candidate, rawURL string) models.Target {
	return models.Target{URL: rawURL, Channel: c.Channel, Title: c.Title}
}

// absolute resolves href against the document location
func absolute(doc *goquery.Document, href string) string {
	href = strings.TrimSpace(href)
	if doc.Url == nil || href == "" {
		return href
	}
	u, err := doc.Url.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}

// stripScheme returns rawURL without its scheme and leading slashes
func stripScheme(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		return strings.TrimPrefix(rawURL, u.Scheme+"://")
	}
	return strings.TrimPrefix(rawURL, "//")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

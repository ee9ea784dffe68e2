package models

import "strings"

// Post is a raw feed record as handed over by a feed source
type Post struct {
	Title   string `json:"title"`
	Channel string `json:"channel"`
	URL     string `json:"url"`
}

// Fields implements Entry
func (p Post) Fields() (string, string, string) {
	return p.Title, p.Channel, p.URL
}

// Entry is anything that can be normalized into a Candidate
type Entry interface {
	Fields() (title, channel, url string)
}

// Candidate is a normalized reference to one source post or one resolved image
type Candidate struct {
	Title       string `json:"title"`
	Channel     string `json:"channel"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentHash string `json:"content_hash,omitempty"`
}

// NewCandidate builds a Candidate and derives its filename from the URL
func NewCandidate(title, channel, rawURL string) Candidate {
	return Candidate{
		Title:    title,
		Channel:  channel,
		URL:      rawURL,
		Filename: DeriveFilename(rawURL),
	}
}

// Fields implements Entry
func (c Candidate) Fields() (string, string, string) {
	return c.Title, c.Channel, c.URL
}

// SetContentHash attaches the content hash. Only the first call has an effect.
func (c *Candidate) SetContentHash(hash string) bool {
	if c.ContentHash != "" || hash == "" {
		return false
	}
	c.ContentHash = hash
	return true
}

// Record converts a hashed candidate into its persisted form
func (c Candidate) Record() Record {
	return Record{
		Channel:     c.Channel,
		Title:       c.Title,
		URL:         c.URL,
		Filename:    c.Filename,
		ContentHash: c.ContentHash,
	}
}

// Normalize converts raw feed entries into candidates, keeping feed order.
// Entries that already are candidates pass through untouched.
func Normalize[T Entry](entries []T) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		if c, ok := any(entry).(Candidate); ok {
			candidates = append(candidates, c)
			continue
		}
		title, channel, rawURL := entry.Fields()
		candidates = append(candidates, NewCandidate(title, channel, strings.TrimSpace(rawURL)))
	}
	return candidates
}

// DeriveFilename returns the last path segment of rawURL, as written, with
// spaces replaced by underscores. Percent escapes are kept so an encoded
// slash never splits the name.
func DeriveFilename(rawURL string) string {
	path := rawURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segment := path[strings.LastIndex(path, "/")+1:]
	return strings.ReplaceAll(segment, " ", "_")
}

// Target is one direct image URL produced by a resolver
type Target struct {
	URL     string `json:"url"`
	Channel string `json:"channel"`
	Title   string `json:"title"`
}

// Candidate turns the target into a candidate for the per-image pipeline
func (t Target) Candidate() Candidate {
	return NewCandidate(t.Title, t.Channel, t.URL)
}

// Record is one successfully saved image, keyed by content hash
type Record struct {
	Channel     string `json:"channel"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentHash string `json:"content_hash"`
}

// Payload holds fetched bytes together with the declared content type
type Payload struct {
	URL         string
	ContentType string
	Data        []byte
}

package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wallgrab/pkg/media"
	"wallgrab/pkg/models"
)

// ImageMetadata is the JSON sidecar written next to a saved image
type ImageMetadata struct {
	// Source
	Title    string `json:"title"`
	Channel  string `json:"channel"`
	PostURL  string `json:"post_url"`
	ImageURL string `json:"image_url"`

	// Content
	ContentHash   string `json:"content_hash"`
	HashAlgorithm string `json:"hash_algorithm"`
	ContentType   string `json:"content_type,omitempty"`
	Format        string `json:"format"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	AspectRatio   string `json:"aspect_ratio"`
	FileSize      int64  `json:"file_size"`

	SavedAt time.Time `json:"saved_at"`
}

// New builds the sidecar for one saved target of a post
func New(post, target models.Candidate, info media.Info, algorithm, contentType string, size int64) *ImageMetadata {
	meta := &ImageMetadata{
		Title:         target.Title,
		Channel:       target.Channel,
		PostURL:       post.URL,
		ImageURL:      target.URL,
		ContentHash:   target.ContentHash,
		HashAlgorithm: algorithm,
		ContentType:   contentType,
		Format:        info.Format,
		Width:         info.Width,
		Height:        info.Height,
		FileSize:      size,
		SavedAt:       time.Now().UTC(),
	}
	meta.AspectRatio = meta.GetAspectRatio()
	return meta
}

// PathFor returns the sidecar location for an image
func PathFor(imagePath string) string {
	return imagePath + ".json"
}

// Save writes the metadata next to imagePath
func (m *ImageMetadata) Save(imagePath string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(PathFor(imagePath), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads the sidecar of imagePath
func Load(imagePath string) (*ImageMetadata, error) {
	data, err := os.ReadFile(PathFor(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta ImageMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// GetAspectRatio returns the aspect ratio as a string
func (m *ImageMetadata) GetAspectRatio() string {
	if m.Height == 0 {
		return "unknown"
	}

	ratio := float64(m.Width) / float64(m.Height)
	switch {
	case ratio > 2.3 && ratio < 2.4:
		return "21:9"
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.59 && ratio < 1.61:
		return "16:10"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}

// Exists checks if a sidecar exists for an image
func Exists(imagePath string) bool {
	_, err := os.Stat(PathFor(imagePath))
	return err == nil
}

// CleanOrphaned removes sidecars whose image is gone and returns how many were removed
func CleanOrphaned(directory string) (int, error) {
	removed := 0
	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		imagePath := strings.TrimSuffix(path, ".json")
		if !media.Accepts(contentTypeByExt(imagePath)) {
			return nil
		}
		if _, err := os.Stat(imagePath); os.IsNotExist(err) {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove orphaned metadata %s: %w", path, err)
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func contentTypeByExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	}
	return ""
}

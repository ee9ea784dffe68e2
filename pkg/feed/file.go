package feed

import (
	"context"
	"fmt"
	"io"
	"os"

	"wallgrab/pkg/models"
)

// FileSource reads a feed document from disk, or from Stdin when Path is "-"
type FileSource struct {
	Path  string
	Stdin io.Reader
}

// NewFileSource creates a file backed source
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, Stdin: os.Stdin}
}

// Posts implements Source
func (s *FileSource) Posts(ctx context.Context) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	if s.Path == "-" {
		data, err = io.ReadAll(s.Stdin)
	} else {
		data, err = os.ReadFile(s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", s.Path, err)
	}

	posts, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", s.Path, err)
	}
	return posts, nil
}

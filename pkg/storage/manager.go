package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager handles file storage operations for one output directory
type Manager struct {
	outputDir string
	saved     int
	mu        sync.Mutex
}

// NewManager creates a new storage manager, creating outputDir if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// SanitizeName reduces name to a single safe path element
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Path returns the final location for name inside the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, SanitizeName(name))
}

// Save writes data under name and returns the final path
func (m *Manager) Save(name string, data []byte) (string, error) {
	tmp, err := m.Stage(name, data)
	if err != nil {
		return "", err
	}
	return m.Commit(tmp, name)
}

// Stage writes data to a hidden temporary file in the output directory and
// returns its path. Nothing under name is touched until Commit.
func (m *Manager) Stage(name string, data []byte) (string, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	out, err := os.CreateTemp(m.outputDir, "."+clean+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := out.Name()

	_, err = out.Write(data)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}
	return tmp, nil
}

// Commit moves a staged file to its final name, replacing any file there
func (m *Manager) Commit(tmp, name string) (string, error) {
	clean := SanitizeName(name)
	if clean == "" {
		os.Remove(tmp)
		return "", fmt.Errorf("invalid file name %q", name)
	}
	filename := filepath.Join(m.outputDir, clean)

	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}
	if err := os.Chmod(filename, 0644); err != nil {
		return "", fmt.Errorf("failed to set file mode: %w", err)
	}

	m.mu.Lock()
	m.saved++
	m.mu.Unlock()
	return filename, nil
}

// Discard deletes a staged file that will not be committed
func (m *Manager) Discard(tmp string) error {
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to discard %s: %w", tmp, err)
	}
	return nil
}

// Remove deletes a file written by Save. A missing file is not an error.
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	m.mu.Lock()
	if m.saved > 0 {
		m.saved--
	}
	m.mu.Unlock()
	return nil
}

// Dir returns the output directory path
func (m *Manager) Dir() string {
	return m.outputDir
}

// SavedCount returns the number of files written and not removed by this manager
func (m *Manager) SavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

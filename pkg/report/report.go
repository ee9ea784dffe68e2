package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wallgrab/pkg/logger"
	"wallgrab/pkg/models"
)

const version = 1

// Entry is one candidate or target line of a report
type Entry struct {
	Status  models.Status `json:"status"`
	URL     string        `json:"url"`
	PostURL string        `json:"post_url,omitempty"`
	Channel string        `json:"channel,omitempty"`
	Title   string        `json:"title,omitempty"`
	Path    string        `json:"path,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Summary is the persisted form of one run
type Summary struct {
	Version     int                `json:"version"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Saved       int                `json:"saved"`
	Duplicates  int                `json:"duplicates"`
	Skipped     int                `json:"skipped"`
	Declined    int                `json:"declined"`
	Rejected    int                `json:"rejected"`
	Failed      int                `json:"failed"`
	Bytes       int64              `json:"bytes"`
	Interrupted bool               `json:"interrupted"`
	Handled     []models.Candidate `json:"handled"`
	Unhandled   []Entry            `json:"unhandled"`
	Outcomes    []Entry            `json:"outcomes"`
}

// Elapsed returns the run duration
func (s *Summary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// New builds a summary from a finished run. Unhandled candidates carry the
// first error recorded for them.
func New(result *models.Result, startedAt, finishedAt time.Time) *Summary {
	s := &Summary{
		Version:     version,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		Saved:       result.Saved,
		Duplicates:  result.Duplicates,
		Skipped:     result.Skipped,
		Declined:    result.Declined,
		Rejected:    result.Rejected,
		Failed:      result.Failed,
		Bytes:       result.Bytes,
		Interrupted: result.Interrupted,
		Handled:     append([]models.Candidate{}, result.Handled...),
		Unhandled:   make([]Entry, 0, len(result.Unhandled)),
		Outcomes:    make([]Entry, 0, len(result.Outcomes)),
	}

	firstErr := make(map[string]string)
	for _, o := range result.Outcomes {
		e := entryFor(o)
		s.Outcomes = append(s.Outcomes, e)
		if o.Err != nil {
			if _, ok := firstErr[o.Candidate.URL]; !ok {
				firstErr[o.Candidate.URL] = o.Err.Error()
			}
		}
	}

	for _, c := range result.Unhandled {
		s.Unhandled = append(s.Unhandled, Entry{
			Status:  models.StatusUnhandledError,
			URL:     c.URL,
			Channel: c.Channel,
			Title:   c.Title,
			Error:   firstErr[c.URL],
		})
	}

	return s
}

func entryFor(o models.Outcome) Entry {
	e := Entry{
		Status:  o.Status,
		URL:     o.URL(),
		Channel: o.Candidate.Channel,
		Title:   o.Candidate.Title,
		Path:    o.Path,
	}
	if o.Target != nil {
		e.PostURL = o.Candidate.URL
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

// Manager reads and writes the report file
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager creates a report manager for path
func NewManager(path string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{path: path, logger: log}
}

// Path returns the report location
func (m *Manager) Path() string {
	return m.path
}

// Save writes the summary atomically
func (m *Manager) Save(s *Summary) error {
	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary report file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync report file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close report file: %w", err)
	}

	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace report file: %w", err)
	}

	m.logger.DebugWithFields("Report saved", map[string]interface{}{
		"path":      m.path,
		"saved":     s.Saved,
		"unhandled": len(s.Unhandled),
	})
	return nil
}

// Load reads the report. A missing file returns nil without error.
func (m *Manager) Load() (*Summary, error) {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	var s Summary
	if err := json.NewDecoder(file).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &s, nil
}

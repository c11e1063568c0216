package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"postscope/pkg/logger"
)

const (
	indexVersion = 1
	// DefaultLimit bounds how many records the index keeps
	DefaultLimit = 500
)

// Record describes one finished job
type Record struct {
	JobID      string    `json:"job_id"`
	Username   string    `json:"username"`
	PostType   string    `json:"post_type"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	PostCount  int       `json:"post_count"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      []string  `json:"files,omitempty"`
}

// Duration is how long the job took from creation to finish
func (r Record) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.CreatedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.CreatedAt)
}

type index struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Records   []Record  `json:"records"`
}

// Store is a JSON file of job records, newest last on disk. All methods are
// safe for concurrent use within one process.
type Store struct {
	path   string
	limit  int
	logger logger.Logger
	mu     sync.Mutex
}

// NewStore opens the index at path. The file is created on first Append.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{path: path, limit: DefaultLimit, logger: log}
}

// SetLimit changes how many records are retained; older ones are dropped
// on the next Append
func (s *Store) SetLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.limit = n
	}
}

// Path returns the index location
func (s *Store) Path() string {
	return s.path
}

// Append adds a record. A record with the same job id replaces the old one.
func (s *Store) Append(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		return err
	}

	kept := idx.Records[:0]
	for _, existing := range idx.Records {
		if existing.JobID != r.JobID {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, r)
	if len(kept) > s.limit {
		kept = kept[len(kept)-s.limit:]
	}
	idx.Records = kept

	if err := s.save(idx); err != nil {
		return err
	}

	s.logger.DebugWithFields("History record saved", map[string]interface{}{
		"job_id":   r.JobID,
		"username": r.Username,
		"state":    r.State,
	})
	return nil
}

// List returns all records, most recently finished first
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	records := idx.Records
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FinishedAt.After(records[j].FinishedAt)
	})
	return records, nil
}

// ForUser returns the records for one account, most recent first
func (s *Store) ForUser(username string) ([]Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range all {
		if strings.EqualFold(r.Username, username) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Find returns the record for a job, or nil when there is none
func (s *Store) Find(jobID string) (*Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].JobID == jobID {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Clear removes the index file
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	s.logger.Info("History cleared")
	return nil
}

func (s *Store) load() (*index, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &index{Version: indexVersion, Records: []Record{}}, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var idx index
	if err := json.NewDecoder(file).Decode(&idx); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if idx.Records == nil {
		idx.Records = []Record{}
	}
	return &idx, nil
}

// save writes to a temp file and renames it over the index
func (s *Store) save(idx *index) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	idx.Version = indexVersion
	idx.UpdatedAt = time.Now().UTC()

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(idx); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync history file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close history file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// FileStore keeps both keys in one YAML document. Writes go to a temp file
// that is renamed over the original, so a crash leaves either the previous
// or the new document, never a partial one.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var errCorruptState = errors.New("parse state file")

type fileState struct {
	Location *models.LocationRecord `yaml:"location,omitempty"`
	Language string                 `yaml:"language,omitempty"`
}

// NewFileStore returns a FileStore writing to path. The parent directory is
// created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("state dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Location(ctx context.Context) (models.LocationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.readLocked()
	if err != nil || st.Location == nil {
		return models.LocationRecord{}, false, err
	}
	return *st.Location, true, nil
}

func (s *FileStore) SaveLocation(ctx context.Context, rec models.LocationRecord) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.readForWriteLocked()
	if err != nil {
		return err
	}
	st.Location = &rec
	return s.writeLocked(st)
}

func (s *FileStore) Language(ctx context.Context) (models.Language, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.readLocked()
	if err != nil || st.Language == "" {
		return "", false, err
	}
	return models.Language(st.Language), true, nil
}

func (s *FileStore) SaveLanguage(ctx context.Context, lang models.Language) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.readForWriteLocked()
	if err != nil {
		return err
	}
	st.Language = string(lang)
	return s.writeLocked(st)
}

// Ping checks that the state directory is writable. Used for health checks.
func (s *FileStore) Ping() error {
	f, err := os.CreateTemp(filepath.Dir(s.path), ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func (s *FileStore) readLocked() (fileState, error) {
	var st fileState
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read state file: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("%w: %v", errCorruptState, err)
	}
	return st, nil
}

// readForWriteLocked is readLocked for saves: a corrupt file is discarded
// and the save starts from an empty state, so the next write repairs it.
func (s *FileStore) readForWriteLocked() (fileState, error) {
	st, err := s.readLocked()
	if errors.Is(err, errCorruptState) {
		return fileState{}, nil
	}
	return st, err
}

func (s *FileStore) writeLocked(st fileState) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

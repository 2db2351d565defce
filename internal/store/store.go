package store

import (
	"context"
	"sync"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Key names of the two durable session values.
const (
	KeyLocation = "location"
	KeyLanguage = "language"
)

// Store persists the last-resolved location and the last-selected language.
// Both values are read once at startup and written on every change.
// Load methods return ok=false when the key has never been written.
type Store interface {
	Location(ctx context.Context) (models.LocationRecord, bool, error)
	SaveLocation(ctx context.Context, rec models.LocationRecord) error
	Language(ctx context.Context) (models.Language, bool, error)
	SaveLanguage(ctx context.Context, lang models.Language) error
}

// InMemoryStore keeps state for the life of the process only.
type InMemoryStore struct {
	mu       sync.RWMutex
	location *models.LocationRecord
	language models.Language
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Location(ctx context.Context) (models.LocationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.location == nil {
		return models.LocationRecord{}, false, nil
	}
	return *s.location, true, nil
}

func (s *InMemoryStore) SaveLocation(ctx context.Context, rec models.LocationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = &rec
	return nil
}

func (s *InMemoryStore) Language(ctx context.Context) (models.Language, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language, s.language != "", nil
}

func (s *InMemoryStore) SaveLanguage(ctx context.Context, lang models.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	return nil
}

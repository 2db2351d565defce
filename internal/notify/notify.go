// Package notify keeps the user-facing notification feed.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Level is the notification severity shown to the user.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is one feed entry.
type Notification struct {
	ID        string          `json:"id"`
	Level     Level           `json:"level"`
	Key       string          `json:"key"`
	Message   string          `json:"message"`
	Language  models.Language `json:"language"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Translator renders a message key in a language.
type Translator interface {
	Text(lang models.Language, key string) string
}

// Feed is a bounded, newest-first notification list.
type Feed struct {
	mu       sync.Mutex
	tr       Translator
	logger   *zap.Logger
	capacity int
	items    []Notification
	now      func() time.Time
}

// NewFeed returns a feed keeping at most capacity entries.
func NewFeed(tr Translator, capacity int, logger *zap.Logger) *Feed {
	if capacity <= 0 {
		capacity = 50
	}
	return &Feed{tr: tr, logger: logger, capacity: capacity, now: time.Now}
}

// Emit renders key in lang and appends it to the feed.
func (f *Feed) Emit(lang models.Language, level Level, key string) Notification {
	n := Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Key:       key,
		Message:   f.tr.Text(lang, key),
		Language:  lang,
		CreatedAt: f.now(),
	}

	f.mu.Lock()
	f.items = append(f.items, n)
	if len(f.items) > f.capacity {
		f.items = f.items[len(f.items)-f.capacity:]
	}
	f.mu.Unlock()

	f.logger.Info("notification emitted",
		zap.String("level", string(level)),
		zap.String("key", key),
		zap.String("language", string(lang)))
	return n
}

// List returns the feed, newest first.
func (f *Feed) List() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.items))
	for i, n := range f.items {
		out[len(f.items)-1-i] = n
	}
	return out
}

// Count returns the number of entries with the given key.
func (f *Feed) Count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := 0
	for _, n := range f.items {
		if n.Key == key {
			c++
		}
	}
	return c
}

// Package locale holds the active display language and the message catalog.
package locale

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/store"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

// Store changes the active language. Every change is persisted, bumps the
// revision and publishes LocaleChanged, in that order. Persisting ignores
// caller cancellation.
type Store struct {
	mu      sync.Mutex
	state   *session.State
	persist store.Store
	logger  *zap.Logger
}

// NewStore returns a Store writing through to persist.
func NewStore(state *session.State, persist store.Store, logger *zap.Logger) *Store {
	return &Store{state: state, persist: persist, logger: logger}
}

// Current returns the active language and revision.
func (s *Store) Current() models.LocaleState {
	return s.state.Snapshot().Locale
}

// SetLanguage switches to code. Selecting the active language is a no-op
// and returns the unchanged state.
func (s *Store) SetLanguage(ctx context.Context, code string) (models.LocaleState, error) {
	lang, ok := models.ParseLanguage(code)
	if !ok {
		return s.Current(), fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Snapshot().Locale
	if cur.ActiveLanguage == lang {
		return cur, nil
	}

	if err := s.persist.SaveLanguage(context.WithoutCancel(ctx), lang); err != nil {
		s.logger.Warn("persist language failed", zap.String("language", string(lang)), zap.Error(err))
	}

	next := models.LocaleState{ActiveLanguage: lang, Revision: cur.Revision + 1}
	observability.LocaleChangesTotal.WithLabelValues(string(lang)).Inc()
	s.logger.Info("language changed",
		zap.String("from", string(cur.ActiveLanguage)),
		zap.String("to", string(lang)),
		zap.Uint64("revision", next.Revision))

	s.state.SetLocale(ctx, next)
	return next, nil
}

// Package chat forwards farmer questions to the reference service and
// keeps a short history of recent queries.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
)

const (
	// MaxQueryRunes bounds a forwarded query.
	MaxQueryRunes = 500
	DefaultTopK   = 5
	MaxTopK       = 10
	historySize   = 6
)

var (
	ErrEmptyQuery = errors.New("empty query")
	// ErrQueryFailed wraps an error reported inside a service answer.
	ErrQueryFailed = errors.New("query failed")
)

// Labels renders catalog strings.
type Labels interface {
	Text(lang models.Language, key string) string
}

// Answer is a rendered reply.
type Answer struct {
	Query      string   `json:"query"`
	Text       string   `json:"text"`
	Crops      []string `json:"crops,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Elapsed    float64  `json:"elapsed"`
	Online     bool     `json:"online"`
}

// HistoryEntry is one past query.
type HistoryEntry struct {
	Query string    `json:"query"`
	At    time.Time `json:"at"`
}

// Service answers questions through the knowledge client.
type Service struct {
	kb     client.KnowledgeClient
	state  *session.State
	labels Labels
	logger *zap.Logger

	mu      sync.Mutex
	history []HistoryEntry
	now     func() time.Time
}

// NewService returns a chat service.
func NewService(kb client.KnowledgeClient, state *session.State, labels Labels, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{kb: kb, state: state, labels: labels, logger: logger, now: time.Now}
}

// Ask forwards query in the session's effective mode. topK outside 1..10
// is clamped, 0 meaning the default.
func (s *Service) Ask(ctx context.Context, query string, topK int) (Answer, error) {
	query = truncate(strings.TrimSpace(query), MaxQueryRunes)
	if query == "" {
		return Answer{}, ErrEmptyQuery
	}
	switch {
	case topK <= 0:
		topK = DefaultTopK
	case topK > MaxTopK:
		topK = MaxTopK
	}

	snap := s.state.Snapshot()
	online := snap.Connectivity.Online()
	resp, err := s.kb.Query(ctx, models.ChatRequest{Query: query, OnlineMode: online, TopK: topK})
	if err != nil {
		return Answer{}, err
	}
	if resp.Error != "" {
		return Answer{}, fmt.Errorf("%w: %s", ErrQueryFailed, resp.Error)
	}

	ans := Answer{Query: query, Elapsed: resp.Elapsed, Online: online}
	switch {
	case resp.OnlineAnswer != "":
		ans.Text = resp.OnlineAnswer
	case resp.OfflineAnswer != "":
		ans.Text = resp.OfflineAnswer
	default:
		ans.Text = s.labels.Text(snap.Locale.ActiveLanguage, "chat.no_results")
	}
	if len(resp.Results) > 0 {
		ans.Confidence = resp.Results[0].Confidence
		seen := map[string]bool{}
		for _, r := range resp.Results {
			if r.Crop != "" && !seen[r.Crop] {
				seen[r.Crop] = true
				ans.Crops = append(ans.Crops, r.Crop)
			}
		}
	}

	s.remember(query)
	observability.LoggerFrom(ctx, s.logger).Info("chat answered",
		zap.Bool("online", online),
		zap.Int("top_k", topK),
		zap.Int("results", len(resp.Results)),
	)
	return ans, nil
}

// History returns recent queries, newest first.
func (s *Service) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Service) remember(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]HistoryEntry{{Query: query, At: s.now()}}, s.history...)
	if len(s.history) > historySize {
		s.history = s.history[:historySize]
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

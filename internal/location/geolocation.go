package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

var (
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
	ErrPermissionDenied       = fmt.Errorf("%w: permission denied", ErrGeolocationUnavailable)
	ErrUnsupported            = fmt.Errorf("%w: unsupported", ErrGeolocationUnavailable)
	ErrPositionTimeout        = fmt.Errorf("%w: timeout", ErrGeolocationUnavailable)
)

// PositionOptions bound a position request.
type PositionOptions struct {
	// Timeout is the longest the caller waits for a fresh fix.
	Timeout time.Duration
	// MaximumAge is the oldest cached fix accepted without waiting.
	MaximumAge time.Duration
}

// Geolocator is the device "get current position" capability.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (models.Position, error)
}

// ReportedPositions is a Geolocator fed by the client runtime. The runtime
// posts fixes or capability errors; CurrentPosition serves a cached fix
// when recent enough and otherwise waits for the next report.
type ReportedPositions struct {
	mu       sync.Mutex
	last     models.Position
	lastAt   time.Time
	hasFix   bool
	err      error
	reported chan struct{}
	now      func() time.Time
}

// NewReportedPositions returns an empty source.
func NewReportedPositions() *ReportedPositions {
	return &ReportedPositions{reported: make(chan struct{}), now: time.Now}
}

// Report records a fix and wakes waiting callers.
func (g *ReportedPositions) Report(pos models.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last, g.lastAt, g.hasFix, g.err = pos, g.now(), true, nil
	g.wakeLocked()
}

// ReportError records a capability failure (ErrPermissionDenied or
// ErrUnsupported). It sticks until the next fix.
func (g *ReportedPositions) ReportError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	g.wakeLocked()
}

func (g *ReportedPositions) wakeLocked() {
	close(g.reported)
	g.reported = make(chan struct{})
}

func (g *ReportedPositions) CurrentPosition(ctx context.Context, opts PositionOptions) (models.Position, error) {
	g.mu.Lock()
	if g.err != nil {
		err := g.err
		g.mu.Unlock()
		return models.Position{}, err
	}
	if g.hasFix && g.now().Sub(g.lastAt) <= opts.MaximumAge {
		pos := g.last
		g.mu.Unlock()
		return pos, nil
	}
	wait := g.reported
	g.mu.Unlock()

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()
	select {
	case <-wait:
	case <-timer.C:
		return models.Position{}, ErrPositionTimeout
	case <-ctx.Done():
		return models.Position{}, fmt.Errorf("%w: %v", ErrPositionTimeout, ctx.Err())
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return models.Position{}, g.err
	}
	return g.last, nil
}

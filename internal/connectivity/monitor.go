// Package connectivity derives the effective online/offline mode from
// client-reported reachability and the user's mode toggle.
package connectivity

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/notify"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
)

// ErrUnreachable is returned when the user asks for Online mode while the
// device reports no reachability. State is left unchanged.
var ErrUnreachable = errors.New("device unreachable")

// Notification keys emitted by the monitor.
const (
	KeyLost           = "notify.offline"
	KeyRegained       = "notify.online"
	KeyToggleRejected = "notify.toggle_rejected"
	KeyModeOnline     = "notify.mode_online"
	KeyModeOffline    = "notify.mode_offline"
)

// Notifier receives user-facing notifications.
type Notifier interface {
	Emit(lang models.Language, level notify.Level, key string) notify.Notification
}

// Monitor is the only writer of the connectivity axis. Reachability
// signals are trusted as-is; the monitor never probes the network.
type Monitor struct {
	mu     sync.Mutex
	state  *session.State
	notes  Notifier
	logger *zap.Logger
}

// NewMonitor returns a Monitor writing to state.
func NewMonitor(state *session.State, notes Notifier, logger *zap.Logger) *Monitor {
	return &Monitor{state: state, notes: notes, logger: logger}
}

// State returns the current connectivity state.
func (m *Monitor) State() models.ConnectivityState {
	return m.state.Snapshot().Connectivity
}

// ReachabilityLost handles a "lost reachability" signal. Repeated signals
// while already unreachable are ignored.
func (m *Monitor) ReachabilityLost(ctx context.Context) models.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.state.Snapshot()
	if !snap.Connectivity.DeviceReachable {
		return snap.Connectivity
	}
	next := models.ConnectivityState{DeviceReachable: false, EffectiveMode: models.ModeOffline}
	m.notes.Emit(snap.Locale.ActiveLanguage, notify.LevelWarning, KeyLost)
	m.apply(ctx, snap.Connectivity, next, "reachability_lost")
	return next
}

// ReachabilityRegained handles a "regained reachability" signal and
// restores Online mode.
func (m *Monitor) ReachabilityRegained(ctx context.Context) models.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.state.Snapshot()
	if snap.Connectivity.DeviceReachable {
		return snap.Connectivity
	}
	next := models.ConnectivityState{DeviceReachable: true, EffectiveMode: models.ModeOnline}
	m.notes.Emit(snap.Locale.ActiveLanguage, notify.LevelInfo, KeyRegained)
	m.apply(ctx, snap.Connectivity, next, "reachability_regained")
	return next
}

// Report routes a raw reachability signal.
func (m *Monitor) Report(ctx context.Context, reachable bool) models.ConnectivityState {
	if reachable {
		return m.ReachabilityRegained(ctx)
	}
	return m.ReachabilityLost(ctx)
}

// SetMode applies a user toggle. Switching to Online while unreachable
// returns ErrUnreachable, leaves state unchanged and emits one warning.
// Requesting the current mode is a no-op.
func (m *Monitor) SetMode(ctx context.Context, mode models.Mode) (models.ConnectivityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setModeLocked(ctx, mode)
}

// Toggle flips the effective mode. The target is read under the same lock
// that applies it, so two concurrent toggles flip twice.
func (m *Monitor) Toggle(ctx context.Context) (models.ConnectivityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := models.ModeOnline
	if m.state.Snapshot().Connectivity.EffectiveMode == models.ModeOnline {
		target = models.ModeOffline
	}
	return m.setModeLocked(ctx, target)
}

func (m *Monitor) setModeLocked(ctx context.Context, mode models.Mode) (models.ConnectivityState, error) {
	snap := m.state.Snapshot()
	cur := snap.Connectivity
	lang := snap.Locale.ActiveLanguage

	if mode == models.ModeOnline && !cur.DeviceReachable {
		observability.ConnectivityToggleRejectedTotal.Inc()
		m.notes.Emit(lang, notify.LevelWarning, KeyToggleRejected)
		m.logger.Warn("online toggle rejected", zap.Bool("device_reachable", false))
		return cur, ErrUnreachable
	}
	if mode == cur.EffectiveMode {
		return cur, nil
	}

	next := models.ConnectivityState{
		DeviceReachable:     cur.DeviceReachable,
		EffectiveMode:       mode,
		UserOverridePending: mode == models.ModeOffline && cur.DeviceReachable,
	}
	key := KeyModeOnline
	if mode == models.ModeOffline {
		key = KeyModeOffline
	}
	m.notes.Emit(lang, notify.LevelInfo, key)
	m.apply(ctx, cur, next, "user_toggle")
	return next, nil
}

func (m *Monitor) apply(ctx context.Context, prev, next models.ConnectivityState, cause string) {
	m.logger.Info("connectivity changed",
		zap.String("cause", cause),
		zap.String("from", string(prev.EffectiveMode)),
		zap.String("to", string(next.EffectiveMode)),
		zap.Bool("device_reachable", next.DeviceReachable))
	if prev.EffectiveMode != next.EffectiveMode {
		observability.RecordConnectivityTransition(string(prev.EffectiveMode), string(next.EffectiveMode))
	}
	m.state.SetConnectivity(ctx, next)
}

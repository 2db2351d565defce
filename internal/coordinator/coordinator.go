// Package coordinator dispatches widget refreshes when a session axis
// changes. Each widget owns its fetch-or-fallback; one widget's failure
// never touches another's region.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/pagegate"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/traffic"
	"github.com/kjstillabower/krishi-dashboard/internal/widget"
)

// Trigger labels.
const (
	TriggerLocation     = "location"
	TriggerLocale       = "locale"
	TriggerConnectivity = "connectivity"
	TriggerRetry        = "retry"
	TriggerNavigation   = "navigation"
	TriggerVisibility   = "visibility"
	TriggerStartup      = "startup"
)

var (
	// ErrUnknownWidget is returned for a widget id that is not registered.
	ErrUnknownWidget = errors.New("unknown widget")
	// ErrNotTogglable is returned when hiding a widget that is always shown.
	ErrNotTogglable = errors.New("widget visibility cannot be changed")
)

var (
	locationSet = []models.WidgetID{
		models.WidgetWeather,
		models.WidgetSeasonalTip,
		models.WidgetMarketTicker,
		models.WidgetHeroBanner,
	}
	// panels refresh on location change only while visible.
	panels = []models.WidgetID{
		models.WidgetPricePrediction,
		models.WidgetPriceAdvisory,
	}
	localeSet = []models.WidgetID{
		models.WidgetHeroBanner,
		models.WidgetCropCalendar,
		models.WidgetPopularQuestions,
	}
	reconnectSet = []models.WidgetID{
		models.WidgetWeather,
		models.WidgetMarketTicker,
	}
)

// Messages renders fallback text.
type Messages interface {
	Text(lang models.Language, key string) string
	Fallback(lang models.Language, id models.WidgetID) string
}

// Coordinator maps session events to widget refreshes.
type Coordinator struct {
	state   *session.State
	gate    *pagegate.Gate
	board   *widget.Board
	msgs    Messages
	logger  *zap.Logger
	widgets map[models.WidgetID]widget.Widget

	mu      sync.Mutex
	visible map[models.WidgetID]bool
}

// New returns a coordinator over widgets. Both price panels start visible.
func New(state *session.State, gate *pagegate.Gate, board *widget.Board, msgs Messages, logger *zap.Logger, widgets ...widget.Widget) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		state:   state,
		gate:    gate,
		board:   board,
		msgs:    msgs,
		logger:  logger,
		widgets: make(map[models.WidgetID]widget.Widget, len(widgets)),
		visible: make(map[models.WidgetID]bool, len(panels)),
	}
	for _, w := range widgets {
		c.widgets[w.ID()] = w
	}
	for _, id := range panels {
		c.visible[id] = true
	}
	return c
}

// Start subscribes to session events. The returned function unsubscribes.
func (c *Coordinator) Start() (stop func()) {
	return c.state.Subscribe(c.handle)
}

func (c *Coordinator) handle(ctx context.Context, ev session.Event) {
	var ids []models.WidgetID
	trigger := ev.Kind.String()
	switch ev.Kind {
	case session.LocationChanged:
		ids = append(ids, locationSet...)
		ids = append(ids, c.visiblePanels()...)
		ids = append(ids, c.gate.InvalidateRegional()...)
	case session.LocaleChanged:
		ids = append(ids, localeSet...)
		ids = append(ids, c.gate.InvalidateAll()...)
	case session.ConnectivityChanged:
		// Going offline refreshes nothing; the next network-bound fetch
		// takes its fallback.
		if ev.To == models.ModeOnline {
			ids = append(ids, reconnectSet...)
		}
	}
	c.dispatch(ctx, trigger, ev.Snapshot, ids)
}

// Retry refreshes one widget through the same path as automatic triggers.
func (c *Coordinator) Retry(ctx context.Context, id models.WidgetID) error {
	if _, ok := c.widgets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	c.dispatch(ctx, TriggerRetry, c.state.Snapshot(), []models.WidgetID{id})
	return nil
}

// Navigate activates page and, on a lazy page's first visit since it was
// last invalidated, fetches its content.
func (c *Coordinator) Navigate(ctx context.Context, page models.Page) pagegate.Visit {
	v := c.gate.Visit(page)
	if v.Fetch {
		c.dispatch(ctx, TriggerNavigation, c.state.Snapshot(), []models.WidgetID{v.Widget})
	}
	return v
}

// SetPanelVisible shows or hides a price panel. A panel becoming visible
// with stale content refreshes at once.
func (c *Coordinator) SetPanelVisible(ctx context.Context, id models.WidgetID, visible bool) error {
	c.mu.Lock()
	was, ok := c.visible[id]
	if ok {
		c.visible[id] = visible
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTogglable, id)
	}

	snap := c.state.Snapshot()
	if visible && !was && c.board.Stale(id, snap) {
		c.dispatch(ctx, TriggerVisibility, snap, []models.WidgetID{id})
	}
	return nil
}

// Visible reports whether a widget is currently shown.
func (c *Coordinator) Visible(id models.WidgetID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.visible[id]
	return !ok || v
}

// RefreshAll refreshes every visible dashboard widget.
func (c *Coordinator) RefreshAll(ctx context.Context, trigger string) {
	ids := make([]models.WidgetID, 0, len(widget.Dashboard))
	for _, id := range widget.Dashboard {
		if c.Visible(id) {
			ids = append(ids, id)
		}
	}
	c.dispatch(ctx, trigger, c.state.Snapshot(), ids)
}

func (c *Coordinator) visiblePanels() []models.WidgetID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.WidgetID
	for _, id := range panels {
		if c.visible[id] {
			out = append(out, id)
		}
	}
	return out
}

// dispatch runs each distinct widget in ids concurrently against snap and
// waits for all of them. Fetches are not cancelled when ctx is: a
// superseded refresh completes and writes its result.
func (c *Coordinator) dispatch(ctx context.Context, trigger string, snap session.Snapshot, ids []models.WidgetID) {
	if len(ids) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	logger := observability.LoggerFrom(ctx, c.logger)

	seen := make(map[models.WidgetID]bool, len(ids))
	var g errgroup.Group
	for _, id := range ids {
		w, ok := c.widgets[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		req := widget.Request{Snapshot: snap, Trigger: trigger}
		g.Go(func() error {
			c.refresh(ctx, logger, w, req)
			return nil
		})
	}
	_ = g.Wait()
	logger.Debug("dispatch complete",
		zap.String("trigger", trigger),
		zap.Int("widgets", len(seen)),
	)
}

func (c *Coordinator) refresh(ctx context.Context, logger *zap.Logger, w widget.Widget, req widget.Request) {
	start := time.Now()
	id := w.ID()
	content, err := fetch(ctx, w, req)
	elapsed := time.Since(start).Seconds()

	if err == nil {
		c.board.Write(id, models.RegionOK, content, "", req.Snapshot)
		traffic.RecordSuccess()
		observability.RecordWidgetRefresh(string(id), req.Trigger, false, "", elapsed)
		return
	}

	category := client.CategorizeError(err)
	lang := req.Language()
	msg := c.msgs.Fallback(lang, id)
	if category == client.ErrorCategoryOffline {
		msg += " " + c.msgs.Text(lang, "fallback.offline_suffix")
	} else {
		traffic.RecordFallback()
	}
	c.board.Write(id, models.RegionFallback, w.Fallback(req), msg, req.Snapshot)
	observability.RecordWidgetRefresh(string(id), req.Trigger, true, string(category), elapsed)

	fields := []zap.Field{
		zap.String("widget", string(id)),
		zap.String("trigger", req.Trigger),
		zap.String("category", string(category)),
		zap.Error(err),
	}
	if category == client.ErrorCategoryOffline {
		logger.Debug("widget fallback", fields...)
		return
	}
	logger.Warn("widget fallback", fields...)
}

// fetch runs w.Fetch unless w needs the network while offline. A panic
// becomes ErrWidgetPanic.
func fetch(ctx context.Context, w widget.Widget, req widget.Request) (content any, err error) {
	if w.NetworkBound() && !req.Snapshot.Connectivity.Online() {
		return nil, client.ErrOffline
	}
	defer func() {
		if r := recover(); r != nil {
			content, err = nil, fmt.Errorf("%w: %v", client.ErrWidgetPanic, r)
		}
	}()
	return w.Fetch(ctx, req)
}

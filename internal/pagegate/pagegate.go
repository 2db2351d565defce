// Package pagegate defers a sub-page's first content fetch until the page
// is first visited.
package pagegate

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
)

// Reason says why a lazy page is fetched.
type Reason string

const (
	ReasonFirstVisit  Reason = "first_visit"
	ReasonInvalidated Reason = "invalidated"
)

// Visit is the outcome of navigating to a page.
type Visit struct {
	Page     models.Page
	Previous models.Page
	// Fetch is true when the page content widget must be dispatched now.
	Fetch  bool
	Widget models.WidgetID
	Reason Reason
}

// PageState is the gate state of one lazy page.
type PageState struct {
	Page   models.Page `json:"page"`
	Loaded bool        `json:"loaded"`
	Active bool        `json:"active"`
}

// Gate tracks the active page and which lazy pages are loaded. A page is
// marked loaded when its fetch is dispatched, so a failed fetch stays
// loaded with fallback content until invalidated.
type Gate struct {
	mu          sync.Mutex
	active      models.Page
	loaded      map[models.Page]bool
	invalidated map[models.Page]bool
	logger      *zap.Logger
}

// New returns a gate with the home page active and every lazy page unloaded.
func New(logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		active:      models.PageHome,
		loaded:      make(map[models.Page]bool, len(models.LazyPages)),
		invalidated: make(map[models.Page]bool, len(models.LazyPages)),
		logger:      logger,
	}
}

// Visit makes page active. Navigating to a loaded page, or to a page that
// is not lazy, never fetches.
func (g *Gate) Visit(page models.Page) Visit {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := Visit{Page: page, Previous: g.active}
	g.active = page

	id, lazy := models.PageWidget(page)
	if !lazy || g.loaded[page] {
		return v
	}
	v.Fetch, v.Widget, v.Reason = true, id, g.loadLocked(page)
	g.logger.Debug("lazy page load",
		zap.String("page", string(page)),
		zap.String("reason", string(v.Reason)),
	)
	return v
}

// InvalidateAll unloads every lazy page. The active page, if lazy, is
// reloaded at once and its content widget returned for dispatch.
func (g *Gate) InvalidateAll() []models.WidgetID {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range models.LazyPages {
		g.unloadLocked(p)
	}
	return g.reloadActiveLocked()
}

// InvalidateRegional unloads the region-scoped prediction page.
func (g *Gate) InvalidateRegional() []models.WidgetID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unloadLocked(models.PagePrediction)
	if g.active != models.PagePrediction {
		return nil
	}
	return g.reloadActiveLocked()
}

// Active returns the active page.
func (g *Gate) Active() models.Page {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Loaded reports whether page has been fetched since it was last invalidated.
func (g *Gate) Loaded(page models.Page) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loaded[page]
}

// States returns every lazy page's state in navigation order.
func (g *Gate) States() []PageState {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PageState, 0, len(models.LazyPages))
	for _, p := range models.LazyPages {
		out = append(out, PageState{Page: p, Loaded: g.loaded[p], Active: p == g.active})
	}
	return out
}

func (g *Gate) unloadLocked(p models.Page) {
	if g.loaded[p] {
		g.loaded[p] = false
		g.invalidated[p] = true
	}
}

func (g *Gate) reloadActiveLocked() []models.WidgetID {
	id, lazy := models.PageWidget(g.active)
	if !lazy || g.loaded[g.active] {
		return nil
	}
	g.loadLocked(g.active)
	return []models.WidgetID{id}
}

func (g *Gate) loadLocked(p models.Page) Reason {
	reason := ReasonFirstVisit
	if g.invalidated[p] {
		reason = ReasonInvalidated
	}
	g.loaded[p] = true
	g.invalidated[p] = false
	observability.LazyPageLoadsTotal.WithLabelValues(string(p), string(reason)).Inc()
	return reason
}

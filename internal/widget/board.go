package widget

import (
	"sort"
	"sync"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
)

// Board holds one region per widget. Writes are last-writer-wins: a
// superseded refresh that finishes late overwrites newer content.
type Board struct {
	mu      sync.RWMutex
	order   map[models.WidgetID]int
	regions map[models.WidgetID]models.Region
	now     func() time.Time
}

// NewBoard returns a board with a pending region for each id.
func NewBoard(ids ...models.WidgetID) *Board {
	b := &Board{
		order:   make(map[models.WidgetID]int, len(ids)),
		regions: make(map[models.WidgetID]models.Region, len(ids)),
		now:     time.Now,
	}
	for i, id := range ids {
		b.order[id] = i
		b.regions[id] = models.Region{Widget: id, Status: models.RegionPending}
	}
	return b
}

// Write replaces the region for id and records the snapshot that produced it.
func (b *Board) Write(id models.WidgetID, status models.RegionStatus, content any, message string, snap session.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.order[id]; !ok {
		b.order[id] = len(b.order)
	}
	b.regions[id] = models.Region{
		Widget:    id,
		Status:    status,
		Content:   content,
		Message:   message,
		UpdatedAt: b.now(),
		Load: models.WidgetLoadState{
			Loaded:             true,
			LastLocationUsed:   snap.Location,
			LastLocaleUsed:     snap.Locale.ActiveLanguage,
			LastLocaleRevision: snap.Locale.Revision,
		},
	}
}

// Get returns the region for id.
func (b *Board) Get(id models.WidgetID) (models.Region, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.regions[id]
	return r, ok
}

// All returns every region in registration order.
func (b *Board) All() []models.Region {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Region, 0, len(b.regions))
	for _, r := range b.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return b.order[out[i].Widget] < b.order[out[j].Widget] })
	return out
}

// Stale reports whether the region was produced for a different location
// or locale revision than snap. Never-written regions are stale.
func (b *Board) Stale(id models.WidgetID, snap session.Snapshot) bool {
	r, ok := b.Get(id)
	if !ok || !r.Load.Loaded {
		return true
	}
	return r.Load.LastLocationUsed != snap.Location || r.Load.LastLocaleRevision != snap.Locale.Revision
}

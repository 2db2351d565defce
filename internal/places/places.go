package places

import (
	"math"
	"strings"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Lookup resolves coordinates and names against a set of known places.
type Lookup interface {
	// Nearest returns the place closest to (lat, lon).
	Nearest(lat, lon float64) models.KnownPlace
	// ByName returns the place with the given name (case-insensitive).
	ByName(name string) (models.KnownPlace, bool)
	// All returns every place in iteration order.
	All() []models.KnownPlace
}

// Table is a Lookup over a fixed slice. Iteration order is slice order and
// decides ties in Nearest.
type Table struct {
	places []models.KnownPlace
}

// NewTable returns a Table over places. The slice is copied.
func NewTable(places []models.KnownPlace) *Table {
	cp := make([]models.KnownPlace, len(places))
	copy(cp, places)
	return &Table{places: cp}
}

// Default returns the built-in reference table.
func Default() *Table {
	return NewTable(knownPlaces)
}

// Nearest uses planar Euclidean distance over (lat, lon). No geodesic
// correction is applied; at city granularity within one country the ranking
// is the same. The first place wins a tie. Returns the zero place when the
// table is empty.
func (t *Table) Nearest(lat, lon float64) models.KnownPlace {
	var best models.KnownPlace
	bestDist := math.Inf(1)
	for _, p := range t.places {
		dLat, dLon := p.Latitude-lat, p.Longitude-lon
		d := math.Sqrt(dLat*dLat + dLon*dLon)
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// ByName implements Lookup.
func (t *Table) ByName(name string) (models.KnownPlace, bool) {
	name = strings.TrimSpace(name)
	for _, p := range t.places {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return models.KnownPlace{}, false
}

// All implements Lookup.
func (t *Table) All() []models.KnownPlace {
	cp := make([]models.KnownPlace, len(t.places))
	copy(cp, t.places)
	return cp
}

// Regions returns the distinct regions in first-seen order.
func (t *Table) Regions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range t.places {
		if _, ok := seen[p.Region]; ok {
			continue
		}
		seen[p.Region] = struct{}{}
		out = append(out, p.Region)
	}
	return out
}

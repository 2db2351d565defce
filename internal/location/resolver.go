// Package location turns device positions and manual selections into the
// canonical LocationRecord.
package location

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/places"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/store"
)

// Source says where a resolved record came from. Used as a metric label.
type Source string

const (
	SourceGeolocation    Source = "geolocation"
	SourceReverseGeocode Source = "reverse_geocode"
	SourceDefault        Source = "default"
	SourceManual         Source = "manual"
)

// Options configure a Resolver.
type Options struct {
	// Position bounds the device geolocation wait.
	Position PositionOptions
	// DefaultPlace is used whenever geolocation fails.
	DefaultPlace models.KnownPlace
}

// Resolver resolves, persists and publishes the session location. The
// geolocation wait runs unlocked; commits are serialized so the persisted
// record and the published one always match.
type Resolver struct {
	mu       sync.Mutex
	geo      Geolocator
	geocoder client.ReverseGeocoder
	places   places.Lookup
	persist  store.Store
	state    *session.State
	opts     Options
	logger   *zap.Logger
}

// NewResolver returns a Resolver. geocoder may be nil.
func NewResolver(geo Geolocator, geocoder client.ReverseGeocoder, lookup places.Lookup, persist store.Store, state *session.State, opts Options, logger *zap.Logger) *Resolver {
	if opts.Position.Timeout <= 0 {
		opts.Position.Timeout = 8 * time.Second
	}
	if opts.Position.MaximumAge <= 0 {
		opts.Position.MaximumAge = 5 * time.Minute
	}
	return &Resolver{
		geo:      geo,
		geocoder: geocoder,
		places:   lookup,
		persist:  persist,
		state:    state,
		opts:     opts,
		logger:   logger,
	}
}

// Resolve queries device geolocation and falls back silently to the
// default place on any failure. The reverse-geocoded name is preferred
// when present; the nearest known place always supplies the region.
func (r *Resolver) Resolve(ctx context.Context) (models.LocationRecord, Source) {
	pos, err := r.geo.CurrentPosition(ctx, r.opts.Position)
	if err != nil {
		r.logger.Info("geolocation unavailable, using default location",
			zap.String("default", r.opts.DefaultPlace.Name), zap.Error(err))
		rec := r.opts.DefaultPlace.Record()
		r.commit(ctx, rec, SourceDefault)
		return rec, SourceDefault
	}

	nearest := r.places.Nearest(pos.Latitude, pos.Longitude)
	name, source := r.reverseGeocode(ctx, pos), SourceReverseGeocode
	if name == "" {
		name, source = nearest.Name, SourceGeolocation
	}
	rec := models.LocationRecord{
		Name:      name,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Region:    nearest.Region,
	}
	r.commit(ctx, rec, source)
	return rec, source
}

func (r *Resolver) reverseGeocode(ctx context.Context, pos models.Position) string {
	if r.geocoder == nil {
		return ""
	}
	name, err := r.geocoder.Reverse(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		r.logger.Debug("reverse geocode failed",
			zap.String("category", string(client.CategorizeError(err))), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(name)
}

// SelectLocation sets the location explicitly. The region comes from the
// known place with a matching name, else from the place nearest (lat, lon).
func (r *Resolver) SelectLocation(ctx context.Context, name string, lat, lon float64) models.LocationRecord {
	place, ok := r.places.ByName(name)
	if !ok {
		place = r.places.Nearest(lat, lon)
	}
	rec := models.LocationRecord{
		Name:      strings.TrimSpace(name),
		Latitude:  lat,
		Longitude: lon,
		Region:    place.Region,
	}
	r.commit(ctx, rec, SourceManual)
	return rec
}

// commit persists rec, then publishes it. The write ignores caller
// cancellation: a published location is always a persisted one.
func (r *Resolver) commit(ctx context.Context, rec models.LocationRecord, source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persist.SaveLocation(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Warn("persist location failed", zap.String("location", rec.Name), zap.Error(err))
	}
	observability.LocationResolutionsTotal.WithLabelValues(string(source)).Inc()
	r.logger.Info("location resolved",
		zap.String("location", rec.Name),
		zap.String("region", rec.Region),
		zap.String("source", string(source)))
	r.state.SetLocation(ctx, rec)
}

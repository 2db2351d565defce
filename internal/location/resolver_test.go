package location

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/places"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/store"
)

type fakeGeo struct {
	pos   models.Position
	err   error
	calls int
}

func (g *fakeGeo) CurrentPosition(ctx context.Context, opts PositionOptions) (models.Position, error) {
	g.calls++
	return g.pos, g.err
}

type fakeGeocoder struct {
	name string
	err  error
}

func (g *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	return g.name, g.err
}

var delhi = models.KnownPlace{Name: "New Delhi", Latitude: 28.6139, Longitude: 77.2090, Region: "Delhi"}

type harness struct {
	r       *Resolver
	persist *store.InMemoryStore
	events  []session.Event
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, geo Geolocator, geocoder *fakeGeocoder) *harness {
	t.Helper()
	h := &harness{persist: store.NewInMemoryStore()}
	st := session.New(session.Snapshot{})
	st.Subscribe(func(_ context.Context, ev session.Event) { h.events = append(h.events, ev) })
	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs
	var gc client.ReverseGeocoder
	if geocoder != nil {
		gc = geocoder
	}
	h.r = NewResolver(geo, gc, places.Default(), h.persist, st, Options{DefaultPlace: delhi}, zap.New(core))
	return h
}

func TestResolver_Resolve_NoReverseMatchUsesNearestPlace(t *testing.T) {
	h := newHarness(t, &fakeGeo{pos: models.Position{Latitude: 19.07, Longitude: 72.87}}, &fakeGeocoder{})

	rec, src := h.r.Resolve(context.Background())
	if src != SourceGeolocation {
		t.Errorf("source = %s, want geolocation", src)
	}
	if rec.Name != "Mumbai" || rec.Region != "Maharashtra" {
		t.Errorf("Resolve() = %+v, want Mumbai/Maharashtra", rec)
	}
	stored, ok, _ := h.persist.Location(context.Background())
	if !ok || stored != rec {
		t.Errorf("persisted = %+v, %v; want %+v", stored, ok, rec)
	}
	if len(h.events) != 1 || h.events[0].Kind != session.LocationChanged {
		t.Errorf("events = %+v", h.events)
	}
}

func TestResolver_Resolve_Idempotent(t *testing.T) {
	h := newHarness(t, &fakeGeo{pos: models.Position{Latitude: 18.6, Longitude: 73.8}}, &fakeGeocoder{name: "Pimpri"})
	ctx := context.Background()

	first, _ := h.r.Resolve(ctx)
	p1, _, _ := h.persist.Location(ctx)
	second, _ := h.r.Resolve(ctx)
	p2, _, _ := h.persist.Location(ctx)

	if first != second || p1 != p2 {
		t.Errorf("records differ: %+v vs %+v", p1, p2)
	}
}

func TestResolver_Resolve_PrefersReverseGeocodedName(t *testing.T) {
	h := newHarness(t, &fakeGeo{pos: models.Position{Latitude: 19.07, Longitude: 72.87}}, &fakeGeocoder{name: " Bandra "})

	rec, src := h.r.Resolve(context.Background())
	if src != SourceReverseGeocode {
		t.Errorf("source = %s, want reverse_geocode", src)
	}
	if rec.Name != "Bandra" || rec.Region != "Maharashtra" {
		t.Errorf("Resolve() = %+v, want Bandra with nearest region", rec)
	}
	if rec.Latitude != 19.07 || rec.Longitude != 72.87 {
		t.Errorf("coordinates = %v,%v, want device position", rec.Latitude, rec.Longitude)
	}
}

func TestResolver_Resolve_GeocoderErrorIsSwallowed(t *testing.T) {
	h := newHarness(t, &fakeGeo{pos: models.Position{Latitude: 19.07, Longitude: 72.87}}, &fakeGeocoder{err: errors.New("connection refused")})

	rec, _ := h.r.Resolve(context.Background())
	if rec.Name != "Mumbai" {
		t.Errorf("Name = %q, want Mumbai", rec.Name)
	}
	if h.logs.FilterMessage("reverse geocode failed").Len() != 1 {
		t.Error("expected a passive reverse geocode log entry")
	}
}

func TestResolver_Resolve_GeolocationFailuresFallBackToDefault(t *testing.T) {
	for _, err := range []error{ErrPermissionDenied, ErrUnsupported, ErrPositionTimeout} {
		t.Run(err.Error(), func(t *testing.T) {
			h := newHarness(t, &fakeGeo{err: err}, &fakeGeocoder{name: "unused"})

			rec, src := h.r.Resolve(context.Background())
			if src != SourceDefault || rec != delhi.Record() {
				t.Errorf("Resolve() = %+v (%s), want default", rec, src)
			}
			if h.logs.FilterMessage("geolocation unavailable, using default location").Len() != 1 {
				t.Error("expected passive fallback log entry")
			}
			if len(h.events) != 1 {
				t.Errorf("events = %d, want 1", len(h.events))
			}
		})
	}
}

func TestResolver_Resolve_ReportedSourceTimesOut(t *testing.T) {
	src := NewReportedPositions()
	h := newHarness(t, src, nil)
	h.r.opts.Position = PositionOptions{Timeout: 20 * time.Millisecond, MaximumAge: time.Minute}

	rec, s := h.r.Resolve(context.Background())
	if s != SourceDefault || rec.Name != "New Delhi" {
		t.Errorf("Resolve() = %+v (%s), want default after timeout", rec, s)
	}
}

func TestResolver_SelectLocation(t *testing.T) {
	tests := []struct {
		name       string
		place      string
		lat, lon   float64
		wantRegion string
	}{
		{"known place", "jaipur", 26.9124, 75.7873, "Rajasthan"},
		{"unknown name uses nearest", "My Farm", 19.08, 72.88, "Maharashtra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &fakeGeo{}
			h := newHarness(t, geo, nil)

			rec := h.r.SelectLocation(context.Background(), tt.place, tt.lat, tt.lon)
			if rec.Region != tt.wantRegion || rec.Name != tt.place {
				t.Errorf("SelectLocation() = %+v, want region %s", rec, tt.wantRegion)
			}
			if geo.calls != 0 {
				t.Error("SelectLocation queried geolocation")
			}
			stored, _, _ := h.persist.Location(context.Background())
			if stored != rec {
				t.Errorf("persisted %+v, want %+v", stored, rec)
			}
			if len(h.events) != 1 || h.events[0].Kind != session.LocationChanged {
				t.Errorf("events = %+v", h.events)
			}
		})
	}
}

func TestResolver_Resolve_PersistsDespiteCancelledRequest(t *testing.T) {
	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	st := session.New(session.Snapshot{})
	var published []models.LocationRecord
	st.Subscribe(func(_ context.Context, ev session.Event) {
		published = append(published, ev.Snapshot.Location)
	})
	geo := &fakeGeo{pos: models.Position{Latitude: 19.07, Longitude: 72.87}}
	r := NewResolver(geo, nil, places.Default(), fs, st, Options{DefaultPlace: delhi}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec, _ := r.Resolve(ctx)

	stored, ok, err := fs.Location(context.Background())
	if err != nil || !ok || stored != rec {
		t.Errorf("persisted = %+v, %v, %v; want %+v", stored, ok, err, rec)
	}
	if len(published) != 1 || published[0] != rec {
		t.Errorf("published = %+v, want [%+v]", published, rec)
	}
}

type blockingGeo struct {
	release chan struct{}
	pos     models.Position
}

func (g *blockingGeo) CurrentPosition(ctx context.Context, opts PositionOptions) (models.Position, error) {
	<-g.release
	return g.pos, nil
}

func TestResolver_SelectLocation_NotBlockedByPendingGeolocation(t *testing.T) {
	geo := &blockingGeo{release: make(chan struct{}), pos: models.Position{Latitude: 19.07, Longitude: 72.87}}
	persist := store.NewInMemoryStore()
	st := session.New(session.Snapshot{})
	r := NewResolver(geo, nil, places.Default(), persist, st, Options{DefaultPlace: delhi}, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Resolve(context.Background())
	}()

	done := make(chan models.LocationRecord, 1)
	go func() { done <- r.SelectLocation(context.Background(), "Pune", 18.52, 73.85) }()
	select {
	case rec := <-done:
		if rec.Name != "Pune" {
			t.Errorf("SelectLocation() = %+v, want Pune", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SelectLocation() blocked behind a pending geolocation request")
	}

	close(geo.release)
	wg.Wait()
}

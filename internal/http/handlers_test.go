package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/chat"
	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/connectivity"
	"github.com/kjstillabower/krishi-dashboard/internal/coordinator"
	"github.com/kjstillabower/krishi-dashboard/internal/locale"
	"github.com/kjstillabower/krishi-dashboard/internal/location"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/notify"
	"github.com/kjstillabower/krishi-dashboard/internal/pagegate"
	"github.com/kjstillabower/krishi-dashboard/internal/places"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/store"
	"github.com/kjstillabower/krishi-dashboard/internal/traffic"
	"github.com/kjstillabower/krishi-dashboard/internal/widget"
)

type mockWeatherClient struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockWeatherClient) Forecast(ctx context.Context, lat, lon float64) (models.WeatherReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return models.WeatherReport{Current: models.CurrentConditions{TemperatureC: 30}}, m.err
}

func (m *mockWeatherClient) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockKnowledgeClient serves fixed content and records the language of
// every market price request.
type mockKnowledgeClient struct {
	mu         sync.Mutex
	marketLang []models.Language
	pricesErr  error
	chat       models.ChatResponse
}

func (m *mockKnowledgeClient) MarketPrices(ctx context.Context, region string, lang models.Language) ([]models.TickerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marketLang = append(m.marketLang, lang)
	return []models.TickerEntry{{Crop: "Wheat", Price: 2275, Change: 1.2}}, m.pricesErr
}

func (m *mockKnowledgeClient) SeasonalTip(ctx context.Context, loc models.LocationRecord, lang models.Language) (models.SeasonalTip, error) {
	return models.SeasonalTip{Title: "Tip", Text: "Mulch"}, nil
}

func (m *mockKnowledgeClient) CropCalendar(ctx context.Context, region string, lang models.Language) (models.CropCalendar, error) {
	return models.CropCalendar{Season: "rabi"}, nil
}

func (m *mockKnowledgeClient) Prediction(ctx context.Context, crop, region string) (models.PredictionResponse, error) {
	return models.PredictionResponse{Crop: crop, CurrentPrice: 2000, PredictedPrice: 2150}, nil
}

func (m *mockKnowledgeClient) Advisory(ctx context.Context, region string, lang models.Language) ([]models.Advisory, error) {
	return nil, nil
}

func (m *mockKnowledgeClient) PopularQuestions(ctx context.Context, lang models.Language) ([]models.QuestionCategory, error) {
	return nil, nil
}

func (m *mockKnowledgeClient) CropGuide(ctx context.Context, lang models.Language) ([]models.CropGuideEntry, error) {
	return nil, nil
}

func (m *mockKnowledgeClient) PestGuide(ctx context.Context, lang models.Language) ([]models.PestGuideEntry, error) {
	return nil, nil
}

func (m *mockKnowledgeClient) Query(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	return m.chat, nil
}

func (m *mockKnowledgeClient) marketLangs() []models.Language {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Language(nil), m.marketLang...)
}

type testEnv struct {
	handler *Handler
	router  *mux.Router
	weather *mockWeatherClient
	kb      *mockKnowledgeClient
	state   *session.State
	feed    *notify.Feed
	persist *store.InMemoryStore
}

func newTestEnv(t *testing.T, online bool) *testEnv {
	t.Helper()
	traffic.Reset()

	logger := zap.NewNop()
	cat := locale.DefaultCatalog()
	lookup := places.Default()
	def, _ := lookup.ByName("New Delhi")
	mode := models.ModeOffline
	if online {
		mode = models.ModeOnline
	}
	state := session.New(session.Snapshot{
		Location:     def.Record(),
		Connectivity: models.ConnectivityState{DeviceReachable: online, EffectiveMode: mode},
		Locale:       models.LocaleState{ActiveLanguage: models.LanguageEnglish},
	})

	env := &testEnv{
		weather: &mockWeatherClient{},
		kb:      &mockKnowledgeClient{},
		state:   state,
		feed:    notify.NewFeed(cat, 0, logger),
		persist: store.NewInMemoryStore(),
	}
	gate := pagegate.New(logger)
	board := widget.NewBoard(append(append([]models.WidgetID{}, widget.Dashboard...), widget.Pages...)...)
	clock := func() time.Time { return time.Date(2026, 11, 2, 9, 0, 0, 0, widget.IST) }
	coord := coordinator.New(state, gate, board, cat, logger, widget.NewSet(env.weather, env.kb, cat, clock, "")...)
	t.Cleanup(coord.Start())

	positions := location.NewReportedPositions()
	resolver := location.NewResolver(positions, nil, lookup, env.persist, state,
		location.Options{Position: location.PositionOptions{Timeout: 50 * time.Millisecond, MaximumAge: time.Minute}, DefaultPlace: def}, logger)

	env.handler = NewHandler(Deps{
		State:         state,
		Board:         board,
		Gate:          gate,
		Coordinator:   coord,
		Resolver:      resolver,
		Positions:     positions,
		Places:        lookup,
		Monitor:       connectivity.NewMonitor(state, env.feed, logger),
		Locale:        locale.NewStore(state, env.persist, logger),
		Notifications: env.feed,
		Chat:          chat.NewService(env.kb, state, cat, logger),
		Health:        &HealthConfig{Window: time.Minute, DegradedFallbackPct: 50},
		Logger:        logger,
	})
	env.router = NewRouter(env.handler, logger, nil, 5*time.Second)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, w, &body)
	return body.Error.Code
}

func TestGetDashboard_InitiallyPending(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodGet, "/api/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Session    session.Snapshot `json:"session"`
		ActivePage models.Page      `json:"activePage"`
		Regions    []struct {
			Widget models.WidgetID     `json:"widget"`
			Status models.RegionStatus `json:"status"`
			Stale  bool                `json:"stale"`
		} `json:"regions"`
	}
	decode(t, w, &resp)
	if resp.Session.Location.Name != "New Delhi" || resp.ActivePage != models.PageHome {
		t.Errorf("session = %+v, page = %q", resp.Session, resp.ActivePage)
	}
	if len(resp.Regions) != len(widget.Dashboard)+len(widget.Pages) {
		t.Fatalf("regions = %d", len(resp.Regions))
	}
	for _, r := range resp.Regions {
		if r.Status != models.RegionPending || !r.Stale {
			t.Errorf("region %s = %s stale=%v", r.Widget, r.Status, r.Stale)
		}
	}
}

func TestPutLocale_RefetchesActiveMarketPage(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/pages/market", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("navigate status = %d", w.Code)
	}
	w = env.do(t, http.MethodPut, "/api/locale", map[string]string{"language": "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("locale status = %d: %s", w.Code, w.Body.String())
	}
	var ls models.LocaleState
	decode(t, w, &ls)
	if ls.ActiveLanguage != models.LanguageHindi || ls.Revision != 1 {
		t.Errorf("locale = %+v", ls)
	}

	langs := env.kb.marketLangs()
	if len(langs) != 2 || langs[1] != models.LanguageHindi {
		t.Errorf("market page languages = %v, want [en hi]", langs)
	}
	if lang, ok, _ := env.persist.Language(context.Background()); !ok || lang != models.LanguageHindi {
		t.Errorf("persisted language = %q, %v", lang, ok)
	}
}

func TestPutLocale_Invalid(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPut, "/api/locale", map[string]string{"language": "fr"})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "INVALID_LANGUAGE" {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestPostConnectivityMode_OnlineWhileUnreachableRejected(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodPost, "/api/connectivity/mode", map[string]string{"mode": "online"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "DEVICE_UNREACHABLE" {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if mode := env.state.Snapshot().Connectivity.EffectiveMode; mode != models.ModeOffline {
		t.Errorf("mode = %q, want offline", mode)
	}
	if n := env.feed.Count(connectivity.KeyToggleRejected); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
}

func TestPostConnectivityMode_EmptyBodyToggles(t *testing.T) {
	env := newTestEnv(t, true)
	req := httptest.NewRequest(http.MethodPost, "/api/connectivity/mode", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var cs models.ConnectivityState
	decode(t, w, &cs)
	if cs.EffectiveMode != models.ModeOffline || !cs.UserOverridePending {
		t.Errorf("state = %+v", cs)
	}
}

func TestPostConnectivity_RegainedRefreshesWeather(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodPost, "/api/connectivity", map[string]bool{"reachable": true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if n := env.weather.count(); n != 1 {
		t.Errorf("weather fetches = %d, want 1", n)
	}
	if langs := env.kb.marketLangs(); len(langs) != 1 {
		t.Errorf("ticker fetches = %d, want 1", len(langs))
	}

	w = env.do(t, http.MethodPost, "/api/connectivity", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing reachable status = %d", w.Code)
	}
}

func TestPutLocation(t *testing.T) {
	env := newTestEnv(t, true)
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
		wantRegion string
	}{
		{"known place", map[string]string{"name": "Pune"}, http.StatusOK, "", "Maharashtra"},
		{"unlisted with coords", map[string]interface{}{"name": "Khed", "latitude": 18.84, "longitude": 73.88}, http.StatusOK, "", "Maharashtra"},
		{"unlisted without coords", map[string]string{"name": "Khed"}, http.StatusBadRequest, "UNKNOWN_PLACE", ""},
		{"invalid name", map[string]string{"name": "Pune<script>"}, http.StatusBadRequest, "INVALID_LOCATION", ""},
		{"bad coords", map[string]interface{}{"name": "Khed", "latitude": 95.0, "longitude": 73.88}, http.StatusBadRequest, "INVALID_COORDINATES", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, "/api/location", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
			}
			if tt.wantCode != "" {
				if code := errorCode(t, w); code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
				return
			}
			var resp locationResponse
			decode(t, w, &resp)
			if resp.Location.Region != tt.wantRegion || resp.Source != location.SourceManual {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestLocationDetect_FromReportedPosition(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPost, "/api/device/position", map[string]float64{"latitude": 19.07, "longitude": 72.87})
	if w.Code != http.StatusAccepted {
		t.Fatalf("position status = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/location/detect", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detect status = %d", w.Code)
	}
	var resp locationResponse
	decode(t, w, &resp)
	if resp.Location.Name != "Mumbai" || resp.Location.Region != "Maharashtra" || resp.Source != location.SourceGeolocation {
		t.Errorf("resp = %+v", resp)
	}
	rec, ok, _ := env.persist.Location(context.Background())
	if !ok || rec != resp.Location {
		t.Errorf("persisted = %+v, %v", rec, ok)
	}
}

func TestLocationDetect_DeniedFallsBackToDefault(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPost, "/api/device/position", map[string]string{"error": "denied"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("position status = %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/location/detect", nil)
	var resp locationResponse
	decode(t, w, &resp)
	if resp.Location.Name != "New Delhi" || resp.Source != location.SourceDefault {
		t.Errorf("resp = %+v", resp)
	}

	w = env.do(t, http.MethodPost, "/api/device/position", map[string]string{"error": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus error status = %d", w.Code)
	}
}

func TestPostWidgetRetry(t *testing.T) {
	env := newTestEnv(t, true)
	env.weather.err = client.ErrUpstreamFailure
	w := env.do(t, http.MethodPost, "/api/widgets/weather/retry", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var region struct {
		Status  models.RegionStatus `json:"status"`
		Message string              `json:"message"`
	}
	decode(t, w, &region)
	if region.Status != models.RegionFallback || region.Message == "" {
		t.Errorf("region = %+v", region)
	}

	w = env.do(t, http.MethodPost, "/api/widgets/nope/retry", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown widget status = %d", w.Code)
	}
}

func TestGetWidget(t *testing.T) {
	env := newTestEnv(t, true)
	if w := env.do(t, http.MethodGet, "/api/widgets/hero_banner", nil); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/widgets/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown status = %d", w.Code)
	}
}

func TestPostPage(t *testing.T) {
	env := newTestEnv(t, true)
	var resp struct {
		Fetched bool `json:"fetched"`
	}
	decode(t, env.do(t, http.MethodPost, "/api/pages/market", nil), &resp)
	if !resp.Fetched {
		t.Error("first visit should fetch")
	}
	env.do(t, http.MethodPost, "/api/pages/home", nil)
	decode(t, env.do(t, http.MethodPost, "/api/pages/market", nil), &resp)
	if resp.Fetched {
		t.Error("repeat visit should not fetch")
	}
	if w := env.do(t, http.MethodPost, "/api/pages/settings", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown page status = %d", w.Code)
	}
}

func TestPutPanelVisibility(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPut, "/api/panels/price_prediction/visibility", map[string]bool{"visible": false})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var region struct {
		Visible bool `json:"visible"`
	}
	decode(t, w, &region)
	if region.Visible {
		t.Error("panel should be hidden")
	}
	w = env.do(t, http.MethodPut, "/api/panels/weather/visibility", map[string]bool{"visible": false})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "NOT_TOGGLABLE" {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestPostChat(t *testing.T) {
	env := newTestEnv(t, true)
	env.kb.chat = models.ChatResponse{OnlineAnswer: "Sow after the first rain."}

	w := env.do(t, http.MethodPost, "/api/chat", map[string]interface{}{"query": "when to sow soybean?"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Answer  chat.Answer         `json:"answer"`
		History []chat.HistoryEntry `json:"history"`
	}
	decode(t, w, &resp)
	if resp.Answer.Text != "Sow after the first rain." || len(resp.History) != 1 {
		t.Errorf("resp = %+v", resp)
	}

	for _, body := range []map[string]interface{}{{"query": " "}, {"query": "q", "top_k": 11}} {
		if w := env.do(t, http.MethodPost, "/api/chat", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %v status = %d", body, w.Code)
		}
	}

	env.kb.chat = models.ChatResponse{Error: "model offline"}
	if w := env.do(t, http.MethodPost, "/api/chat", map[string]string{"query": "q"}); w.Code != http.StatusBadGateway {
		t.Errorf("service error status = %d", w.Code)
	}
}

func TestGetNotifications(t *testing.T) {
	env := newTestEnv(t, true)
	env.do(t, http.MethodPost, "/api/connectivity", map[string]bool{"reachable": false})
	var resp struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	decode(t, env.do(t, http.MethodGet, "/api/notifications", nil), &resp)
	if len(resp.Notifications) != 1 || resp.Notifications[0].Key != connectivity.KeyLost {
		t.Errorf("notifications = %+v", resp.Notifications)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	env := newTestEnv(t, true)
	req := httptest.NewRequest(http.MethodPut, "/api/locale", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "INVALID_BODY" {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(env *testEnv)
		wantStatus string
		wantCode   int
	}{
		{"healthy", func(*testEnv) {}, "healthy", http.StatusOK},
		{"shutting down", func(env *testEnv) { env.handler.SetShuttingDown(true) }, "shutting-down", http.StatusServiceUnavailable},
		{"store unreachable", func(env *testEnv) {
			env.handler.Health.StorePing = func() error { return errors.New("dial tcp: refused") }
		}, "degraded", http.StatusServiceUnavailable},
		{"fallback share", func(*testEnv) {
			traffic.RecordSuccess()
			traffic.RecordFallback()
		}, "degraded", http.StatusServiceUnavailable},
		{"overloaded", func(env *testEnv) {
			env.handler.Health.OverloadDenials = 2
			traffic.RecordDenied()
			traffic.RecordDenied()
		}, "overloaded", http.StatusServiceUnavailable},
		{"fallback share below threshold", func(*testEnv) {
			traffic.RecordSuccess()
			traffic.RecordSuccess()
			traffic.RecordFallback()
		}, "healthy", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			tt.setup(env)
			w := env.do(t, http.MethodGet, "/health", nil)
			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			var body struct {
				Status string `json:"status"`
			}
			decode(t, w, &body)
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
		})
	}
}

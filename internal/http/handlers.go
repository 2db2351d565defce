package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
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
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/pagegate"
	"github.com/kjstillabower/krishi-dashboard/internal/places"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/traffic"
	"github.com/kjstillabower/krishi-dashboard/internal/validation"
	"github.com/kjstillabower/krishi-dashboard/internal/widget"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 16 << 10

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	Window              time.Duration
	DegradedFallbackPct int
	// OverloadDenials rate-limit denials within Window report overloaded.
	OverloadDenials int
	// StorePing, when set, checks the durable state backend.
	StorePing func() error
}

// Deps are the components the handlers drive.
type Deps struct {
	State         *session.State
	Board         *widget.Board
	Gate          *pagegate.Gate
	Coordinator   *coordinator.Coordinator
	Resolver      *location.Resolver
	Positions     *location.ReportedPositions
	Places        places.Lookup
	Monitor       *connectivity.Monitor
	Locale        *locale.Store
	Notifications *notify.Feed
	Chat          *chat.Service
	Health        *HealthConfig
	Logger        *zap.Logger
}

// Handler serves the dashboard API.
type Handler struct {
	Deps
	shuttingDown     atomic.Bool
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a Handler over deps.
func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{Deps: deps}
}

// SetShuttingDown makes /health report shutting-down.
func (h *Handler) SetShuttingDown(v bool) {
	h.shuttingDown.Store(v)
}

type regionView struct {
	models.Region
	Stale   bool `json:"stale"`
	Visible bool `json:"visible"`
}

type dashboardResponse struct {
	Session    session.Snapshot     `json:"session"`
	ActivePage models.Page          `json:"activePage"`
	Pages      []pagegate.PageState `json:"pages"`
	Regions    []regionView         `json:"regions"`
}

func (h *Handler) view(r models.Region, snap session.Snapshot) regionView {
	return regionView{
		Region:  r,
		Stale:   h.Board.Stale(r.Widget, snap),
		Visible: h.Coordinator.Visible(r.Widget),
	}
}

func (h *Handler) dashboard() dashboardResponse {
	snap := h.State.Snapshot()
	regions := h.Board.All()
	views := make([]regionView, 0, len(regions))
	for _, r := range regions {
		views = append(views, h.view(r, snap))
	}
	return dashboardResponse{
		Session:    snap,
		ActivePage: h.Gate.Active(),
		Pages:      h.Gate.States(),
		Regions:    views,
	}
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dashboard())
}

// GetWidget handles GET /api/widgets/{widget}.
func (h *Handler) GetWidget(w http.ResponseWriter, r *http.Request) {
	id := models.WidgetID(mux.Vars(r)["widget"])
	region, ok := h.Board.Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_WIDGET", "unknown widget: "+string(id))
		return
	}
	writeJSON(w, http.StatusOK, h.view(region, h.State.Snapshot()))
}

// PostWidgetRetry handles POST /api/widgets/{widget}/retry.
func (h *Handler) PostWidgetRetry(w http.ResponseWriter, r *http.Request) {
	id := models.WidgetID(mux.Vars(r)["widget"])
	if err := h.Coordinator.Retry(r.Context(), id); err != nil {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_WIDGET", err.Error())
		return
	}
	region, _ := h.Board.Get(id)
	writeJSON(w, http.StatusOK, h.view(region, h.State.Snapshot()))
}

type locationResponse struct {
	Location models.LocationRecord `json:"location"`
	Source   location.Source       `json:"source"`
}

// PostLocationDetect handles POST /api/location/detect.
func (h *Handler) PostLocationDetect(w http.ResponseWriter, r *http.Request) {
	rec, source := h.Resolver.Resolve(r.Context())
	writeJSON(w, http.StatusOK, locationResponse{Location: rec, Source: source})
}

// PutLocation handles PUT /api/location. Coordinates may be omitted for a
// known place.
func (h *Handler) PutLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string   `json:"name"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	name, err := validation.PlaceName(body.Name)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}

	var lat, lon float64
	switch {
	case body.Latitude != nil && body.Longitude != nil:
		lat, lon = *body.Latitude, *body.Longitude
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", "coordinates out of range")
			return
		}
	default:
		place, ok := h.Places.ByName(name)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "UNKNOWN_PLACE", "coordinates are required for an unlisted place")
			return
		}
		lat, lon = place.Latitude, place.Longitude
	}

	rec := h.Resolver.SelectLocation(r.Context(), name, lat, lon)
	writeJSON(w, http.StatusOK, locationResponse{Location: rec, Source: location.SourceManual})
}

// GetPlaces handles GET /api/places for the place selector.
func (h *Handler) GetPlaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"places": h.Places.All()})
}

var positionErrors = map[string]error{
	"denied":      location.ErrPermissionDenied,
	"unsupported": location.ErrUnsupported,
	"timeout":     location.ErrPositionTimeout,
}

// PostDevicePosition handles POST /api/device/position from the client
// runtime: a fix or a geolocation error.
func (h *Handler) PostDevicePosition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Error     string   `json:"error"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Error != "" {
		err, ok := positionErrors[body.Error]
		if !ok {
			writeError(w, r, http.StatusBadRequest, "INVALID_POSITION", "error must be denied, unsupported or timeout")
			return
		}
		h.Positions.ReportError(err)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if body.Latitude == nil || body.Longitude == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_POSITION", validation.ErrCoordinatesMissing.Error())
		return
	}
	lat, lon := *body.Latitude, *body.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, r, http.StatusBadRequest, "INVALID_POSITION", "coordinates out of range")
		return
	}
	h.Positions.Report(models.Position{Latitude: lat, Longitude: lon})
	w.WriteHeader(http.StatusAccepted)
}

// PostConnectivity handles POST /api/connectivity reachability signals.
func (h *Handler) PostConnectivity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reachable *bool `json:"reachable"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Reachable == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_SIGNAL", "reachable is required")
		return
	}
	writeJSON(w, http.StatusOK, h.Monitor.Report(r.Context(), *body.Reachable))
}

// PostConnectivityMode handles POST /api/connectivity/mode. An empty body
// flips the mode.
func (h *Handler) PostConnectivityMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}

	var (
		cs  models.ConnectivityState
		err error
	)
	if body.Mode == "" {
		cs, err = h.Monitor.Toggle(r.Context())
	} else {
		mode, verr := validation.Mode(body.Mode)
		if verr != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_MODE", verr.Error())
			return
		}
		cs, err = h.Monitor.SetMode(r.Context(), mode)
	}
	if errors.Is(err, connectivity.ErrUnreachable) {
		writeError(w, r, http.StatusConflict, "DEVICE_UNREACHABLE", "Cannot go online while the device is unreachable")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// PutLocale handles PUT /api/locale.
func (h *Handler) PutLocale(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Language string `json:"language"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	lang, err := validation.Language(body.Language)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LANGUAGE", err.Error())
		return
	}
	ls, err := h.Locale.SetLanguage(r.Context(), string(lang))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LANGUAGE", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

// PostPage handles POST /api/pages/{page}.
func (h *Handler) PostPage(w http.ResponseWriter, r *http.Request) {
	page, err := validation.Page(mux.Vars(r)["page"])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_PAGE", err.Error())
		return
	}
	v := h.Coordinator.Navigate(r.Context(), page)
	resp := map[string]interface{}{
		"page":     v.Page,
		"previous": v.Previous,
		"fetched":  v.Fetch,
	}
	if id, ok := models.PageWidget(page); ok {
		region, _ := h.Board.Get(id)
		resp["region"] = h.view(region, h.State.Snapshot())
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutPanelVisibility handles PUT /api/panels/{widget}/visibility.
func (h *Handler) PutPanelVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Visible *bool `json:"visible"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Visible == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_VISIBILITY", "visible is required")
		return
	}
	id := models.WidgetID(mux.Vars(r)["widget"])
	if err := h.Coordinator.SetPanelVisible(r.Context(), id, *body.Visible); err != nil {
		writeError(w, r, http.StatusBadRequest, "NOT_TOGGLABLE", err.Error())
		return
	}
	region, _ := h.Board.Get(id)
	writeJSON(w, http.StatusOK, h.view(region, h.State.Snapshot()))
}

// GetNotifications handles GET /api/notifications.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": h.Notifications.List()})
}

// PostChat handles POST /api/chat.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	query, err := validation.Query(body.Query)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	topK, err := validation.TopK(body.TopK)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	ans, err := h.Chat.Ask(r.Context(), query, topK)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"answer": ans, "history": h.Chat.History()})
	case errors.Is(err, chat.ErrQueryFailed):
		writeError(w, r, http.StatusBadGateway, "QUERY_FAILED", err.Error())
	default:
		writeServiceError(w, r, err)
	}
}

// GetChatHistory handles GET /api/chat/history.
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": h.Chat.History()})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result, checks := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.Logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":       result.status,
		"service":      "krishi-dashboard",
		"version":      "dev",
		"checks":       checks,
		"connectivity": h.State.Snapshot().Connectivity,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in order: shutting-down, rate-limit
// denials, state store reachability, widget fallback share.
func (h *Handler) computeHealthStatus() (healthResult, map[string]string) {
	checks := map[string]string{"stateStore": "healthy", "widgets": "healthy"}
	if h.shuttingDown.Load() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}, checks
	}
	cfg := h.Health
	if cfg == nil {
		return healthResult{"healthy", http.StatusOK, ""}, checks
	}
	if cfg.Window > 0 && cfg.OverloadDenials > 0 && traffic.DenialCount(cfg.Window) >= cfg.OverloadDenials {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "rate_limit_denials"}, checks
	}
	if cfg.StorePing != nil && cfg.StorePing() != nil {
		checks["stateStore"] = "unhealthy"
		return healthResult{"degraded", http.StatusServiceUnavailable, "state_store_unreachable"}, checks
	}
	if cfg.Window > 0 && cfg.DegradedFallbackPct > 0 {
		fallbacks, total := traffic.FallbackRate(cfg.Window)
		if total > 0 && fallbacks*100 >= cfg.DegradedFallbackPct*total {
			checks["widgets"] = "unhealthy"
			return healthResult{"degraded", http.StatusServiceUnavailable, "fallback_rate_breach"}, checks
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}, checks
}

// decodeJSON decodes a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return false
	}
	return true
}

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body with the request's
// correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError writes 503 for an upstream failure and logs the cause
// at DEBUG.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Knowledge service unavailable")
	observability.LoggerFrom(r.Context(), zap.NewNop()).Debug("upstream error",
		zap.String("category", string(client.CategorizeError(err))),
		zap.Error(err))
}

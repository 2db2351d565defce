package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/krishi-dashboard/internal/observability"
)

// NewRouter wires the routes. /health and /metrics bypass the rate limit
// and request timeout.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(limiter))
	api.Use(TimeoutMiddleware(requestTimeout))
	api.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/widgets/{widget}", h.GetWidget).Methods(http.MethodGet)
	api.HandleFunc("/widgets/{widget}/retry", h.PostWidgetRetry).Methods(http.MethodPost)
	api.HandleFunc("/location/detect", h.PostLocationDetect).Methods(http.MethodPost)
	api.HandleFunc("/location", h.PutLocation).Methods(http.MethodPut)
	api.HandleFunc("/places", h.GetPlaces).Methods(http.MethodGet)
	api.HandleFunc("/device/position", h.PostDevicePosition).Methods(http.MethodPost)
	api.HandleFunc("/connectivity", h.PostConnectivity).Methods(http.MethodPost)
	api.HandleFunc("/connectivity/mode", h.PostConnectivityMode).Methods(http.MethodPost)
	api.HandleFunc("/locale", h.PutLocale).Methods(http.MethodPut)
	api.HandleFunc("/pages/{page}", h.PostPage).Methods(http.MethodPost)
	api.HandleFunc("/panels/{widget}/visibility", h.PutPanelVisibility).Methods(http.MethodPut)
	api.HandleFunc("/notifications", h.GetNotifications).Methods(http.MethodGet)
	api.HandleFunc("/chat", h.PostChat).Methods(http.MethodPost)
	api.HandleFunc("/chat/history", h.GetChatHistory).Methods(http.MethodGet)
	return router
}

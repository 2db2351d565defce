package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/krishi-dashboard/internal/chat"
	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/config"
	"github.com/kjstillabower/krishi-dashboard/internal/connectivity"
	"github.com/kjstillabower/krishi-dashboard/internal/coordinator"
	httphandler "github.com/kjstillabower/krishi-dashboard/internal/http"
	"github.com/kjstillabower/krishi-dashboard/internal/locale"
	"github.com/kjstillabower/krishi-dashboard/internal/location"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/notify"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/pagegate"
	"github.com/kjstillabower/krishi-dashboard/internal/places"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/widget"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(observability.LogOptions{
		Service: cfg.ServiceName,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("state store", zap.Error(err))
	}

	lookup := places.Default()
	defaultPlace, ok := lookup.ByName(cfg.DefaultLocation)
	if !ok {
		logger.Fatal("default location is not a known place", zap.String("location", cfg.DefaultLocation))
	}
	defaultLang, _ := models.ParseLanguage(cfg.DefaultLanguage)

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	state := session.New(seedSnapshot(startCtx, st, defaultPlace, defaultLang, logger))
	startCancel()

	catalog := locale.DefaultCatalog()
	weatherClient := client.NewOpenMeteoClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	knowledgeClient := client.NewHTTPKnowledgeClient(cfg.KnowledgeAPIURL, cfg.KnowledgeAPITimeout)
	if cfg.CircuitBreakerEnabled {
		weatherClient.SetBreaker(newBreaker(cfg, "weather"))
		knowledgeClient.SetBreaker(newBreaker(cfg, "knowledge"))
		logger.Info("circuit breakers enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("cooldown", cfg.CircuitBreakerCooldown))
	}
	var geocoder client.ReverseGeocoder
	if cfg.GeocoderURL != "" {
		geocoder = client.NewNominatimClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, cfg.GeocoderRateLimit)
	}

	feed := notify.NewFeed(catalog, 0, logger)
	gate := pagegate.New(logger)
	board := widget.NewBoard(append(append([]models.WidgetID{}, widget.Dashboard...), widget.Pages...)...)
	widgets := widget.NewSet(weatherClient, knowledgeClient, catalog, time.Now, widget.DefaultCrop)
	coord := coordinator.New(state, gate, board, catalog, logger, widgets...)
	stopCoordinator := coord.Start()
	defer stopCoordinator()

	positions := location.NewReportedPositions()
	resolver := location.NewResolver(positions, geocoder, lookup, st, state, location.Options{
		Position: location.PositionOptions{
			Timeout:    cfg.GeolocationTimeout,
			MaximumAge: cfg.GeolocationMaximumAge,
		},
		DefaultPlace: defaultPlace,
	}, logger)

	healthConfig := &httphandler.HealthConfig{
		Window:              cfg.HealthWindow,
		DegradedFallbackPct: cfg.HealthDegradedFallbackPct,
		OverloadDenials:     cfg.HealthOverloadDenials,
	}
	if p, ok := st.(interface{ Ping() error }); ok {
		healthConfig.StorePing = p.Ping
	}

	handler := httphandler.NewHandler(httphandler.Deps{
		State:         state,
		Board:         board,
		Gate:          gate,
		Coordinator:   coord,
		Resolver:      resolver,
		Positions:     positions,
		Places:        lookup,
		Monitor:       connectivity.NewMonitor(state, feed, logger),
		Locale:        locale.NewStore(state, st, logger),
		Notifications: feed,
		Chat:          chat.NewService(knowledgeClient, state, catalog, logger),
		Health:        healthConfig,
		Logger:        logger,
	})

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	go coord.RefreshAll(context.Background(), coordinator.TriggerStartup)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	handler.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := closeStore(); err != nil {
		logger.Error("state store close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

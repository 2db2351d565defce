package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/krishi-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/krishi-dashboard/internal/config"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
	"github.com/kjstillabower/krishi-dashboard/internal/store"
)

// newBreaker guards one upstream and mirrors its state into metrics.
func newBreaker(cfg *config.Config, upstream string) *circuitbreaker.Breaker {
	observability.UpstreamBreakerState.WithLabelValues(upstream).Set(0)
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		Cooldown:         cfg.CircuitBreakerCooldown,
		Upstream:         upstream,
		OnStateChange: func(upstream string, from, to circuitbreaker.State) {
			observability.RecordBreakerTransition(upstream, from.String(), to.String(), int(to))
		},
	})
}

// openStore builds the configured state backend and its close func.
func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.StateBackend {
	case "memcached":
		mc, err := store.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, fmt.Errorf("memcached store: %w", err)
		}
		logger.Info("state backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		return mc, mc.Close, nil
	case "file":
		fs, err := store.NewFileStore(cfg.StateFilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("file store: %w", err)
		}
		logger.Info("state backend: file", zap.String("path", cfg.StateFilePath))
		return fs, noop, nil
	default:
		logger.Info("state backend: in_memory")
		return store.NewInMemoryStore(), noop, nil
	}
}

// seedSnapshot reads the two durable keys once. A missing or unreadable
// location seeds the default place; a missing language seeds defaultLang.
// Connectivity starts online and reachable until the client reports
// otherwise.
func seedSnapshot(ctx context.Context, st store.Store, defaultPlace models.KnownPlace, defaultLang models.Language, logger *zap.Logger) session.Snapshot {
	snap := session.Snapshot{
		Location: defaultPlace.Record(),
		Connectivity: models.ConnectivityState{
			DeviceReachable: true,
			EffectiveMode:   models.ModeOnline,
		},
		Locale: models.LocaleState{ActiveLanguage: defaultLang},
	}
	if snap.Locale.ActiveLanguage == "" {
		snap.Locale.ActiveLanguage = models.LanguageEnglish
	}

	rec, ok, err := st.Location(ctx)
	switch {
	case err != nil:
		logger.Warn("read stored location failed", zap.Error(err))
	case ok && !rec.IsZero():
		snap.Location = rec
	}

	lang, ok, err := st.Language(ctx)
	switch {
	case err != nil:
		logger.Warn("read stored language failed", zap.Error(err))
	case ok:
		if l, valid := models.ParseLanguage(string(lang)); valid {
			snap.Locale.ActiveLanguage = l
		}
	}

	logger.Info("session seeded",
		zap.String("location", snap.Location.Name),
		zap.String("language", string(snap.Locale.ActiveLanguage)))
	return snap
}

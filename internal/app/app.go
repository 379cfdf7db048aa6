// Package app wires the gateway together and runs it.
package app

import (
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"enrichment-gateway/internal/common/cache"
	"enrichment-gateway/internal/common/logging"
	"enrichment-gateway/internal/common/utils"
	"enrichment-gateway/internal/config"
	"enrichment-gateway/internal/handlers"
	"enrichment-gateway/internal/jobs"
	"enrichment-gateway/internal/results"
	"enrichment-gateway/internal/services/base"
	"enrichment-gateway/internal/services/curation"
	"enrichment-gateway/internal/services/enrichment"
	"enrichment-gateway/internal/token"
)

// App holds the assembled gateway.
type App struct {
	Handlers *handlers.Handlers
	logger   logging.Logger
}

// New assembles the gateway from configuration.
func New(cfg *config.Config, logger logging.Logger) (*App, error) {
	tokenOpts := []token.Option{
		token.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	if cfg.TokenCacheTTL > 0 {
		tokenOpts = append(tokenOpts, token.WithFixedTTL(cfg.TokenCacheTTL))
	}
	tokens := token.NewCache(logger, tokenOpts...)

	retryCfg := utils.FixedRetryConfig(cfg.MaxRetries, cfg.RetryDelay)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	enrichmentAPI := base.NewClient(base.Config{
		Service:    cfg.Enrichment.TokenConfig(),
		Scope:      enrichment.Scope,
		CacheKey:   enrichment.CacheKey,
		Retry:      retryCfg,
		HTTPClient: httpClient,
	}, tokens, logger)

	curationAPI := base.NewClient(base.Config{
		Service:    cfg.Curation.TokenConfig(),
		Scope:      curation.Scope,
		CacheKey:   curation.CacheKey,
		Retry:      retryCfg,
		HTTPClient: httpClient,
	}, tokens, logger)

	store, err := newResultStore(cfg)
	if err != nil {
		return nil, err
	}

	poller := jobs.NewPoller(logger)

	enrichmentClient := enrichment.New(enrichmentAPI, poller, jobs.Options{
		MaxAttempts: cfg.EnrichmentPoll.MaxAttempts,
		Interval:    cfg.EnrichmentPoll.Interval,
	}, logger)

	curationClient := curation.New(curationAPI, store, poller, jobs.Options{
		MaxAttempts: cfg.CurationPoll.MaxAttempts,
		Interval:    cfg.CurationPoll.Interval,
	}, logger)

	return &App{
		Handlers: handlers.New(enrichmentClient, curationClient, logger),
		logger:   logger,
	}, nil
}

// newResultStore builds the result store on the configured backend.
func newResultStore(cfg *config.Config) (*results.Store, error) {
	switch cfg.ResultStoreBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return results.NewStore(cache.NewRedisCache(client, "gateway:")), nil
	default:
		return results.NewStore(cache.NewLocalCache(24*time.Hour, 10*time.Minute)), nil
	}
}

// Command diag checks configuration, wires the resilience components
// against a loopback probe client and reports their health. Run it when
// startup errors are hard to place.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"telegram-bridge/internal/bulk"
	"telegram-bridge/internal/cache"
	"telegram-bridge/internal/config"
	"telegram-bridge/internal/metrics"
	"telegram-bridge/internal/pool"
	"telegram-bridge/internal/ratelimit"
	"telegram-bridge/internal/session"
	"telegram-bridge/internal/telegram"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	checkCredentials(cfg)
	checkSessionToken(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// components against a loopback probe client
	reg := ratelimit.NewRegistry(cfg.RateLimits)

	var store cache.Store
	if cfg.RedisAddr != "" {
		s, err := cache.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			log.Error().Err(err).Msg("redis unreachable, falling back to memory store")
			store = cache.NewMemoryStore()
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache store connected")
			store = s
		}
	} else {
		store = cache.NewMemoryStore()
	}
	c := cache.New(store, cfg.CacheDefaultTTL, cfg.CacheTTLs)

	p := pool.New(func(id int) (telegram.Client, error) {
		return &probeClient{}, nil
	}, cfg.PoolSize, cfg.AcquireTimeout)
	if err := p.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("pool initialization failed")
	}
	defer p.Shutdown(context.Background())

	// exercise one round trip through every component
	err := p.Execute(ctx, func(ctx context.Context, client telegram.Client) error {
		exec := bulk.New(client, reg, cfg.BulkDelays)
		report, err := exec.ChatInfo(ctx, []string{"probe-1", "probe-2"}, 0)
		if err != nil {
			return err
		}
		out, _ := report.JSON()
		log.Info().RawJSON("report", []byte(out)).Msg("probe batch complete")
		_, err = c.GetOrFetch(ctx, "chat_info", func(ctx context.Context) (any, error) {
			entity, err := client.GetEntity(ctx, "probe-1")
			if err != nil {
				return nil, err
			}
			return entity.Summary(), nil
		}, "probe-1")
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("probe round trip failed")
	}

	health := p.HealthCheck()
	log.Info().
		Int("healthy", health.Healthy).
		Int("unhealthy", health.Unhealthy).
		Int("available", health.Available).
		Str("breaker", string(health.Breaker)).
		Msg("pool health")
	log.Info().Interface("limiters", reg.Stats()).Msg("rate limiter stats")
	log.Info().Interface("cache", c.Stats(ctx)).Msg("cache stats")
	log.Info().Interface("pool", p.Stats()).Msg("pool stats")

	if cfg.MetricsAddr == "" {
		return
	}

	m := metrics.NewRegistry()
	m.SyncCache(c.Stats(ctx))
	m.SyncPool(health)
	m.SyncLimiters(reg.Stats())

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		log.Info().Msgf("serving metrics on %s", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("metrics server shutdown failed")
	}
}

// checkCredentials validates the API credential formats the way the
// platform expects them: numeric id, 32 hex character hash.
func checkCredentials(cfg config.Config) {
	if cfg.APIID == "" {
		log.Warn().Msg("TELEGRAM_API_ID not set")
	} else if _, err := strconv.Atoi(cfg.APIID); err != nil {
		log.Error().Str("value", cfg.APIID).Msg("TELEGRAM_API_ID must be numeric")
	} else {
		log.Info().Msg("TELEGRAM_API_ID format ok")
	}

	if cfg.APIHash == "" {
		log.Warn().Msg("TELEGRAM_API_HASH not set")
	} else if !isHex32(cfg.APIHash) {
		log.Error().Int("length", len(cfg.APIHash)).Msg("TELEGRAM_API_HASH must be 32 hex characters")
	} else {
		log.Info().Msg("TELEGRAM_API_HASH format ok")
	}
}

func checkSessionToken(cfg config.Config) {
	if cfg.SessionToken == "" {
		log.Warn().Msg("TELEGRAM_SESSION_TOKEN not set (optional)")
		return
	}
	if cfg.SessionSecret == "" {
		log.Error().Msg("TELEGRAM_SESSION_TOKEN set but SESSION_SECRET missing")
		return
	}
	codec := session.NewCodec([]byte(cfg.SessionSecret))
	s, err := codec.Decode(cfg.SessionToken)
	if err != nil {
		log.Error().Err(err).Msg("session token does not verify")
		return
	}
	log.Info().Int("api_id", s.APIID).Str("dc", s.DC).Msg("session token ok")
}

func isHex32(s string) bool {
	if len(s) != 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// probeClient is an in-process stand-in for the platform client, used so
// the components can be wired and exercised without credentials.
type probeClient struct {
	connected bool
}

func (p *probeClient) Connect(context.Context) error { p.connected = true; return nil }

func (p *probeClient) Disconnect(context.Context) error { p.connected = false; return nil }

func (p *probeClient) IsConnected() bool { return p.connected }

func (p *probeClient) SendMessage(context.Context, string, string) error { return nil }

func (p *probeClient) ForwardMessage(context.Context, string, int, string) error { return nil }

func (p *probeClient) DeleteMessage(context.Context, string, int) error { return nil }

func (p *probeClient) InviteToGroup(context.Context, string, string) error { return nil }

func (p *probeClient) MarkRead(context.Context, string) error { return nil }

func (p *probeClient) GetContacts(context.Context) ([]telegram.Contact, error) {
	return []telegram.Contact{}, nil
}

func (p *probeClient) GetEntity(_ context.Context, chatID string) (telegram.Entity, error) {
	return telegram.Entity{ID: 1, Title: "probe " + chatID, Kind: "Chat"}, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/bus"
	"github.com/tbourn/go-handoff-backend/internal/config"
	"github.com/tbourn/go-handoff-backend/internal/domain"
	httpapi "github.com/tbourn/go-handoff-backend/internal/http"
	"github.com/tbourn/go-handoff-backend/internal/notify"
	"github.com/tbourn/go-handoff-backend/internal/observability"
	"github.com/tbourn/go-handoff-backend/internal/pipe"
	"github.com/tbourn/go-handoff-backend/internal/presence"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/routing"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// app holds every long-lived component of the process.
type app struct {
	cfg config.Config
	log zerolog.Logger

	db       *gorm.DB
	rdb      *redis.Client
	bus      bus.Bus
	cache    *routing.Cache
	tracker  *presence.Tracker
	hub      *notify.Hub
	webhook  *notify.Webhook
	agents   *services.AgentService
	handoffs *services.HandoffService
	pipe     *pipe.Middleware
	engine   *gin.Engine

	shutdownOTel observability.ShutdownFunc
}

// run builds the service, warms it up, and serves until ctx ends.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.start(ctx); err != nil {
		return err
	}
	return a.serve(ctx)
}

// build opens the stores and wires the services. On error everything opened
// so far is closed.
func build(ctx context.Context, cfg config.Config, log zerolog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	a.shutdownOTel, err = observability.SetupOTel(ctx, cfg.OTEL, version, log)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}

	db, err := repo.OpenDB(repo.Options{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, Tracing: cfg.OTEL.Enabled})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.db = db
	if err = repo.AutoMigrate(a.db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	rdb, err := presence.Dial(ctx, presence.RedisOptions{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	b, err := bus.Open(ctx, bus.Options{Driver: cfg.Bus.Driver, Redis: rdb, AMQPURL: cfg.Bus.AMQPURL, Logger: log})
	if err != nil {
		return nil, err
	}
	a.bus = b

	a.cache = routing.New(routing.Options{Size: cfg.Cache.Size, TTL: cfg.Cache.TTL, Bus: a.bus, Logger: log})
	a.tracker = presence.NewTracker(a.rdb, cfg.Handoff.AgentSessionTimeout, log)
	a.hub = notify.NewHub(a.bus, 0, log)
	a.webhook = notify.NewWebhook(notify.WebhookOptions{
		URL:             cfg.Webhook.URL,
		MaxAttempts:     cfg.Webhook.MaxAttempts,
		Jitter:          cfg.Webhook.Jitter,
		InitialInterval: cfg.Webhook.InitialInterval,
		MaxInterval:     cfg.Webhook.MaxInterval,
		Workers:         cfg.Webhook.Workers,
		QueueSize:       cfg.Webhook.QueueSize,
	}, log)
	fanout := notify.NewFanout(a.hub, a.webhook, log)

	a.agents = services.NewAgentService(a.db, a.tracker, log)
	a.agents.Notifier = fanout
	a.tracker.OnExpire(a.agents.PresenceExpired)

	a.handoffs = services.NewHandoffService(a.db, a.cache, a.agents, services.HandoffConfig{
		TransferMessage: cfg.Handoff.TransferMessage,
		AssignMessage:   cfg.Handoff.AssignMessage,
		ReplayCount:     cfg.Handoff.ReplayEventCount,
		PendingTimeout:  cfg.Handoff.PendingTimeout,
	}, log)
	a.handoffs.Notifier = fanout

	a.pipe = pipe.New(a.db, a.cache, a.agents, a.handoffs.Messenger, pipe.Options{
		MetadataChannels: cfg.Handoff.MetadataChannels,
		Logger:           log,
	})
	a.pipe.Notifier = fanout

	gin.SetMode(cfg.GinMode)
	a.engine = gin.New()
	httpapi.RegisterRoutes(a.engine, cfg, httpapi.Deps{
		DB:       a.db,
		Handoffs: a.handoffs,
		Agents:   a.agents,
		Pipe:     a.pipe,
		Runtime:  a.handoffs.Runtime,
		Realtime: a.hub,
		Online:   a.agents.IsOnline,
	})
	return a, nil
}

// start subscribes to the bus, then warms the routing cache and re-arms the
// timeouts of pending handoffs. Without a warm cache the pipe refuses events,
// so a failed warm-up is fatal unless CACHE_WARMUP_BYPASS is set.
//
// Subscriptions live as long as ctx: some transports tear a consumer down
// when its context ends, so they must not be bound to a group context that
// is cancelled once the group returns.
func (a *app) start(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return a.cache.Start(ctx) })
	g.Go(func() error { return a.hub.Start(ctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	active, err := repo.ListActiveHandoffs(ctx, a.db)
	if err == nil {
		err = a.cache.Warm(ctx, func(context.Context) ([]domain.Handoff, error) { return active, nil })
	}
	if err != nil {
		if !a.cfg.Cache.WarmupBypass {
			return fmt.Errorf("routing cache warm-up: %w", err)
		}
		a.log.Warn().Err(err).Msg("routing cache warm-up failed, serving cold")
		a.cache.MarkWarm()
		return nil
	}
	a.handoffs.RecoverTimeouts(ctx, active)
	a.log.Info().
		Int("active", len(active)).
		Int("timeouts", a.handoffs.PendingTimeouts()).
		Msg("handoffs recovered")
	return nil
}

// serve runs the HTTP server until ctx ends, then drains it.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", a.cfg.Port),
		Handler:           a.engine,
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		a.log.Info().Msg("shutting down http server")
		// Websocket streams end when the hub closes their channels.
		a.hub.Close()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (a *app) shutdownTimeout() time.Duration {
	if a.cfg.ShutdownTimeout > 0 {
		return a.cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

// close releases components in reverse dependency order. It tolerates a
// partially built app.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if a.handoffs != nil {
		a.handoffs.Close()
	}
	if a.tracker != nil {
		a.tracker.Close()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.webhook != nil {
		a.webhook.Close(ctx)
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close bus")
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.log.Warn().Err(err).Msg("otel shutdown")
		}
	}
}

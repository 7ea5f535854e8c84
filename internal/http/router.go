// Package httpapi wires the HTTP transport (Gin) to the handoff services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, compression, security headers, idempotency, rate limiting and the
// operator presence precondition.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/docs"
	"github.com/tbourn/go-handoff-backend/internal/config"
	"github.com/tbourn/go-handoff-backend/internal/http/handlers"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// Deps are the collaborators the routes are built on.
type Deps struct {
	DB       *gorm.DB
	Handoffs handlers.HandoffService
	Agents   handlers.AgentService
	Pipe     handlers.Pipe
	Runtime  handlers.Runtime
	Realtime handlers.Realtime
	// Online answers the presence precondition of assign/resolve/reject.
	Online middleware.OnlineCheck
}

var corsAllowHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.HeaderAgentID, middleware.HeaderIdempotencyKey,
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the handoff API under
// <APIBasePath>/bots/:botId/mod/handoff.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: local X-Agent-ID fallback for the operator identity
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per operator/IP, bypass on replay)
//  10. CORS, security headers and gzip (websocket upgrades excluded)
func RegisterRoutes(r *gin.Engine, cfg config.Config, d Deps) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Operator identity
	r.Use(middleware.Identity())

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyLookup(d.DB),
	))

	// 9) Token-bucket rate limiter per operator/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAgentOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotent-Replayed"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotent-Replayed"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compression; the websocket endpoint hijacks the connection.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/realtime$`})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(handlers.Deps{
		DB:       d.DB,
		Handoffs: d.Handoffs,
		Agents:   d.Agents,
		Pipe:     d.Pipe,
		Runtime:  d.Runtime,
		Realtime: d.Realtime,
		Config: handlers.ClientConfig{
			AgentSessionTimeoutSeconds: int(cfg.Handoff.AgentSessionTimeout / time.Second),
			PendingTimeoutSeconds:      int(cfg.Handoff.PendingTimeout / time.Second),
			ReplayEventCount:           cfg.Handoff.ReplayEventCount,
			MetadataChannels:           cfg.Handoff.MetadataChannels,
		},
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	requireAgent := middleware.RequireAgent()
	requireOnline := middleware.RequireOnline(d.Online)

	api := groupWithPrefix(r, cfg.APIBasePath).Group("/bots/:botId/mod/handoff")
	{
		// Handoffs
		api.GET("/handoffs", h.ListHandoffs)
		api.POST("/handoffs", h.CreateHandoff)
		api.POST("/handoffs/:id", h.UpdateHandoff)
		api.POST("/handoffs/:id/assign", requireOnline, h.AssignHandoff)
		api.POST("/handoffs/:id/resolve", requireOnline, h.ResolveHandoff)
		api.POST("/handoffs/:id/reject", requireOnline, h.RejectHandoff)
		api.POST("/handoffs/:id/comments", requireAgent, h.AddComment)

		// Conversations
		api.GET("/conversations/:id/messages", h.ListMessages)

		// Operators
		api.GET("/agents", h.ListAgents)
		api.GET("/agents/me", requireAgent, h.GetMe)
		api.PUT("/agents/me", requireAgent, h.UpdateMe)
		api.POST("/agents/me/online", requireAgent, h.SetOnline)
		api.GET("/config", h.GetConfig)

		// Event ingress and realtime stream
		api.POST("/events", h.IngestEvent)
		api.GET("/realtime", h.Realtime)
	}
}

// idempotencyLookup reads recorded outcomes from the idempotency table. Misses
// and expired keys are not errors.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, agentID, botID, key string, now time.Time) (*middleware.Replay, error) {
		if db == nil {
			return nil, nil
		}
		rec, err := repo.GetIdempotency(ctx, db, agentID, botID, key, now)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, nil
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

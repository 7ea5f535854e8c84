// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for handoff creation. It validates
// an Idempotency-Key request header, looks up a prior outcome recorded for
// (agent, bot, key), and annotates the request context so downstream handlers
// can:
//   - read the normalized key (GetIdempotencyKey)
//   - answer a retry from the recorded outcome (ReplayOf)
//   - bypass rate limiting when a replay is served
//
// Persistence stays outside the middleware behind IdempotencyLookup.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // Replay: prior outcome for the key
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Replay is the outcome recorded for a previously completed request.
type Replay struct {
	ResourceID string
	Status     int
}

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// ReplayOf returns the recorded outcome when this request repeats a completed
// one.
func ReplayOf(c *gin.Context) (Replay, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return Replay{}, false
	}
	r, ok := v.(Replay)
	return r, ok
}

// IsReplay reports whether ReplayOf would succeed.
func IsReplay(c *gin.Context) bool {
	_, ok := ReplayOf(c)
	return ok
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup returns the still-valid outcome for (agentID, botID, key),
// or nil. TTL is enforced by the implementation. Errors do not block the
// request.
type IdempotencyLookup func(ctx context.Context, agentID, botID, key string, now time.Time) (*Replay, error)

// IdempotencyValidator validates the Idempotency-Key header on unsafe methods
// and consults lookup for a prior outcome.
//
// Behavior:
//   - Safe methods and requests without the header pass through untouched.
//   - An invalid key is answered 400 bad_idempotency_key.
//   - A recorded outcome marks the request as a replay and bypasses the rate
//     limiter. Handlers decide how to serve it.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !unsafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			rec, err := lookup(c.Request.Context(), AgentID(c), BotID(c), key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			} else if rec != nil {
				c.Set(ctxKeyIdemReplay, *rec)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

func unsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

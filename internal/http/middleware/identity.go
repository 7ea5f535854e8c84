// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. Authentication is owned by the
// hosting system, which places the operator id in the Gin context under
// "agentID". For local use and tests the X-Agent-ID header is accepted when no
// upstream identity is present.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderAgentID carries the operator id when no upstream auth is installed.
const HeaderAgentID = "X-Agent-ID"

const ctxKeyAgentID = "agentID"

// Identity copies X-Agent-ID into the context unless an upstream
// authenticator already set "agentID".
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if AgentID(c) == "" {
			if id := strings.TrimSpace(c.GetHeader(HeaderAgentID)); id != "" {
				c.Set(ctxKeyAgentID, id)
			}
		}
		c.Next()
	}
}

// AgentID returns the authenticated operator id, or "".
func AgentID(c *gin.Context) string {
	v, ok := c.Get(ctxKeyAgentID)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// BotID returns the :botId route parameter.
func BotID(c *gin.Context) string { return c.Param("botId") }

// RequireAgent rejects requests without an operator identity.
func RequireAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		if AgentID(c) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing agent identity")
			return
		}
		c.Next()
	}
}

// abortJSON writes the shared error envelope. Handlers use their own helper;
// middleware cannot import handlers.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}

package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OnlineCheck reports whether an operator is currently online for a bot.
type OnlineCheck func(ctx context.Context, botID, agentID string) (bool, error)

// RequireOnline guards operator actions that need a live session. It answers
// 401 without identity, 503 when presence cannot be read, and 422
// agent_offline when the operator is offline.
func RequireOnline(check OnlineCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := AgentID(c)
		if agentID == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing agent identity")
			return
		}
		online, err := check(c.Request.Context(), BotID(c), agentID)
		if err != nil {
			LoggerFrom(c).Error().Err(err).Str("agent_id", agentID).Msg("presence lookup failed")
			abortJSON(c, http.StatusServiceUnavailable, "presence_unavailable", "presence store unavailable")
			return
		}
		if !online {
			abortJSON(c, http.StatusUnprocessableEntity, "agent_offline", "agent is offline")
			return
		}
		c.Next()
	}
}

// Operator HTTP handlers.
//
//   - GET  /agents            (directory with presence)
//   - GET  /agents/me         (caller)
//   - PUT  /agents/me         (update caller profile)
//   - POST /agents/me/online  (set caller presence)
//   - GET  /config            (client-visible settings)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// OnlineRequest sets the caller's presence.
type OnlineRequest struct {
	Online *bool `json:"online" example:"true"`
}

// OnlineResponse echoes the caller's presence.
type OnlineResponse struct {
	Online bool `json:"online"`
}

// ListAgents godoc
// @ID          listAgents
// @Summary     List operators
// @Description Returns the bot's operators with their online status.
// @Tags        Agents
// @Produce     json
// @Param       botId  path  string  true  "Bot ID"
// @Success     200  {array}  services.AgentView
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /bots/{botId}/mod/handoff/agents [get]
func (h *Handlers) ListAgents(c *gin.Context) {
	agents, err := h.agents.List(c.Request.Context(), middleware.BotID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	if agents == nil {
		agents = []services.AgentView{}
	}
	ok(c, http.StatusOK, agents)
}

// GetMe godoc
// @ID          getMe
// @Summary     Current operator
// @Tags        Agents
// @Produce     json
// @Param       botId       path    string  true  "Bot ID"
// @Param       X-Agent-ID  header  string  false "Operator ID (local header)"
// @Success     200  {object} services.AgentView
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Router      /bots/{botId}/mod/handoff/agents/me [get]
func (h *Handlers) GetMe(c *gin.Context) {
	me, err := h.agents.Me(c.Request.Context(), middleware.BotID(c), middleware.AgentID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, me)
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Update current operator profile
// @Tags        Agents
// @Accept      json
// @Produce     json
// @Param       botId       path    string  true  "Bot ID"
// @Param       X-Agent-ID  header  string  false "Operator ID (local header)"
// @Param       body        body    services.AgentProfile  true  "Profile"
// @Success     200  {object} services.AgentView
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Router      /bots/{botId}/mod/handoff/agents/me [put]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var req services.AgentProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	me, err := h.agents.UpdateProfile(c.Request.Context(), middleware.BotID(c), middleware.AgentID(c), req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, me)
}

// SetOnline godoc
// @ID          setOnline
// @Summary     Set current operator presence
// @Description Going online starts (or extends) a session that lapses after AGENT_SESSION_TIMEOUT without activity.
// @Tags        Agents
// @Accept      json
// @Produce     json
// @Param       botId       path    string  true  "Bot ID"
// @Param       X-Agent-ID  header  string  false "Operator ID (local header)"
// @Param       body        body    handlers.OnlineRequest  true  "Presence"
// @Success     200  {object} handlers.OnlineResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Presence store error"
// @Router      /bots/{botId}/mod/handoff/agents/me/online [post]
func (h *Handlers) SetOnline(c *gin.Context) {
	var req OnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `body must be {"online": true|false}`)
		return
	}
	if err := h.agents.SetOnline(c.Request.Context(), middleware.BotID(c), middleware.AgentID(c), *req.Online); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, OnlineResponse{Online: *req.Online})
}

// GetConfig godoc
// @ID          getConfig
// @Summary     Module configuration
// @Tags        Config
// @Produce     json
// @Param       botId  path  string  true  "Bot ID"
// @Success     200  {object} handlers.ClientConfig
// @Router      /bots/{botId}/mod/handoff/config [get]
func (h *Handlers) GetConfig(c *gin.Context) {
	cfg := h.cfg
	if cfg.MetadataChannels == nil {
		cfg.MetadataChannels = []string{}
	}
	ok(c, http.StatusOK, cfg)
}

// Handoff HTTP handlers.
//
// This file exposes the lifecycle endpoints of a bot's handoffs:
//   - GET  /handoffs                (list, ETag support)
//   - POST /handoffs                (create, idempotent)
//   - POST /handoffs/{id}           (update tags)
//   - POST /handoffs/{id}/assign    (pending -> assigned)
//   - POST /handoffs/{id}/resolve   (assigned -> resolved)
//   - POST /handoffs/{id}/reject    (pending|assigned -> rejected)
//   - POST /handoffs/{id}/comments  (append operator comment)
//   - GET  /conversations/{id}/messages
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/services"
	"github.com/tbourn/go-handoff-backend/internal/utils"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// CreateHandoffRequest is the JSON payload for opening a handoff.
type CreateHandoffRequest struct {
	UserID       string `json:"userId"       example:"u-81"`
	UserThreadID string `json:"userThreadId" example:"t-1f3a"`
	UserChannel  string `json:"userChannel"  example:"web"`
	// TimeoutSeconds expires the handoff if still pending; 0 uses the server default.
	TimeoutSeconds int `json:"timeoutSeconds" example:"900"`
}

// UpdateHandoffRequest replaces the tag set of a handoff.
type UpdateHandoffRequest struct {
	Tags []string `json:"tags" example:"vip,billing"`
}

// CommentRequest is the JSON payload for an operator comment.
type CommentRequest struct {
	Content string `json:"content" example:"Customer asked for a refund"`
}

// listConditions reads limit, column and desc from the query string.
func listConditions(c *gin.Context) repo.ListConditions {
	return repo.ListConditions{
		Limit:  utils.ParseLimit(c.Query("limit"), defaultListLimit, maxListLimit),
		Column: strings.TrimSpace(c.Query("column")),
		Desc:   utils.ParseBool(c.Query("desc")),
	}
}

// ListHandoffs godoc
// @ID          listHandoffs
// @Summary     List handoffs
// @Description Returns the bot's handoffs with comments and the latest user message. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Handoffs
// @Produce     json
//
// @Param       botId          path    string  true  "Bot ID"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       limit          query   int     false "Max items"       minimum(1) maximum(1000) default(100)
// @Param       column         query   string  false "Sort column"     Enums(id, status, createdAt, updatedAt, assignedAt, resolvedAt)
// @Param       desc           query   bool    false "Sort descending"
//
// @Success     200  {array}  domain.Handoff
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /bots/{botId}/mod/handoff/handoffs [get]
func (h *Handlers) ListHandoffs(c *gin.Context) {
	ctx := c.Request.Context()
	botID := middleware.BotID(c)
	cond := listConditions(c)

	// ETag pre-check (best effort).
	if h.db != nil {
		count, maxTS, err := repo.HandoffsStats(ctx, h.db, botID)
		var lastEvent int64
		if err == nil {
			lastEvent, err = repo.LatestIncomingTextEventID(ctx, h.db, botID)
		}
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"handoffs:%s:%d:%d:%d:%s:%d:%t"`, botID, count, ts, lastEvent, cond.Column, cond.Limit, cond.Desc)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.handoffs.List(ctx, botID, cond)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Handoff{}
	}
	ok(c, http.StatusOK, items)
}

// CreateHandoff godoc
// @ID          createHandoff
// @Summary     Open a handoff
// @Description Opens a pending handoff for a user conversation. Returns 201 when created and 200 with the existing handoff when one is already active. Retries carrying the same Idempotency-Key replay the first outcome.
// @Tags        Handoffs
// @Accept      json
// @Produce     json
//
// @Param       botId            path    string  true  "Bot ID"
// @Param       Idempotency-Key  header  string  false "Client retry key"
// @Param       body             body    handlers.CreateHandoffRequest  true  "Create payload"
//
// @Success     201  {object}  domain.Handoff
// @Success     200  {object}  domain.Handoff
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bots/{botId}/mod/handoff/handoffs [post]
func (h *Handlers) CreateHandoff(c *gin.Context) {
	ctx := c.Request.Context()
	botID := middleware.BotID(c)

	if rep, replay := middleware.ReplayOf(c); replay {
		if ho, err := h.handoffs.Get(ctx, botID, rep.ResourceID); err == nil {
			c.Header("Idempotent-Replayed", "true")
			ok(c, rep.Status, ho)
			return
		}
		// The recorded handoff is gone; treat the retry as a fresh request.
	}

	var req CreateHandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ho, created, err := h.handoffs.Create(ctx, services.CreateHandoffInput{
		BotID:          botID,
		UserID:         req.UserID,
		UserThreadID:   req.UserThreadID,
		UserChannel:    req.UserChannel,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if key, has := middleware.GetIdempotencyKey(c); has && h.db != nil {
		_, ierr := repo.CreateIdempotency(ctx, h.db, middleware.AgentID(c), botID, key, ho.ID, status, h.idemTTL)
		if ierr != nil && !errors.Is(ierr, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(ierr).Str("handoff_id", ho.ID).Msg("record idempotency key")
		}
	}
	ok(c, status, ho)
}

// UpdateHandoff godoc
// @ID          updateHandoff
// @Summary     Update handoff tags
// @Description Replaces the tag set of a handoff. Allowed in every status.
// @Tags        Handoffs
// @Accept      json
// @Produce     json
//
// @Param       botId  path  string  true  "Bot ID"
// @Param       id     path  string  true  "Handoff ID"
// @Param       body   body  handlers.UpdateHandoffRequest  true  "Tags"
//
// @Success     200  {object} domain.Handoff
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Handoff not found"
// @Router      /bots/{botId}/mod/handoff/handoffs/{id} [post]
func (h *Handlers) UpdateHandoff(c *gin.Context) {
	var req UpdateHandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ho, err := h.handoffs.UpdateTags(c.Request.Context(), middleware.BotID(c), c.Param("id"), req.Tags)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ho)
}

// AssignHandoff godoc
// @ID          assignHandoff
// @Summary     Assign a handoff to the caller
// @Description Moves a pending handoff to assigned, opens the operator thread and replays recent user messages into it. The caller must be online.
// @Tags        Handoffs
// @Produce     json
//
// @Param       botId       path    string  true  "Bot ID"
// @Param       id          path    string  true  "Handoff ID"
// @Param       X-Agent-ID  header  string  false "Operator ID (local header)"
//
// @Success     200  {object} domain.Handoff
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     404  {object} handlers.ErrorResponse "Handoff not found"
// @Failure     409  {object} handlers.ErrorResponse "Invalid transition"
// @Failure     422  {object} handlers.ErrorResponse "Operator offline"
// @Router      /bots/{botId}/mod/handoff/handoffs/{id}/assign [post]
func (h *Handlers) AssignHandoff(c *gin.Context) {
	h.lifecycle(c, h.handoffs.Assign)
}

// ResolveHandoff godoc
// @ID          resolveHandoff
// @Summary     Resolve a handoff
// @Description Moves an assigned handoff to resolved and returns the conversation to automation.
// @Tags        Handoffs
// @Produce     json
//
// @Param       botId       path    string  true  "Bot ID"
// @Param       id          path    string  true  "Handoff ID"
// @Param       X-Agent-ID  header  string  false "Operator ID (local header)"
//
// @Success     200  {object} domain.Handoff
// @Failure     404  {object} handlers.ErrorResponse "Handoff not found"
// @Failure     409  {object} handlers.ErrorResponse "Invalid transition"
// @Failure     422  {object} handlers.ErrorResponse "Operator offline"
// @Router      /bots/{botId}/mod/handoff/handoffs/{id}/resolve [post]
func (h *Handlers) ResolveHandoff(c *gin.Context) {
	h.lifecycle(c, h.handoffs.Resolve)
}

// RejectHandoff godoc
// @ID          rejectHandoff
// @Summary     Reject a handoff
// @Description Moves a pending or assigned handoff to rejected and returns the conversation to automation.
// @Tags        Handoffs
// @Produce     json
//
// @Param       botId       path    string  true  "Bot ID"
// @Param       id          path    string  true  "Handoff ID"
// @Param       X-Agent-ID  header  string  false "Operator ID (local header)"
//
// @Success     200  {object} domain.Handoff
// @Failure     404  {object} handlers.ErrorResponse "Handoff not found"
// @Failure     409  {object} handlers.ErrorResponse "Invalid transition"
// @Failure     422  {object} handlers.ErrorResponse "Operator offline"
// @Router      /bots/{botId}/mod/handoff/handoffs/{id}/reject [post]
func (h *Handlers) RejectHandoff(c *gin.Context) {
	h.lifecycle(c, h.handoffs.Reject)
}

type lifecycleFunc func(ctx context.Context, botID, id, agentID string) (*domain.Handoff, error)

func (h *Handlers) lifecycle(c *gin.Context, fn lifecycleFunc) {
	ho, err := fn(c.Request.Context(), middleware.BotID(c), c.Param("id"), middleware.AgentID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ho)
}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on a handoff
// @Description Appends an operator comment and extends the caller's session.
// @Tags        Handoffs
// @Accept      json
// @Produce     json
//
// @Param       botId       path    string  true  "Bot ID"
// @Param       id          path    string  true  "Handoff ID"
// @Param       X-Agent-ID  header  string  false "Operator ID (local header)"
// @Param       body        body    handlers.CommentRequest  true  "Comment"
//
// @Success     201  {object} domain.Comment
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     404  {object} handlers.ErrorResponse "Handoff not found"
// @Router      /bots/{botId}/mod/handoff/handoffs/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cm, err := h.handoffs.AddComment(c.Request.Context(), middleware.BotID(c), c.Param("id"), middleware.AgentID(c), req.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cm)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List conversation messages
// @Description Returns the event log of a thread, newest first unless column/desc say otherwise.
// @Tags        Conversations
// @Produce     json
//
// @Param       botId   path   string  true  "Bot ID"
// @Param       id      path   string  true  "Thread ID"
// @Param       limit   query  int     false "Max items"    minimum(1) maximum(1000) default(100)
// @Param       column  query  string  false "Sort column"  Enums(id, createdOn)
// @Param       desc    query  bool    false "Sort descending"
//
// @Success     200  {array}  domain.Event
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Router      /bots/{botId}/mod/handoff/conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	events, err := h.handoffs.Messages(c.Request.Context(), middleware.BotID(c), c.Param("id"), listConditions(c))
	if err != nil {
		failErr(c, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	ok(c, http.StatusOK, events)
}

// Event ingress.
//
// The hosting system posts every inbound conversational event here. The
// event is appended to the event log, run through the piping middleware, and
// handed to the automation runtime unless the pipe consumed it.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/pipe"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// IngestEventRequest is an inbound event as posted by the hosting system.
type IngestEventRequest struct {
	ThreadID  string         `json:"threadId"  binding:"required,max=128" example:"t-1f3a"`
	Channel   string         `json:"channel"   binding:"required,max=64"  example:"web"`
	Type      string         `json:"type"      binding:"required,max=64"  example:"text"`
	Direction string         `json:"direction" binding:"omitempty,oneof=incoming outgoing" example:"incoming"`
	Target    string         `json:"target"    example:"u-81"`
	Payload   domain.JSONMap `json:"payload"   swaggertype:"object"`
}

// IngestEventResponse reports what happened to the event.
type IngestEventResponse struct {
	EventID   int64  `json:"eventId"`
	Consumed  bool   `json:"consumed"`
	Direction string `json:"direction,omitempty" example:"user"`
	HandoffID string `json:"handoffId,omitempty"`
}

// IngestEvent godoc
// @ID          ingestEvent
// @Summary     Ingest a conversational event
// @Description Persists the event and pipes it between the sides of an active handoff. Events not consumed are passed to the automation runtime.
// @Tags        Events
// @Accept      json
// @Produce     json
// @Param       botId  path  string  true  "Bot ID"
// @Param       body   body  handlers.IngestEventRequest  true  "Event"
// @Success     200  {object} handlers.IngestEventResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     502  {object} handlers.ErrorResponse "Forwarding failed"
// @Failure     503  {object} handlers.ErrorResponse "Routing cache not warm"
// @Router      /bots/{botId}/mod/handoff/events [post]
func (h *Handlers) IngestEvent(c *gin.Context) {
	ctx := c.Request.Context()
	var req IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid event: "+err.Error())
		return
	}
	dir := req.Direction
	if dir == "" {
		dir = domain.DirectionIncoming
	}
	ev := &domain.Event{
		BotID:     middleware.BotID(c),
		ThreadID:  strings.TrimSpace(req.ThreadID),
		Channel:   strings.TrimSpace(req.Channel),
		Direction: dir,
		Type:      strings.TrimSpace(req.Type),
		Target:    req.Target,
		Payload:   req.Payload,
	}
	// Refuse before logging so a retried event is stored once.
	if !h.pipe.Ready() {
		notWarm(c, pipe.ErrCacheNotWarm)
		return
	}
	if err := repo.CreateEvent(ctx, h.db, ev); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	res, err := h.pipe.Handle(ctx, ev)
	resp := IngestEventResponse{EventID: ev.ID, Consumed: res.Consumed, Direction: string(res.Direction), HandoffID: res.HandoffID}
	switch {
	case errors.Is(err, pipe.ErrCacheNotWarm):
		notWarm(c, err)
		return
	case err != nil && res.Consumed:
		fail(c, http.StatusBadGateway, ErrCodeDeliveryFailed, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if !res.Consumed && h.runtime != nil {
		if err := h.runtime.Handle(ctx, ev); err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
	}
	ok(c, http.StatusOK, resp)
}

func notWarm(c *gin.Context, err error) {
	c.Header("Retry-After", "1")
	fail(c, http.StatusServiceUnavailable, ErrCodeCacheNotWarm, err.Error())
}

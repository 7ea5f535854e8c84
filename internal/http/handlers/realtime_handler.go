// Realtime notifications over websocket.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
)

const realtimeWriteTimeout = 5 * time.Second

// Realtime godoc
// @ID          realtime
// @Summary     Realtime notifications
// @Description Upgrades to a websocket streaming {botId, resource, type, id, payload} JSON messages for the bot. Slow readers lose messages.
// @Tags        Realtime
// @Param       botId  path  string  true  "Bot ID"
// @Success     101  {string} string "Switching Protocols"
// @Router      /bots/{botId}/mod/handoff/realtime [get]
func (h *Handlers) Realtime(c *gin.Context) {
	lg := middleware.LoggerFrom(c)
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		// Accept has already written the HTTP error.
		lg.Debug().Err(err).Msg("websocket accept failed")
		c.Abort()
		return
	}
	defer conn.CloseNow()

	sub := h.realtime.Subscribe(middleware.BotID(c))
	defer h.realtime.Unsubscribe(sub)

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// once the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case body, open := <-sub.C:
			if !open {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := write(ctx, conn, body); err != nil {
				if !errors.Is(err, context.Canceled) {
					lg.Debug().Err(err).Msg("realtime write failed")
				}
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, realtimeWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, body)
}

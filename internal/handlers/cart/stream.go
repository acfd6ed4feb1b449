package cart

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/middleware"
	"podreseller_back_end/internal/models"
)

const (
	streamConnected    = "connected"
	streamPingInterval = 30 * time.Second
	streamWriteWait    = 10 * time.Second
)

// Streams authenticate with the bearer token, not cookies, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Snapshot is the frame sent on connect and after every cart change.
type Snapshot struct {
	Type  string            `json:"type"`
	Event string            `json:"event"`
	Items []models.CartItem `json:"items"`
	Count int               `json:"count"`
	Total float64           `json:"total"`
}

// Stream handles GET /carts/ws: the identity's cart is pushed on connect and
// again whenever the cart channel reports a change.
func (h *Handler) Stream(c *gin.Context) {
	if h.feed == nil {
		_ = c.Error(apperr.Unavailable("cart sync is not configured"))
		return
	}

	email := middleware.Email(c)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, stop, err := h.feed.Subscribe(ctx, email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer stop()

	log := logger.WithCtx(ctx)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("cart stream upgrade", "email", email, "error", err)
		return
	}
	defer conn.Close()

	// Client frames are ignored; a read error means the peer is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := h.sendSnapshot(ctx, conn, email, streamConnected); err != nil {
		log.Debug("cart stream closed", "email", email, "error", err)
		return
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.sendSnapshot(ctx, conn, email, event); err != nil {
				log.Debug("cart stream closed", "email", email, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sendSnapshot(ctx context.Context, conn *websocket.Conn, email, event string) error {
	items, err := h.store.ByEmail(ctx, email)
	if err != nil {
		return err
	}

	snap := Snapshot{Type: "cart_updated", Event: event, Items: items, Count: len(items)}
	for _, it := range items {
		snap.Total += it.Price
	}

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(snap)
}

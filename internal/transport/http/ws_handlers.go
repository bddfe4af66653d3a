package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat-server/internal/auth"
	"github.com/vovakirdan/pairchat-server/internal/config"
	"github.com/vovakirdan/pairchat-server/internal/core"
	"github.com/vovakirdan/pairchat-server/internal/proto"
)

// WSHandlers upgrades HTTP connections and bridges them to the relay core.
// It translates connection lifecycle events into registry and session
// manager calls; no business logic lives here.
type WSHandlers struct {
	registry *core.Registry
	manager  *core.Manager
	presence *core.Publisher
	auth     *auth.Service
	cfg      config.Config
	log      *zerolog.Logger
}

// NewWSHandlers builds the WebSocket handlers.
func NewWSHandlers(registry *core.Registry, manager *core.Manager, presence *core.Publisher, authService *auth.Service, cfg config.Config, logger *zerolog.Logger) *WSHandlers {
	return &WSHandlers{
		registry: registry,
		manager:  manager,
		presence: presence,
		auth:     authService,
		cfg:      cfg,
		log:      logger,
	}
}

// Presence serves the push-only presence feed.
// GET /ws/presence?token=<jwt>
func (h *WSHandlers) Presence(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The presence feed is push-only; the reader discards inbound frames
	// and only surfaces the client going away.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	h.log.Debug().Str("username", claims.Username).Msg("presence subscriber connected")

	err = h.presence.Serve(ctx, func(ctx context.Context, names []string) error {
		return wsjson.Write(ctx, conn, proto.PresenceSnapshot(names))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.log.Debug().Err(err).Str("username", claims.Username).Msg("presence subscriber dropped")
	}

	conn.Close(websocket.StatusNormalClosure, "closing")
}

// Chat runs a pairwise chat connection: registers it, opens the exclusive
// session, then relays inbound text frames until expiry or disconnect.
// GET /ws/chat/:partner?token=<jwt>
func (h *WSHandlers) Chat(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	partner := c.Param("partner")
	if partner == "" || partner == claims.Username {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat partner"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	peer := core.NewPeer(claims.Username, h.cfg.SendQueueSize)
	h.registry.Register(peer)
	defer h.registry.Unregister(peer)

	sess, err := h.manager.Open(claims.Username, partner)
	if err != nil {
		_ = conn.Write(ctx, websocket.MessageText, []byte(proto.AlreadyPairedNotice))
		conn.Close(websocket.StatusPolicyViolation, "already paired")
		h.log.Info().
			Str("username", claims.Username).
			Str("partner", partner).
			Msg("pairing rejected")
		return
	}
	defer h.manager.Leave(sess, claims.Username)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, peer)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, peer)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	if err != nil && !errors.Is(err, context.Canceled) {
		if s := websocket.CloseStatus(err); s == -1 {
			h.log.Warn().Err(err).Str("username", claims.Username).Msg("ws connection closed with error")
		}
	}

	code, reason := peer.CloseStatus()
	conn.Close(websocket.StatusCode(code), reason)
}

// readLoop feeds inbound text frames to the session manager. It exits when
// the client disconnects or the session is over.
func (h *WSHandlers) readLoop(ctx context.Context, conn *websocket.Conn, peer *core.Peer) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		err = h.manager.Relay(ctx, peer.Username, string(data))
		switch {
		case errors.Is(err, core.ErrSessionEnded):
			// Session expired or was torn down; the core already delivered
			// the notices and closed the peers.
			return nil
		case errors.Is(err, core.ErrPartnerUnavailable):
			// Sender was notified in-band; keep the connection alive.
		}
	}
}

// writeLoop drains the peer's outbound queue onto the wire. On close it
// flushes frames enqueued just before the close, e.g. a disconnect notice.
func (h *WSHandlers) writeLoop(ctx context.Context, conn *websocket.Conn, peer *core.Peer) error {
	for {
		select {
		case frame := <-peer.Frames():
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return err
			}
		case <-peer.Done():
			for {
				select {
				case frame := <-peer.Frames():
					if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// authenticate resolves the JWT on a WebSocket handshake request. Writes
// the 401 itself when validation fails.
func (h *WSHandlers) authenticate(c *gin.Context) (*auth.Claims, bool) {
	token := tokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization token"})
		return nil, false
	}

	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("invalid ws token")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return nil, false
	}
	return claims, true
}

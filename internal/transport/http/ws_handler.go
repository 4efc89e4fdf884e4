package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/auth"
	"github.com/vovakirdan/gamenode/internal/config"
	"github.com/vovakirdan/gamenode/internal/core"
	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/utils"
)

var errClosedByServer = errors.New("closed by server")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub *core.Hub
	cfg config.Config
	jwt *auth.JWTConfig
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *WSHandler {
	l := logger.With().Str("component", "ws").Logger()
	return &WSHandler{
		hub: hub,
		cfg: cfg,
		jwt: &auth.JWTConfig{Secret: []byte(cfg.JWTSecret)},
		log: &l,
	}
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if h.cfg.Production() {
		return &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
	}
	return &websocket.AcceptOptions{InsecureSkipVerify: true}
}

// handshake resolves the connecting user. Failures leave the username empty;
// the hub drops such clients.
func (h *WSHandler) handshake(r *stdhttp.Request) string {
	username, err := auth.Identify(h.jwt, r.URL.Query().Get("token"))
	if err != nil {
		if !errors.Is(err, auth.ErrMissingToken) {
			h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("token rejected")
		}
		return ""
	}
	return username
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	username := h.handshake(r)

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), username)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.heartbeatLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errClosedByServer) {
		err = nil
		reason = errClosedByServer.Error()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID()).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.cfg.MaxCommandsPerMinute)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID()).Msg("malformed inbound ignored")
			continue
		}

		cmd := inboundToCommand(inbound)
		if cmd == nil {
			continue
		}
		if !limiter.allow(time.Now()) {
			h.log.Warn().Str("client_id", client.ID()).Str("username", client.Username).Msg("command rate limit exceeded")
			continue
		}
		h.hub.Submit(client, cmd)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID()).Msg("write ws event")
				return err
			}
		case <-client.Done():
			h.flush(ctx, conn, client)
			return errClosedByServer
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// heartbeatLoop pings the peer every heartbeat interval. It runs apart from
// writeLoop so a slow pong never holds back queued pushes.
func (h *WSHandler) heartbeatLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	if h.cfg.HeartbeatInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.ping(ctx, conn); err != nil {
				h.log.Info().Err(err).Str("client_id", client.ID()).Msg("heartbeat failed")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) ping(ctx context.Context, conn *websocket.Conn) error {
	timeout := h.cfg.HeartbeatTimeout
	if timeout <= 0 {
		timeout = h.cfg.HeartbeatInterval
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Ping(pctx)
}

// flush writes events queued before the server closed the client.
func (h *WSHandler) flush(ctx context.Context, conn *websocket.Conn, client *core.Client) {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				return
			}
		default:
			return
		}
	}
}

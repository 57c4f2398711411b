package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	wshandler "github.com/Temutjin2k/schoolbus-hub/internal/adapter/http/ws"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/hub"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
)

type SessionHub interface {
	Register(ctx context.Context, identity models.Identity) (*hub.Session, error)
	Unregister(ctx context.Context, s *hub.Session)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, s *hub.Session, raw []byte)
}

type WebSocket struct {
	hub        SessionHub
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	opts       wshandler.ConnOptions
	l          logger.Logger
}

func NewWebSocket(h SessionHub, dispatcher Dispatcher, opts wshandler.ConnOptions, l logger.Logger) *WebSocket {
	return &WebSocket{
		hub:        h,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// clients are mobile apps and the admin panel on other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: opts,
		l:    l,
	}
}

// HandleWS godoc
// @Summary      Live session
// @Description  Upgrades to a websocket session. The access token is read from the Authorization header or the token query parameter and verified before the upgrade.
// @Tags         Realtime
// @Param        token  query  string  false  "Access token"
// @Success      101
// @Failure      401  {object}  map[string]any
// @Router       /ws [get]
func (h *WebSocket) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_connect")

	identity, ok := models.IdentityFromContext(ctx)
	if !ok {
		unauthorizedResponse(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied to the client
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	// the session outlives the request context
	ctx = context.WithoutCancel(ctx)

	session, err := h.hub.Register(ctx, identity)
	if err != nil {
		code, reason := websocket.CloseInternalServerErr, "session unavailable"
		if errors.Is(err, hub.ErrClosed) {
			code, reason = websocket.CloseGoingAway, "server shutting down"
			h.l.Info(ctx, "session refused, hub is closed")
		} else {
			h.l.Error(ctx, "failed to register session", err)
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		_ = conn.Close()
		return
	}
	ctx = wrap.WithSessionID(ctx, session.ID())
	defer h.hub.Unregister(ctx, session)

	if err := wshandler.NewConn(conn, session, h.opts, h.l).Run(ctx, h.dispatcher.Dispatch); err != nil {
		h.l.Debug(ctx, "websocket closed", "reason", err.Error())
	}
}

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vttrelay/internal/auth"
	"vttrelay/internal/monitor"
	"vttrelay/internal/services/gameroom"
)

const (
	// Map states carry fog paths and drawings; they get big.
	maxMessageBytes = 4 << 20
	eventTimeout    = 5 * time.Second
)

type WsServer struct {
	hub           *Hub
	router        *Router
	store         *gameroom.Store
	hasher        auth.Hasher
	metrics       *monitor.Metrics
	allowedOrigin *regexp.Regexp
}

func NewWsServer(hub *Hub, store *gameroom.Store, hasher auth.Hasher, metrics *monitor.Metrics, allowedOrigin *regexp.Regexp) *WsServer {
	srv := &WsServer{
		hub:           hub,
		router:        NewRouter(),
		store:         store,
		hasher:        hasher,
		metrics:       metrics,
		allowedOrigin: allowedOrigin,
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	if origin := ginCtx.GetHeader("Origin"); origin != "" && !s.allowedOrigin.MatchString(origin) {
		ginCtx.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	rawConn, err := websocket.Accept(
		ginCtx.Writer, ginCtx.Request,
		// Origin already checked against the configured pattern above.
		&websocket.AcceptOptions{InsecureSkipVerify: true},
	)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxMessageBytes)

	// ─────────────────── Client connected ────────────────────────
	conn := newClientConn(uuid.NewString(), rawConn)
	s.hub.Register(conn)
	s.metrics.ActiveConnections.Inc()

	sess := newSession(conn, s.hub, s.store, s.hasher, s.metrics)

	go s.reader(sess, conn)
	go s.pinger(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, EventJoinGame,
		func(_ context.Context, sess *Session, req JoinGameBody) error {
			return sess.handleJoinGame(req)
		})

	Register(s.router, EventMap,
		func(_ context.Context, sess *Session, body json.RawMessage) error {
			return sess.handleSetShared(gameroom.SharedMap, EventMap, body)
		})
	Register(s.router, EventMapState,
		func(_ context.Context, sess *Session, body json.RawMessage) error {
			return sess.handleSetShared(gameroom.SharedMapState, EventMapState, body)
		})
	Register(s.router, EventManifest,
		func(_ context.Context, sess *Session, body json.RawMessage) error {
			return sess.handleSetShared(gameroom.SharedManifest, EventManifest, body)
		})

	Register(s.router, EventMapStateUpdate,
		func(_ context.Context, sess *Session, body json.RawMessage) error {
			return sess.handleSharedUpdate(gameroom.SharedMapState, EventMapStateUpdate, body)
		})
	Register(s.router, EventManifestUpdate,
		func(_ context.Context, sess *Session, body json.RawMessage) error {
			return sess.handleSharedUpdate(gameroom.SharedManifest, EventManifestUpdate, body)
		})

	Register(s.router, EventPlayerState,
		func(_ context.Context, sess *Session, state gameroom.PlayerState) error {
			return sess.handlePlayerState(state)
		})
	Register(s.router, EventPlayerPointer,
		func(_ context.Context, sess *Session, body json.RawMessage) error {
			return sess.handlePlayerPointer(body)
		})
	Register(s.router, EventSignal,
		func(_ context.Context, sess *Session, req SignalBody) error {
			return sess.handleSignal(req)
		})

	// The transport close path runs the same sequence; an explicit event
	// lets a client leave cleanly before closing the socket.
	Register(s.router, EventDisconnecting,
		func(_ context.Context, sess *Session, _ json.RawMessage) error {
			sess.handleDisconnect()
			return nil
		})
}

// reader processes one connection's events in arrival order. Every handler
// runs inside a failure boundary: a bad event is logged and swallowed so it
// can never take down the connection, let alone another room.
func (s *WsServer) reader(sess *Session, conn *clientConn) {
	defer func() {
		sess.handleDisconnect()
		s.metrics.ActiveConnections.Dec()
		_ = conn.Close("")
	}()

	for {
		var env Envelope
		if err := wsjson.Read(context.Background(), conn.rawConn, &env); err != nil {
			return // client closed or errored
		}
		s.metrics.EventsHandled.Inc()

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		err := s.dispatch(ctx, sess, env)
		cancel()

		if err != nil {
			zap.L().Warn("ws.event",
				zap.String("event", env.Event),
				zap.String("conn", conn.ID()),
				zap.Error(err),
			)
		}
	}
}

// dispatch converts handler panics into errors; malformed payloads must
// never crash the process.
func (s *WsServer) dispatch(ctx context.Context, sess *Session, env Envelope) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return s.router.dispatch(ctx, sess, env)
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := conn.rawConn.Ping(ctx)
		cancel()
		if err != nil {
			_ = conn.rawConn.Close(websocket.StatusNormalClosure, "ping timeout")
			return
		}
	}
}

package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vttrelay/internal/iceservers"
	"vttrelay/internal/ws"
)

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	wsSrv      *ws.WsServer
	iceServers []iceservers.Server
	grace      time.Duration
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer, iceServers []iceservers.Server, grace time.Duration) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		iceServers: iceServers,
		grace:      grace,
		ctx:        ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler: h.buildEngine(),
	}

	return h.srv.Serve(h.ln)
}

func (h *httpServer) buildEngine() *gin.Engine {
	routerEngine := gin.New()

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	routerEngine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	routerEngine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	routerEngine.GET("/iceservers", func(c *gin.Context) {
		c.JSON(http.StatusOK, h.iceServers)
	})
	routerEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	return routerEngine
}

// Dispose gracefully shuts the HTTP server down, waiting up to the
// configured grace period for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	// The parent signal context is already cancelled by the time Dispose
	// runs, so the grace period gets its own context.
	ctx, cancel := context.WithTimeout(context.Background(), h.grace)
	defer cancel()

	// Ask the server to shut down.
	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}

	// If the context's deadline expired, log it for observability.
	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
	}

	return nil
}

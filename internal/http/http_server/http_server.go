package http_server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files

	"drawboardgo/internal/http/authhandler"
	"drawboardgo/internal/http/boardhandler"
	"drawboardgo/internal/http/roomhandler"
	"drawboardgo/internal/services/board"
	"drawboardgo/internal/services/user"
	"drawboardgo/internal/ws"
)

type httpServer struct {
	listenPort   uint16
	srv          http.Server
	ln           net.Listener
	boardService board.IBoardService
	userService  user.IUserService
	hub          *ws.Hub
	wsSrv        *ws.WsServer
	ctx          context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer, hub *ws.Hub,
	boardService board.IBoardService, userService user.IUserService) *httpServer {
	return &httpServer{
		listenPort:   listenPort,
		wsSrv:        wsSrv,
		hub:          hub,
		boardService: boardService,
		userService:  userService,
		ctx:          ctx,
	}
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	// Static files for the web UI
	routerEngine.StaticFile("", "public/index.html")
	routerEngine.StaticFile("/board.js", "public/board.js")

	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// Realtime endpoints; every other path is rejected before any upgrade.
	routerEngine.GET("/ws", h.wsSrv.Handle)
	routerEngine.GET("/ws/:room", h.wsSrv.Handle)

	// REST API
	ah := authhandler.New(h.userService)
	ah.Register(routerEngine)

	authed := routerEngine.Group("/", ah.RequireAuth)
	bh := boardhandler.New(h.boardService)
	bh.Register(routerEngine, authed)

	rh := roomhandler.New(h.hub)
	rh.Register(routerEngine)

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
		log.Println("shutdown timeout (10 s)")
	}

	return nil
}

package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/chat"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

//go:embed static/index.html
var staticFS embed.FS

const shutdownTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 同一オリジンから配信するページのみを想定しているのだ
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server はストーリーボード生成とチャットを HTTP で提供します。
type Server struct {
	orch        *storyboard.Orchestrator
	conv        *chat.Conversation
	hub         *Hub
	engine      *gin.Engine
	runCtx      context.Context
	unsubscribe func()
}

// New はルーティングを設定した Server を作成します。
// ctx は画面から開始された生成処理の寿命になり、キャンセルされると実行中の生成も止まります。
func New(ctx context.Context, orch *storyboard.Orchestrator, conv *chat.Conversation) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("Orchestrator は必須です")
	}
	if conv == nil {
		return nil, fmt.Errorf("Conversation は必須です")
	}

	s := &Server{
		orch:   orch,
		conv:   conv,
		hub:    NewHub(),
		runCtx: ctx,
	}
	s.unsubscribe = orch.Store().Subscribe(s.hub.Publish)
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", s.handleIndex)
	r.GET("/healthz", s.handleHealth)
	r.GET("/ws/storyboard", s.handleStoryboardWS)

	api := r.Group("/api")
	{
		api.GET("/sample", s.handleSample)
		api.GET("/storyboard", s.handleGetStoryboard)
		api.POST("/storyboard", s.handleCreateStoryboard)
		api.GET("/chat", s.handleGetChat)
		api.POST("/chat", s.handlePostChat)
	}
	return r
}

// Handler は http.Handler として使えるルーターを返します。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close はストアの購読を解除します。
func (s *Server) Close() {
	s.unsubscribe()
}

// Run は addr で待ち受け、ctx がキャンセルされたら猶予付きで停止するのだ。
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("HTTPサーバーを起動したのだ", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーが異常終了しました: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("HTTPサーバーを停止するのだ")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	defer s.Close()
	return g.Wait()
}

// requestLogger はリクエストごとに1行の構造化ログを出力します。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	}
}

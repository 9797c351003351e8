package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"github.com/gin-gonic/gin"
)

type createStoryboardRequest struct {
	Script string `json:"script"`
}

type createStoryboardResponse struct {
	Generation uint64 `json:"generation"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply    domain.ChatMessage   `json:"reply"`
	Messages []domain.ChatMessage `json:"messages"`
	Error    string               `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const invalidRequestMessage = "Invalid request body."

func (s *Server) handleIndex(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: domain.UnknownErrorMessage})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSample(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"script": domain.SampleScript})
}

func (s *Server) handleGetStoryboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Store().Snapshot())
}

// handleCreateStoryboard は生成を開始して、完了を待たずに 202 を返します。
// 進捗は GET /api/storyboard か WebSocket で受け取ります。
func (s *Server) handleCreateStoryboard(c *gin.Context) {
	var req createStoryboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: invalidRequestMessage})
		return
	}

	gen, done, err := s.orch.Start(s.runCtx, req.Script)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: domain.UserMessage(err)})
		return
	}

	go func() {
		if err := <-done; err != nil && !errors.Is(err, storyboard.ErrSuperseded) {
			slog.Warn("ストーリーボード生成が失敗したのだ", "generation", gen, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, createStoryboardResponse{Generation: gen})
}

func (s *Server) handleGetChat(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":         s.conv.ID(),
		"messages":   s.conv.Messages(),
		"responding": s.conv.Responding(),
	})
}

// handlePostChat は1ターン分の会話を行います。
// モデル呼び出しの失敗は謝罪文の返答として 200 で返し、会話は継続できます。
func (s *Server) handlePostChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: invalidRequestMessage})
		return
	}

	reply, err := s.conv.Send(c.Request.Context(), req.Message)
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: domain.UserMessage(err)})
		return
	case errors.Is(err, domain.ErrTurnInProgress):
		c.JSON(http.StatusConflict, errorResponse{Error: domain.UserMessage(err)})
		return
	}

	resp := chatResponse{Reply: reply, Messages: s.conv.Messages()}
	if err != nil {
		resp.Error = domain.UserMessage(err)
	}
	c.JSON(http.StatusOK, resp)
}

// handleStoryboardWS は現在の状態を送ったあと、状態が変わるたびにスナップショットを送り続けます。
func (s *Server) handleStoryboardWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket へのアップグレードに失敗したのだ", "error", err)
		return
	}
	defer conn.Close()

	client := newWSClient(conn)
	if err := s.hub.join(client, s.orch.Store().Snapshot); err != nil {
		slog.Error("初期スナップショットの送信準備に失敗したのだ", "error", err)
		return
	}
	slog.Debug("WebSocket client connected", "clients", s.hub.Len())

	go func() {
		client.readLoop()
		s.hub.leave(client)
	}()
	client.writeLoop()
	s.hub.leave(client)
}

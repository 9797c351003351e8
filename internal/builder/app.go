package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shouni/go-storyboard-kit/internal/config"

	"google.golang.org/genai"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config // Configは、環境変数とフラグから組み立てた設定です（APIキー、モデル名など）。
	aiClient   *genai.Client  // aiClient はGeminiの通信に使う共通クライアント
	httpClient *http.Client   // httpClient は genai が使う HTTP クライアント
}

// NewAppContext は設定を検証し、Gemini クライアントを初期化した AppContext を返す
// APIキーが無い場合はここで domain.ErrConfiguration を返し、以降のリクエストは発生しません。
func NewAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config は必須です")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	aiClient, err := InitializeAIClient(ctx, cfg.GeminiAPIKey, httpClient)
	if err != nil {
		return nil, err
	}

	return &AppContext{
		Config:     cfg,
		aiClient:   aiClient,
		httpClient: httpClient,
	}, nil
}

package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultChatModel  = "gemini-2.5-flash"
)

// ContentModel は構造化出力付きのテキスト生成を行う Gemini API の窓口です。
// *genai.Models がこれを満たします。
type ContentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ImageModel は Imagen による画像生成の窓口です。*genai.Models がこれを満たします。
type ImageModel interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// ClientConfig は genai クライアントの生成に必要な設定です。
type ClientConfig struct {
	APIKey     string
	HTTPClient *http.Client
}

// NewClient は Gemini API 用の genai クライアントを初期化します。
// APIキーが無い場合はリクエストを一切行わずに domain.ErrConfiguration を返します。
func NewClient(ctx context.Context, cfg ClientConfig) (*genai.Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, domain.ErrConfiguration
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shouni/go-storyboard-kit/pkg/chat"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const defaultRateBurst = 1

// BuildSceneParser は台本の場面分解を担当する SceneParser を構築します。
func BuildSceneParser(appCtx *AppContext) (*gemini.SceneParser, error) {
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの作成に失敗しました: %w", err)
	}

	cfg := appCtx.Config
	return gemini.NewSceneParser(appCtx.aiClient.Models, pb, gemini.SceneParserConfig{
		Model:       cfg.TextModel,
		Temperature: genai.Ptr(cfg.Temperature),
		CacheTTL:    cfg.SceneCacheTTL,
	})
}

// BuildImageGenerator は場面画像の生成を担当する ImageGenerator を構築します。
func BuildImageGenerator(appCtx *AppContext) (*gemini.ImageGenerator, error) {
	pb := prompts.NewCinematicPromptBuilder(appCtx.Config.ImageStylePrefix)
	return gemini.NewImageGenerator(appCtx.aiClient.Models, appCtx.Config.ImageModel, pb)
}

// BuildOrchestrator はストーリーボード生成の司令塔を構築します。
// store が nil の場合は新しい Store を作成します。
func BuildOrchestrator(appCtx *AppContext, store *storyboard.Store) (*storyboard.Orchestrator, error) {
	parser, err := BuildSceneParser(appCtx)
	if err != nil {
		return nil, fmt.Errorf("SceneParserの初期化に失敗したのだ: %w", err)
	}
	images, err := BuildImageGenerator(appCtx)
	if err != nil {
		return nil, fmt.Errorf("ImageGeneratorの初期化に失敗したのだ: %w", err)
	}

	cfg := appCtx.Config
	opts := []storyboard.Option{storyboard.WithImageTimeout(cfg.ImageTimeout)}
	if cfg.RateInterval > 0 {
		opts = append(opts, storyboard.WithRateLimiter(rate.NewLimiter(rate.Every(cfg.RateInterval), defaultRateBurst)))
	}

	return storyboard.NewOrchestrator(parser, images, store, opts...)
}

// BuildConversation はチャット画面1つ分の会話を構築します。
func BuildConversation(appCtx *AppContext) (*chat.Conversation, error) {
	cfg := appCtx.Config
	client, err := gemini.NewChatClient(appCtx.aiClient.Chats, cfg.ChatModel, cfg.SystemInstruction, genai.Ptr(cfg.Temperature))
	if err != nil {
		return nil, fmt.Errorf("ChatClientの初期化に失敗したのだ: %w", err)
	}
	return chat.NewConversation(client)
}

// InitializeAIClient は genai クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string, httpClient *http.Client) (*genai.Client, error) {
	aiClient, err := gemini.NewClient(ctx, gemini.ClientConfig{
		APIKey:     apiKey,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"
)

const sceneCacheCleanupInterval = 15 * time.Minute

// SceneParserConfig は SceneParser の挙動を決める設定です。
type SceneParserConfig struct {
	Model       string
	Temperature *float32
	// CacheTTL が 0 の場合、解析結果はキャッシュしません。
	CacheTTL time.Duration
}

// SceneParser は台本全体をテキストモデルへ送り、場面のリストに変換します。
type SceneParser struct {
	model         ContentModel
	promptBuilder prompts.ScriptPrompt
	cfg           SceneParserConfig
	cache         *cache.Cache
}

// NewSceneParser は依存関係を注入して SceneParser を初期化します。
func NewSceneParser(model ContentModel, pb prompts.ScriptPrompt, cfg SceneParserConfig) (*SceneParser, error) {
	if model == nil {
		return nil, fmt.Errorf("ContentModel は必須です")
	}
	if pb == nil {
		return nil, fmt.Errorf("ScriptPrompt は必須です")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultTextModel
	}

	var c *cache.Cache
	if cfg.CacheTTL > 0 {
		c = cache.New(cfg.CacheTTL, sceneCacheCleanupInterval)
	}

	return &SceneParser{
		model:         model,
		promptBuilder: pb,
		cfg:           cfg,
		cache:         c,
	}, nil
}

// sceneSchema は応答を sceneNumber と visualPrompt を持つオブジェクトの配列に制約します。
var sceneSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sceneNumber": {
				Type:        genai.TypeNumber,
				Description: "The sequential number of the scene.",
			},
			"visualPrompt": {
				Type:        genai.TypeString,
				Description: "The visual prompt for the image generator.",
			},
		},
		Required: []string{"sceneNumber", "visualPrompt"},
	},
}

// Parse は台本を解析して場面のリストを返します。
// 応答が期待する形でない場合は domain.ErrMalformedResponse を包んだエラーを返します。
func (p *SceneParser) Parse(ctx context.Context, script string) (domain.Scenes, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, domain.ErrEmptyInput
	}

	key := cacheKey(script)
	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if scenes, ok := v.(domain.Scenes); ok {
				slog.Debug("SceneParser: cache hit", "scenes", len(scenes))
				return cloneScenes(scenes), nil
			}
		}
	}

	finalPrompt, err := p.promptBuilder.Build(prompts.ModeSceneAnalysis, prompts.TemplateData{InputText: script})
	if err != nil {
		return nil, fmt.Errorf("プロンプト生成に失敗: %w", err)
	}

	slog.Info("SceneParser: Calling Gemini API", "model", p.cfg.Model, "script_length", len(script))
	resp, err := p.model.GenerateContent(ctx, p.cfg.Model, genai.Text(finalPrompt), &genai.GenerateContentConfig{
		Temperature:      p.cfg.Temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   sceneSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Gemini API の呼び出しに失敗しました: %w", domain.ErrMalformedResponse, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: 応答が空です", domain.ErrMalformedResponse)
	}

	scenes, err := decodeScenes(resp.Text())
	if err != nil {
		return nil, err
	}

	if p.cache != nil && len(scenes) > 0 {
		p.cache.Set(key, cloneScenes(scenes), cache.DefaultExpiration)
	}
	slog.Info("SceneParser: Parsed scenes", "count", len(scenes))
	return scenes, nil
}

type rawScene struct {
	SceneNumber  *float64 `json:"sceneNumber"`
	VisualPrompt *string  `json:"visualPrompt"`
}

// decodeScenes は応答テキストを検証しながら domain.Scenes に変換します。
func decodeScenes(raw string) (domain.Scenes, error) {
	rawJSON := extractJSONArray(raw)

	var records []rawScene
	if err := json.Unmarshal([]byte(rawJSON), &records); err != nil {
		return nil, fmt.Errorf("%w: AIからの応答に含まれるJSONの解析に失敗しました (応答抜粋: %q): %w",
			domain.ErrMalformedResponse, truncateString(raw, 200), err)
	}

	scenes := make(domain.Scenes, 0, len(records))
	for i, r := range records {
		if r.SceneNumber == nil || r.VisualPrompt == nil {
			return nil, fmt.Errorf("%w: index %d に必須フィールドがありません", domain.ErrMalformedResponse, i)
		}
		n := *r.SceneNumber
		if n != math.Trunc(n) || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: index %d の sceneNumber が整数ではありません: %v", domain.ErrMalformedResponse, i, n)
		}
		scenes = append(scenes, domain.Scene{
			SceneNumber:  int(n),
			VisualPrompt: strings.TrimSpace(*r.VisualPrompt),
		})
	}

	if err := scenes.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return scenes, nil
}

func cacheKey(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

func cloneScenes(src domain.Scenes) domain.Scenes {
	dst := make(domain.Scenes, len(src))
	copy(dst, src)
	return dst
}

package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"google.golang.org/genai"
)

const (
	// SceneAspectRatio は場面画像のアスペクト比です。
	SceneAspectRatio = "16:9"
	// SceneMimeType は場面画像の出力形式です。
	SceneMimeType = "image/jpeg"
)

// ImageGenerator は1つの場面描写から1枚の画像を生成し、data URL として返します。
type ImageGenerator struct {
	model         ImageModel
	modelName     string
	promptBuilder prompts.ImagePrompt
}

// NewImageGenerator は ImageGenerator の新しいインスタンスを初期化します。
func NewImageGenerator(model ImageModel, modelName string, pb prompts.ImagePrompt) (*ImageGenerator, error) {
	if model == nil {
		return nil, fmt.Errorf("ImageModel は必須です")
	}
	if pb == nil {
		pb = prompts.NewCinematicPromptBuilder("")
	}
	if modelName == "" {
		modelName = DefaultImageModel
	}
	return &ImageGenerator{
		model:         model,
		modelName:     modelName,
		promptBuilder: pb,
	}, nil
}

// Generate は画風プレフィックスを付けたプロンプトで画像を1枚生成します。
// 結果が0枚の場合は domain.ErrGenerationFailed を返します。
func (g *ImageGenerator) Generate(ctx context.Context, visualPrompt string) (string, error) {
	fullPrompt := g.promptBuilder.BuildScene(visualPrompt)

	startTime := time.Now()
	resp, err := g.model.GenerateImages(ctx, g.modelName, fullPrompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: SceneMimeType,
		AspectRatio:    SceneAspectRatio,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return "", domain.ErrGenerationFailed
	}

	img := resp.GeneratedImages[0]
	if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
		return "", domain.ErrGenerationFailed
	}

	slog.Debug("ImageGenerator: image generated",
		"model", g.modelName,
		"bytes", len(img.Image.ImageBytes),
		"duration", time.Since(startTime).Round(time.Millisecond),
	)
	return DataURL(img.Image.ImageBytes), nil
}

// DataURL は JPEG のバイト列を data URL に変換します。
func DataURL(data []byte) string {
	return "data:" + SceneMimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"
)

func TestImageGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("プレフィックスと固定設定でリクエストし data URL を返すこと", func(t *testing.T) {
		model := &fakeImageModel{images: [][]byte{[]byte("jpeg-bytes")}}
		g, err := NewImageGenerator(model, "", nil)
		if err != nil {
			t.Fatalf("初期化に失敗しました: %v", err)
		}

		got, err := g.Generate(ctx, "A man leaves the diner.")
		if err != nil {
			t.Fatalf("予期しないエラー: %v", err)
		}

		want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
		if got != want {
			t.Errorf("期待値 %q, 実際の値 %q", want, got)
		}
		if !strings.HasPrefix(model.prompt, prompts.DefaultCinematicPrefix) || !strings.HasSuffix(model.prompt, "A man leaves the diner.") {
			t.Errorf("プロンプトが違います: %q", model.prompt)
		}
		if model.model != DefaultImageModel {
			t.Errorf("モデル名が違います: %s", model.model)
		}
		if model.config.NumberOfImages != 1 || model.config.OutputMIMEType != "image/jpeg" || model.config.AspectRatio != "16:9" {
			t.Errorf("リクエスト設定が違います: %+v", model.config)
		}
	})

	t.Run("画像が0枚なら ErrGenerationFailed を返すこと", func(t *testing.T) {
		g, _ := NewImageGenerator(&fakeImageModel{}, "", nil)
		_, err := g.Generate(ctx, "x")
		if !errors.Is(err, domain.ErrGenerationFailed) {
			t.Errorf("ErrGenerationFailed を期待しましたが %v", err)
		}
	})

	t.Run("空のバイト列も失敗として扱うこと", func(t *testing.T) {
		g, _ := NewImageGenerator(&fakeImageModel{images: [][]byte{{}}}, "", nil)
		_, err := g.Generate(ctx, "x")
		if !errors.Is(err, domain.ErrGenerationFailed) {
			t.Errorf("ErrGenerationFailed を期待しましたが %v", err)
		}
	})

	t.Run("API エラーは原因を保持したまま ErrGenerationFailed になること", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		g, _ := NewImageGenerator(&fakeImageModel{err: cause}, "imagen-x", nil)
		_, err := g.Generate(ctx, "x")
		if !errors.Is(err, domain.ErrGenerationFailed) || !errors.Is(err, cause) {
			t.Errorf("種類と原因の両方を保持していません: %v", err)
		}
	})

	t.Run("ImageModel が nil なら初期化に失敗すること", func(t *testing.T) {
		if _, err := NewImageGenerator(nil, "", nil); err == nil {
			t.Error("エラーが返りませんでした")
		}
	})
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/console"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"github.com/spf13/cobra"
)

// generateCmd は、台本から場面ごとの絵コンテ画像を生成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "台本を解析して、場面ごとの画像を生成するのだ。",
	Long: `台本を場面に分解し、各場面の画像を1枚ずつ順番に生成するのだ。
失敗した場面があっても残りの場面の生成は続けるのだよ。進捗は1行ずつ表示されます。`,
	Example: "  storyboard generate -f script.txt\n  cat script.txt | storyboard generate",
	RunE:    generateCommand,
}

func init() {
	addScriptFlags(generateCmd)
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	script, err := readScript(cmd)
	if err != nil {
		return err
	}

	appCtx, err := builder.NewAppContext(ctx, appCfg)
	if err != nil {
		return err
	}

	store := storyboard.NewStore()
	progress := console.NewProgress(cmd.OutOrStdout())
	unsubscribe := store.Subscribe(progress.Observe)
	defer unsubscribe()

	orch, err := builder.BuildOrchestrator(appCtx, store)
	if err != nil {
		return err
	}

	slog.Info("絵コンテ生成を起動するのだ！",
		"text_model", appCfg.TextModel,
		"image_model", appCfg.ImageModel,
		"rate_interval", appCfg.RateInterval)

	if err := orch.Generate(ctx, script); err != nil {
		return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
	}

	loaded, failed := store.Snapshot().Counts()
	slog.Info("すべての生成工程が完了したのだ！", "loaded", loaded, "failed", failed)
	return nil
}

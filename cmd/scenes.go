package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shouni/go-storyboard-kit/internal/builder"

	"github.com/spf13/cobra"
)

// scenesCmd は、台本の場面分解（JSON出力）のみを実行するのだ。
var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "台本を場面に分解して JSON で出力するのだ。",
	Long: `台本を解析し、場面番号と画像用の描写指示を JSON 形式で標準出力へ書き出すのだ。
画像生成は行わないのだよ。`,
	RunE: scenesCommand,
}

func init() {
	addScriptFlags(scenesCmd)
}

func scenesCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	script, err := readScript(cmd)
	if err != nil {
		return err
	}

	appCtx, err := builder.NewAppContext(ctx, appCfg)
	if err != nil {
		return err
	}
	parser, err := builder.BuildSceneParser(appCtx)
	if err != nil {
		return err
	}

	slog.Info("場面分解モードを起動するのだ！", "text_model", appCfg.TextModel)
	scenes, err := parser.Parse(ctx, script)
	if err != nil {
		return fmt.Errorf("台本の解析中にエラーが発生したのだ: %w", err)
	}

	out, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONの生成に失敗したのだ: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	slog.Info("場面分解が完了したのだ！", "scenes", len(scenes))
	return nil
}

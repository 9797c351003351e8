package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// addScriptFlags は台本の入力元を指定するフラグを追加するのだ。
func addScriptFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.ScriptFile, "script-file", "f", "", "台本ファイルのパス（'-'で標準入力なのだ）。")
	cmd.Flags().BoolVar(&opts.UseSample, "sample", false, "同梱のサンプル台本を使うのだ。")
}

// readScript はフラグに従って台本を読み込むのだ。
// ファイル指定が無くても、標準入力がパイプならそこから読みます。
func readScript(cmd *cobra.Command) (string, error) {
	switch {
	case opts.UseSample:
		return domain.SampleScript, nil
	case opts.ScriptFile == "-" || (opts.ScriptFile == "" && isStdin()):
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("標準入力の読み込みに失敗したのだ: %w", err)
		}
		return string(data), nil
	case opts.ScriptFile != "":
		data, err := os.ReadFile(opts.ScriptFile)
		if err != nil {
			return "", fmt.Errorf("台本ファイルの読み込みに失敗したのだ: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("台本（--script-file、標準入力、または --sample）を指定してほしいのだ")
	}
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

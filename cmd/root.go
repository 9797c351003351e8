package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shouni/go-storyboard-kit/internal/config"

	"github.com/spf13/cobra"
)

// AppOptions はコマンドラインフラグで受け取る値なのだ。
// 指定されたフラグだけが環境変数の値を上書きします。
type AppOptions struct {
	ScriptFile   string
	UseSample    bool
	TextModel    string
	ImageModel   string
	ChatModel    string
	RateInterval time.Duration
	LogLevel     string
	Port         string
}

var (
	opts   AppOptions
	appCfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "台本からシーンごとの絵コンテ画像を生成するのだ。",
	Long: `映画やドラマの台本を Gemini で場面ごとに分解し、
各場面のシネマティックな画像を1枚ずつ生成するのだ。脚本づくりを手伝うチャットも使えるのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, scenesCmd, chatCmd, serveCmd)
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.TextModel, "model", config.DefaultTextModel, "場面分解に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "画像生成に使うモデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ChatModel, "chat-model", config.DefaultChatModel, "チャットに使うモデル名なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", config.DefaultRateInterval, "画像リクエストの最小間隔なのだ（0で無制限）。")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", config.DefaultLogLevel, "ログレベル（debug, info, warn, error）なのだ。")
}

// preRunAppE は、コマンド実行前に設定の読み込みと必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	applyFlags(cmd, cfg)
	setupLogger(cmd.ErrOrStderr(), cfg.SlogLevel())

	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定が不正なのだ: %w", err)
	}

	appCfg = cfg
	return nil
}

// applyFlags は明示的に指定されたフラグだけを設定へ反映するのだ。
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.TextModel = opts.TextModel
	}
	if flags.Changed("image-model") {
		cfg.ImageModel = opts.ImageModel
	}
	if flags.Changed("chat-model") {
		cfg.ChatModel = opts.ChatModel
	}
	if flags.Changed("rate-interval") {
		cfg.RateInterval = opts.RateInterval
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port = opts.Port
	}
}

func setupLogger(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

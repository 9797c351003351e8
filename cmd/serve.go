package cmd

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/internal/config"
	"github.com/shouni/go-storyboard-kit/internal/server"

	"github.com/spf13/cobra"
)

// serveCmd は、ブラウザから使える Web 画面を起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Web 画面とAPIを起動するのだ。",
	Long: `台本の入力、絵コンテの表示、チャットをまとめた Web 画面を提供するのだ。
進捗は WebSocket でリアルタイムに届くのだよ。Ctrl+C で停止します。`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&opts.Port, "port", config.DefaultPort, "待ち受けるポート番号なのだ。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	appCtx, err := builder.NewAppContext(ctx, appCfg)
	if err != nil {
		return err
	}
	orch, err := builder.BuildOrchestrator(appCtx, nil)
	if err != nil {
		return err
	}
	conv, err := builder.BuildConversation(appCtx)
	if err != nil {
		return err
	}

	srv, err := server.New(ctx, orch, conv)
	if err != nil {
		return fmt.Errorf("サーバーの初期化に失敗したのだ: %w", err)
	}

	addr := net.JoinHostPort("", appCfg.Port)
	slog.Info("Web 画面を起動するのだ！", "url", "http://localhost:"+appCfg.Port)
	return srv.Run(ctx, addr)
}

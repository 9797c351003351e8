package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-storyboard-kit/internal/builder"
	"github.com/shouni/go-storyboard-kit/pkg/chat"
	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/spf13/cobra"
)

// chatCmd は、脚本づくりを手伝う対話型チャットを起動するのだ。
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "脚本アシスタントと対話するのだ。",
	Long: `標準入力から1行ずつメッセージを送り、モデルの返答を表示するのだ。
会話の文脈はセッション中ずっと保持されるのだよ。exit か quit で終了します。`,
	RunE: chatCommand,
}

func chatCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	appCtx, err := builder.NewAppContext(ctx, appCfg)
	if err != nil {
		return err
	}
	conv, err := builder.BuildConversation(appCtx)
	if err != nil {
		return err
	}

	return runChat(cmd, conv)
}

// runChat は入力が尽きるか終了コマンドが来るまで会話を続けるのだ。
func runChat(cmd *cobra.Command, conv *chat.Conversation) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	for _, m := range conv.Messages() {
		fmt.Fprintf(out, "%s: %s\n", m.Role, m.Content)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := conv.Send(ctx, line)
		if err != nil && !errors.Is(err, domain.ErrChatTurn) {
			fmt.Fprintln(out, domain.UserMessage(err))
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", reply.Role, reply.Content)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

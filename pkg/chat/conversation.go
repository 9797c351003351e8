package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"

	"github.com/google/uuid"
)

// SessionFactory は会話セッションを作成します。*gemini.ChatClient がこれを満たします。
type SessionFactory interface {
	CreateSession(ctx context.Context) (gemini.Session, error)
}

// Conversation は1つのチャット画面に対応する会話です。
// セッションは最初のターンで作られ、以後の全ターンで使い回されます。
type Conversation struct {
	id      string
	factory SessionFactory
	now     func() time.Time

	mu         sync.Mutex
	session    gemini.Session
	messages   []domain.ChatMessage
	responding bool
}

// NewConversation は挨拶メッセージだけを含む会話を作成します。
func NewConversation(factory SessionFactory) (*Conversation, error) {
	if factory == nil {
		return nil, fmt.Errorf("SessionFactory は必須です")
	}
	c := &Conversation{
		id:      uuid.NewString(),
		factory: factory,
		now:     time.Now,
	}
	c.messages = []domain.ChatMessage{c.message(domain.RoleModel, domain.ChatGreeting)}
	return c, nil
}

// ID は会話の識別子を返します。
func (c *Conversation) ID() string {
	return c.id
}

// Messages は会話ログのコピーを返します。
func (c *Conversation) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Responding は返答待ちのターンがあるかを返します。
func (c *Conversation) Responding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responding
}

// Send はユーザーのメッセージを追加し、モデルの返答を追加して返します。
// 失敗した場合は謝罪文を返答として追加し、domain.ErrChatTurn を包んだエラーを返します。
// その場合もセッションと会話ログは保持され、次のターンを送れます。
func (c *Conversation) Send(ctx context.Context, text string) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, domain.ErrEmptyInput
	}

	c.mu.Lock()
	if c.responding {
		c.mu.Unlock()
		return domain.ChatMessage{}, domain.ErrTurnInProgress
	}
	c.responding = true
	c.messages = append(c.messages, c.message(domain.RoleUser, text))
	session := c.session
	c.mu.Unlock()

	logger := slog.With("conversation_id", c.id)

	reply, err := c.turn(ctx, session, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.responding = false

	if err != nil {
		logger.Error("Chat error", "error", err)
		msg := c.message(domain.RoleModel, domain.ChatApology)
		c.messages = append(c.messages, msg)
		return msg, fmt.Errorf("%w: %w", domain.ErrChatTurn, err)
	}

	msg := c.message(domain.RoleModel, reply)
	c.messages = append(c.messages, msg)
	logger.Debug("Chat turn completed", "messages", len(c.messages))
	return msg, nil
}

// turn はロックの外で呼ばれ、必要ならセッションを作成してからメッセージを送ります。
func (c *Conversation) turn(ctx context.Context, session gemini.Session, text string) (string, error) {
	if session == nil {
		created, err := c.factory.CreateSession(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.session = created
		c.mu.Unlock()
		session = created
	}
	return session.Send(ctx, text)
}

func (c *Conversation) message(role domain.Role, content string) domain.ChatMessage {
	return domain.ChatMessage{Role: role, Content: content, Timestamp: c.now()}
}

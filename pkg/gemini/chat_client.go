package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultSystemInstruction は会話セッションに固定で与えるペルソナです。
const DefaultSystemInstruction = "You are a friendly and helpful assistant for writers and filmmakers. Answer questions concisely and clearly."

// Session はサーバー側に状態を持つ会話セッションです。
type Session interface {
	Send(ctx context.Context, text string) (string, error)
}

// chatTurn は *genai.Chat のうち、ここで使う部分だけを切り出したものです。
type chatTurn interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatFactory func(ctx context.Context, model string, config *genai.GenerateContentConfig) (chatTurn, error)

// ChatClient は固定のモデルとシステム指示で会話セッションを作成します。
type ChatClient struct {
	model             string
	systemInstruction string
	temperature       *float32
	create            chatFactory
}

// NewChatClient は genai の Chats を使う ChatClient を返します。
func NewChatClient(chats *genai.Chats, model, systemInstruction string, temperature *float32) (*ChatClient, error) {
	if chats == nil {
		return nil, fmt.Errorf("genai.Chats は必須です")
	}
	create := func(ctx context.Context, model string, config *genai.GenerateContentConfig) (chatTurn, error) {
		return chats.Create(ctx, model, config, nil)
	}
	return newChatClient(create, model, systemInstruction, temperature), nil
}

func newChatClient(create chatFactory, model, systemInstruction string, temperature *float32) *ChatClient {
	if model == "" {
		model = DefaultChatModel
	}
	if systemInstruction == "" {
		systemInstruction = DefaultSystemInstruction
	}
	return &ChatClient{
		model:             model,
		systemInstruction: systemInstruction,
		temperature:       temperature,
		create:            create,
	}
}

// CreateSession は新しい会話セッションを開きます。
func (c *ChatClient) CreateSession(ctx context.Context) (Session, error) {
	chat, err := c.create(ctx, c.model, &genai.GenerateContentConfig{
		Temperature:       c.temperature,
		SystemInstruction: genai.NewContentFromText(c.systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return nil, fmt.Errorf("チャットセッションの作成に失敗しました: %w", err)
	}
	return &chatSession{chat: chat}, nil
}

type chatSession struct {
	chat chatTurn
}

// Send は1ターン分のメッセージを送り、モデルの返答テキストを返します。
func (s *chatSession) Send(ctx context.Context, text string) (string, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("メッセージの送信に失敗しました: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("モデルからの応答が空です")
	}
	return resp.Text(), nil
}

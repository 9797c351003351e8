package domain

import "time"

// Role はチャットメッセージの発言者です。
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

const (
	// ChatGreeting は会話の最初にモデル側から表示する挨拶です。
	ChatGreeting = "Hello! I'm your creative assistant. How can I help you with your script today?"
	// ChatApology はターンが失敗したときにモデルの返答として差し込む文言です。
	ChatApology = "Sorry, I encountered an error. Please try again."
)

// ChatMessage は会話ログの1件です。
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

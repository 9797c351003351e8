package prompts

import (
	"strings"
)

// DefaultCinematicPrefix は全ての場面画像に付与する画風の指定です。
const DefaultCinematicPrefix = "cinematic storyboard, movie still, color-graded, detailed, hyper-realistic, 16:9 aspect ratio."

// CinematicPromptBuilder は、場面の描写に共通の画風プレフィックスを付けます。
type CinematicPromptBuilder struct {
	prefix string
}

// NewCinematicPromptBuilder は新しい CinematicPromptBuilder を生成します。
// prefix が空の場合は DefaultCinematicPrefix を使います。
func NewCinematicPromptBuilder(prefix string) *CinematicPromptBuilder {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultCinematicPrefix
	}
	return &CinematicPromptBuilder{prefix: prefix}
}

// BuildScene はプレフィックスと場面の描写を結合します。
func (b *CinematicPromptBuilder) BuildScene(visualPrompt string) string {
	return b.prefix + " " + strings.TrimSpace(visualPrompt)
}

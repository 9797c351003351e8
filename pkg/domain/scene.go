package domain

import (
	"fmt"
	"strings"
)

// Scene は台本から切り出された1つの場面です。
// スライス上の並び順が物語の順序であり、SceneNumber は表示用の番号にすぎません。
type Scene struct {
	SceneNumber  int    `json:"sceneNumber"`
	VisualPrompt string `json:"visualPrompt"`
}

// Scenes は場面の順序付きリストです。
type Scenes []Scene

// Validate は場面が最低限の形を満たしているか確認します。
func (s Scene) Validate() error {
	if s.SceneNumber <= 0 {
		return fmt.Errorf("sceneNumber は正の整数である必要があります: %d", s.SceneNumber)
	}
	if strings.TrimSpace(s.VisualPrompt) == "" {
		return fmt.Errorf("scene %d の visualPrompt が空です", s.SceneNumber)
	}
	return nil
}

// Validate は全ての場面を検証し、最初に見つかった不正を返します。
func (ss Scenes) Validate() error {
	for i, s := range ss {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	return nil
}

// Prompts は場面の順序を保ったまま visualPrompt を取り出します。
func (ss Scenes) Prompts() []string {
	prompts := make([]string, 0, len(ss))
	for _, s := range ss {
		prompts = append(prompts, s.VisualPrompt)
	}
	return prompts
}

package prompts

import (
	_ "embed"
)

const (
	// ModeSceneAnalysis は台本を場面ごとに分解するプロンプトです。
	ModeSceneAnalysis = "scene_analysis"
)

// TemplateData はプロンプトテンプレートに渡すデータ構造です。
type TemplateData struct {
	InputText string
}

var (
	//go:embed scene_analysis.md
	SceneAnalysisPrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeSceneAnalysis: SceneAnalysisPrompt,
}

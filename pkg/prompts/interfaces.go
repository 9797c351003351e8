package prompts

// ScriptPrompt は、台本解析用のAIプロンプトを構築する契約です。
type ScriptPrompt interface {
	// Build は、指定されたモードとデータに基づいてプロンプト文字列を生成します。
	Build(mode string, data TemplateData) (string, error)
}

// ImagePrompt は、場面の描写から画像生成用のプロンプトを構築する契約です。
type ImagePrompt interface {
	BuildScene(visualPrompt string) string
}

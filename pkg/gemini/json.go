package gemini

import (
	"regexp"
	"strings"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// extractJSONArray はモデルの応答から JSON 配列部分を取り出します。
// 構造化出力を指定していてもコードフェンス付きで返ることがあるため、その場合も許容します。
func extractJSONArray(raw string) string {
	raw = strings.TrimSpace(raw)

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return matches[1]
	}

	first := strings.Index(raw, "[")
	last := strings.LastIndex(raw, "]")
	if first != -1 && last > first {
		return raw[first : last+1]
	}
	return raw
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

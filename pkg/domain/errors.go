package domain

import (
	"errors"
)

// 利用者に見せるエラーの種類です。各層はこれらを %w で包んで返します。
var (
	ErrConfiguration     = errors.New("API_KEY environment variable not set.")
	ErrEmptyInput        = errors.New("Script content cannot be empty.")
	ErrNoScenes          = errors.New("Could not parse any scenes from the script.")
	ErrMalformedResponse = errors.New("Failed to analyze the script. The AI may have returned an unexpected format. Please try again with a different script.")
	ErrGenerationFailed  = errors.New("Image generation failed or returned no images.")
	ErrChatTurn          = errors.New(ChatApology)
	ErrTurnInProgress    = errors.New("Please wait for the current reply to finish.")
)

// UnknownErrorMessage は分類できないエラーの表示文言です。
const UnknownErrorMessage = "An unknown error occurred."

var userFacing = []error{
	ErrConfiguration,
	ErrEmptyInput,
	ErrNoScenes,
	ErrMalformedResponse,
	ErrGenerationFailed,
	ErrChatTurn,
	ErrTurnInProgress,
}

// UserMessage はエラーを利用者向けの短い文言に変換します。
// 内部の詳細（HTTPステータスやJSONの断片など）は含めません。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, target := range userFacing {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return UnknownErrorMessage
}

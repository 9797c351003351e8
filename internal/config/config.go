package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/prompts"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultTextModel         = gemini.DefaultTextModel
	DefaultImageModel        = gemini.DefaultImageModel
	DefaultChatModel         = gemini.DefaultChatModel
	DefaultTemperature       = float32(0.2)
	DefaultRateInterval      = 1 * time.Second
	DefaultSceneCacheTTL     = 10 * time.Minute
	DefaultHTTPTimeout       = 2 * time.Minute
	DefaultImageTimeout      = 0
	DefaultPort              = "8080"
	DefaultLogLevel          = "info"
	DefaultImageStylePrefix  = prompts.DefaultCinematicPrefix
	DefaultSystemInstruction = gemini.DefaultSystemInstruction
)

// Config はアプリケーション全体の環境設定（APIキーやモデル名）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey      string
	TextModel         string
	ImageModel        string
	ChatModel         string
	Temperature       float32
	ImageStylePrefix  string
	SystemInstruction string

	RateInterval  time.Duration
	SceneCacheTTL time.Duration
	HTTPTimeout   time.Duration
	ImageTimeout  time.Duration

	Port     string
	LogLevel string
}

// LoadConfig は .env（あれば）と環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	// .env は任意なので、無くてもエラーにはしないのだ
	_ = godotenv.Load()

	apiKey := envutil.GetEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = envutil.GetEnv("API_KEY", "")
	}

	return &Config{
		GeminiAPIKey:      apiKey,
		TextModel:         envutil.GetEnv("GEMINI_MODEL", DefaultTextModel),
		ImageModel:        envutil.GetEnv("IMAGE_MODEL", DefaultImageModel),
		ChatModel:         envutil.GetEnv("CHAT_MODEL", DefaultChatModel),
		Temperature:       DefaultTemperature,
		ImageStylePrefix:  envutil.GetEnv("IMAGE_STYLE_PREFIX", DefaultImageStylePrefix),
		SystemInstruction: envutil.GetEnv("CHAT_SYSTEM_INSTRUCTION", DefaultSystemInstruction),
		RateInterval:      getDuration("RATE_INTERVAL", DefaultRateInterval),
		SceneCacheTTL:     getDuration("SCENE_CACHE_TTL", DefaultSceneCacheTTL),
		HTTPTimeout:       getDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		ImageTimeout:      getDuration("IMAGE_TIMEOUT", DefaultImageTimeout),
		Port:              envutil.GetEnv("PORT", DefaultPort),
		LogLevel:          envutil.GetEnv("LOG_LEVEL", DefaultLogLevel),
	}
}

// Validate は API を呼び出す前に必須項目が揃っているか確認するのだ。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("環境変数 GEMINI_API_KEY（または API_KEY）が設定されていません: %w", domain.ErrConfiguration)
	}
	if c.RateInterval < 0 || c.SceneCacheTTL < 0 || c.HTTPTimeout < 0 || c.ImageTimeout < 0 {
		return fmt.Errorf("時間の設定に負の値は使えないのだ")
	}
	return nil
}

// SlogLevel は LogLevel を slog.Level に変換するのだ。
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getDuration は "30s" のような形式の環境変数を読み込むのだ。解釈できなければデフォルト値を使うのだ。
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("期間の形式が不正なためデフォルト値を使うのだ", "key", key, "value", raw, "error", err)
		return fallback
	}
	return d
}

package storyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/domain"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrSuperseded は実行中に新しい実行が始まり、結果が破棄されたことを表します。
var ErrSuperseded = errors.New("storyboard: run superseded by a newer run")

// SceneParser は台本を場面のリストに分解します。
type SceneParser interface {
	Parse(ctx context.Context, script string) (domain.Scenes, error)
}

// ImageGenerator は場面の描写から画像の参照（data URL）を生成します。
type ImageGenerator interface {
	Generate(ctx context.Context, visualPrompt string) (string, error)
}

// Orchestrator は台本の解析から場面ごとの画像生成までを順番に進めます。
type Orchestrator struct {
	parser       SceneParser
	images       ImageGenerator
	store        *Store
	limiter      *rate.Limiter
	imageTimeout time.Duration
}

// Option は Orchestrator の任意設定です。
type Option func(*Orchestrator)

// WithRateLimiter は画像リクエストの前に待機するリミッターを設定します。
func WithRateLimiter(l *rate.Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithImageTimeout は1枚あたりの画像生成の制限時間を設定します。0 は無制限です。
func WithImageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.imageTimeout = d }
}

// NewOrchestrator は依存関係を注入して Orchestrator を初期化します。
func NewOrchestrator(parser SceneParser, images ImageGenerator, store *Store, opts ...Option) (*Orchestrator, error) {
	if parser == nil {
		return nil, fmt.Errorf("SceneParser は必須です")
	}
	if images == nil {
		return nil, fmt.Errorf("ImageGenerator は必須です")
	}
	if store == nil {
		store = NewStore()
	}

	o := &Orchestrator{
		parser: parser,
		images: images,
		store:  store,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Store は状態を保持するストアを返します。
func (o *Orchestrator) Store() *Store {
	return o.store
}

// ValidateScript は台本が空白だけでないことを確認します。
func ValidateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return domain.ErrEmptyInput
	}
	return nil
}

// Generate は台本を解析し、場面ごとの画像を1枚ずつ順番に生成します。
// 個々の画像の失敗はそのエントリだけに記録され、処理は次の場面へ進みます。
// 解析に失敗した場合や場面が0件の場合は、エントリを作らずにエラーを返します。
func (o *Orchestrator) Generate(ctx context.Context, script string) error {
	if err := ValidateScript(script); err != nil {
		return err
	}

	runID, gen := o.begin()
	return o.run(ctx, runID, gen, script)
}

// Start は世代番号を確定させてから、生成処理をバックグラウンドで開始します。
// 返されるチャネルには実行結果がちょうど1回送られます。
func (o *Orchestrator) Start(ctx context.Context, script string) (uint64, <-chan error, error) {
	if err := ValidateScript(script); err != nil {
		return 0, nil, err
	}

	runID, gen := o.begin()
	done := make(chan error, 1)
	go func() {
		done <- o.run(ctx, runID, gen, script)
	}()
	return gen, done, nil
}

// begin は新しい実行IDを発行し、ストアを次の世代へ進めます。
func (o *Orchestrator) begin() (string, uint64) {
	runID := uuid.NewString()
	return runID, o.store.Reset(runID)
}

func (o *Orchestrator) run(ctx context.Context, runID string, gen uint64, script string) error {
	logger := slog.With("run_id", runID, "generation", gen)

	logger.Info("Storyboard: parsing script", "length", len(script))
	scenes, err := o.parser.Parse(ctx, script)
	if err == nil && len(scenes) == 0 {
		err = domain.ErrNoScenes
	}
	if err != nil {
		logger.Error("Storyboard: failed to parse script", "error", err)
		o.store.Fail(gen, domain.UserMessage(err))
		return fmt.Errorf("台本の解析に失敗しました: %w", err)
	}

	if !o.store.Initialize(gen, scenes) {
		return ErrSuperseded
	}
	logger.Info("Storyboard: generating images sequentially", "scenes", len(scenes))

	for i, scene := range scenes {
		if o.store.Generation() != gen {
			logger.Info("Storyboard: run superseded, stopping", "next_index", i)
			return ErrSuperseded
		}
		if err := o.wait(ctx); err != nil {
			logger.Warn("Storyboard: run cancelled", "next_index", i, "error", err)
			o.abandon(gen, i, len(scenes))
			return err
		}

		sceneLogger := logger.With("index", i+1, "scene_number", scene.SceneNumber)
		startTime := time.Now()
		imageURL, err := o.generateOne(ctx, scene.VisualPrompt)
		if err != nil {
			sceneLogger.Error("Failed to generate image for scene", "error", err)
			o.store.Reject(gen, i, domain.EntryFailedMessage)
			continue
		}

		sceneLogger.Info("Scene image generated", "duration", time.Since(startTime).Round(time.Millisecond))
		o.store.Resolve(gen, i, imageURL)
	}

	if !o.store.Finish(gen) {
		return ErrSuperseded
	}
	loaded, failed := o.store.Snapshot().Counts()
	logger.Info("Storyboard: run completed", "loaded", loaded, "failed", failed)
	return nil
}

func (o *Orchestrator) wait(ctx context.Context) error {
	if o.limiter == nil {
		return ctx.Err()
	}
	return o.limiter.Wait(ctx)
}

func (o *Orchestrator) generateOne(ctx context.Context, prompt string) (string, error) {
	if o.imageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.imageTimeout)
		defer cancel()
	}
	return o.images.Generate(ctx, prompt)
}

// abandon は未処理のエントリを失敗として確定させ、読み込み中のまま残らないようにします。
func (o *Orchestrator) abandon(gen uint64, from, total int) {
	for i := from; i < total; i++ {
		o.store.Reject(gen, i, domain.EntryFailedMessage)
	}
	o.store.Finish(gen)
}

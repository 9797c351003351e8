package storyboard

import (
	"context"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

type fakeParser struct {
	scenes domain.Scenes
	err    error
	calls  int
}

func (f *fakeParser) Parse(ctx context.Context, script string) (domain.Scenes, error) {
	f.calls++
	return f.scenes, f.err
}

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	fn      func(ctx context.Context, call int, prompt string) (string, error)
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.fn(ctx, call, prompt)
}

func (f *fakeImages) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// recorder は通知されたスナップショットを全て記録します。
type recorder struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (r *recorder) listen(s domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

func twoScenes() domain.Scenes {
	return domain.Scenes{
		{SceneNumber: 1, VisualPrompt: "A tired man nurses coffee in a rainy diner."},
		{SceneNumber: 2, VisualPrompt: "A mysterious figure sits in the shadows."},
	}
}

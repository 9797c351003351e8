package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

const promptPreviewLen = 60

// Progress はストアのスナップショットを受け取り、変化した部分だけを1行ずつ出力する表示係なのだ。
// Store.Subscribe にそのまま渡せます。
type Progress struct {
	w    io.Writer
	mu   sync.Mutex
	prev domain.Snapshot
}

// NewProgress は出力先を指定して Progress を作成します。
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// Observe は直前のスナップショットとの差分を出力するのだ。
func (p *Progress) Observe(s domain.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 新しい実行が始まったら差分の基準をリセットする
	if s.Generation != p.prev.Generation {
		p.prev = domain.Snapshot{Generation: s.Generation, Phase: domain.PhaseIdle}
	}
	prev := p.prev

	if s.Phase == domain.PhaseParsing && prev.Phase != domain.PhaseParsing {
		fmt.Fprintln(p.w, "Analyzing script...")
	}

	if len(prev.Entries) == 0 && len(s.Entries) > 0 {
		fmt.Fprintf(p.w, "%d scenes found.\n", len(s.Entries))
		for _, e := range s.Entries {
			fmt.Fprintf(p.w, "[Scene %d] loading: %s\n", e.Scene.SceneNumber, preview(e.Scene.VisualPrompt))
		}
	}

	for i, e := range s.Entries {
		if i >= len(prev.Entries) || !prev.Entries[i].IsLoading || e.IsLoading {
			continue
		}
		switch {
		case e.ImageURL != nil:
			fmt.Fprintf(p.w, "[Scene %d] done (%d bytes)\n", e.Scene.SceneNumber, len(*e.ImageURL))
		case e.Error != nil:
			fmt.Fprintf(p.w, "[Scene %d] error: %s\n", e.Scene.SceneNumber, *e.Error)
		}
	}

	if s.Phase != prev.Phase {
		switch s.Phase {
		case domain.PhaseFailed:
			fmt.Fprintf(p.w, "Error: %s\n", s.Error)
		case domain.PhaseDone:
			loaded, failed := s.Counts()
			fmt.Fprintf(p.w, "Storyboard complete: %d/%d images generated, %d failed.\n", loaded, len(s.Entries), failed)
		}
	}

	p.prev = s
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= promptPreviewLen {
		return s
	}
	return string(r[:promptPreviewLen]) + "..."
}

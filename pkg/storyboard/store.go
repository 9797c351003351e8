package storyboard

import (
	"sync"

	"github.com/shouni/go-storyboard-kit/pkg/domain"
)

// Listener はストアの状態が変わるたびに呼ばれるコールバックです。
// Listener の中からストアを更新してはいけません。
type Listener func(domain.Snapshot)

type subscription struct {
	id int
	fn Listener
}

// Store はストーリーボードの状態を保持し、変更を購読者へ通知します。
// 状態は世代番号で区切られ、古い世代からの書き込みは破棄されます。
type Store struct {
	// pubMu は変更と通知の順序を揃えるためのロックです。常に mu より先に取得します。
	pubMu sync.Mutex
	mu    sync.Mutex
	state domain.Snapshot
	subs  []subscription
	next  int
}

// NewStore は空の Store を返します。
func NewStore() *Store {
	return &Store{
		state: domain.Snapshot{Phase: domain.PhaseIdle, Entries: []domain.StoryboardEntry{}},
	}
}

// Snapshot は現在の状態のコピーを返します。
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Generation は現在の世代番号を返します。
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation
}

// Subscribe は状態変更の通知先を登録し、登録解除用の関数を返します。
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Reset は新しい実行を開始します。前の実行の状態は破棄され、新しい世代番号を返します。
func (s *Store) Reset(runID string) uint64 {
	var gen uint64
	s.apply(func(st *domain.Snapshot) bool {
		st.Generation++
		st.RunID = runID
		st.Phase = domain.PhaseParsing
		st.Entries = []domain.StoryboardEntry{}
		st.Error = ""
		gen = st.Generation
		return true
	})
	return gen
}

// Initialize は場面ごとに読み込み中のエントリを一括で作成します。
func (s *Store) Initialize(gen uint64, scenes domain.Scenes) bool {
	return s.update(gen, func(st *domain.Snapshot) bool {
		entries := make([]domain.StoryboardEntry, len(scenes))
		for i, scene := range scenes {
			entries[i] = domain.NewPendingEntry(scene)
		}
		st.Entries = entries
		st.Phase = domain.PhaseGenerating
		return true
	})
}

// Resolve は index 番目のエントリを成功状態にします。
func (s *Store) Resolve(gen uint64, index int, imageURL string) bool {
	return s.update(gen, func(st *domain.Snapshot) bool {
		if !pending(st, index) {
			return false
		}
		st.Entries[index] = st.Entries[index].Loaded(imageURL)
		return true
	})
}

// Reject は index 番目のエントリを失敗状態にします。
func (s *Store) Reject(gen uint64, index int, message string) bool {
	return s.update(gen, func(st *domain.Snapshot) bool {
		if !pending(st, index) {
			return false
		}
		st.Entries[index] = st.Entries[index].Failed(message)
		return true
	})
}

// Fail は実行全体を失敗として終了し、バナー用のメッセージを設定します。
func (s *Store) Fail(gen uint64, message string) bool {
	return s.update(gen, func(st *domain.Snapshot) bool {
		st.Phase = domain.PhaseFailed
		st.Entries = []domain.StoryboardEntry{}
		st.Error = message
		return true
	})
}

// Finish は全エントリの処理が終わったことを記録します。
func (s *Store) Finish(gen uint64) bool {
	return s.update(gen, func(st *domain.Snapshot) bool {
		if st.Phase != domain.PhaseGenerating {
			return false
		}
		st.Phase = domain.PhaseDone
		return true
	})
}

func pending(st *domain.Snapshot, index int) bool {
	return index >= 0 && index < len(st.Entries) && st.Entries[index].IsLoading
}

// update は世代番号が一致する場合に限り fn を適用します。
func (s *Store) update(gen uint64, fn func(*domain.Snapshot) bool) bool {
	return s.apply(func(st *domain.Snapshot) bool {
		if st.Generation != gen {
			return false
		}
		return fn(st)
	})
}

func (s *Store) apply(fn func(*domain.Snapshot) bool) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	snap := s.state.Clone()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap.Clone())
	}
	return true
}

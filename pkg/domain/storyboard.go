package domain

// EntryFailedMessage は画像生成に失敗したエントリへ設定する表示用メッセージです。
const EntryFailedMessage = "Failed to generate image."

// Phase はストーリーボード生成の進行段階です。
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseParsing    Phase = "parsing"
	PhaseGenerating Phase = "generating"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// StoryboardEntry は1つの場面に対する画像生成の進捗と結果を保持します。
// 生成直後は IsLoading=true で、その後ちょうど1回だけ成功か失敗のどちらかへ遷移します。
type StoryboardEntry struct {
	Scene     Scene   `json:"scene"`
	ImageURL  *string `json:"imageUrl"`
	IsLoading bool    `json:"isLoading"`
	Error     *string `json:"error"`
}

// NewPendingEntry は読み込み中状態のエントリを作成します。
func NewPendingEntry(scene Scene) StoryboardEntry {
	return StoryboardEntry{Scene: scene, IsLoading: true}
}

// Loaded は画像URLを設定した成功状態のコピーを返します。
func (e StoryboardEntry) Loaded(imageURL string) StoryboardEntry {
	e.IsLoading = false
	e.ImageURL = &imageURL
	e.Error = nil
	return e
}

// Failed はエラーメッセージを設定した失敗状態のコピーを返します。
func (e StoryboardEntry) Failed(message string) StoryboardEntry {
	e.IsLoading = false
	e.ImageURL = nil
	e.Error = &message
	return e
}

// Settled はエントリが成功か失敗のどちらかに確定しているかを返します。
func (e StoryboardEntry) Settled() bool {
	if e.IsLoading {
		return false
	}
	return (e.ImageURL != nil) != (e.Error != nil)
}

// Snapshot はある時点のストーリーボード全体の状態です。
// 購読者へはこの値のコピーが渡されるため、受け取った側で変更しても内部状態には影響しません。
type Snapshot struct {
	RunID      string            `json:"runId,omitempty"`
	Generation uint64            `json:"generation"`
	Phase      Phase             `json:"phase"`
	Entries    []StoryboardEntry `json:"entries"`
	Error      string            `json:"error,omitempty"`
}

// Clone はエントリのスライスを複製したスナップショットを返します。
func (s Snapshot) Clone() Snapshot {
	entries := make([]StoryboardEntry, len(s.Entries))
	copy(entries, s.Entries)
	s.Entries = entries
	return s
}

// Pending はまだ読み込み中のエントリ数を返します。
func (s Snapshot) Pending() int {
	n := 0
	for _, e := range s.Entries {
		if e.IsLoading {
			n++
		}
	}
	return n
}

// Counts は成功と失敗のエントリ数を返します。
func (s Snapshot) Counts() (loaded, failed int) {
	for _, e := range s.Entries {
		switch {
		case e.IsLoading:
		case e.ImageURL != nil:
			loaded++
		case e.Error != nil:
			failed++
		}
	}
	return loaded, failed
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/chat"
	"github.com/shouni/go-storyboard-kit/pkg/domain"
	"github.com/shouni/go-storyboard-kit/pkg/gemini"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type stubParser struct {
	scenes domain.Scenes
	err    error
}

func (p *stubParser) Parse(ctx context.Context, script string) (domain.Scenes, error) {
	return p.scenes, p.err
}

type stubImages struct{}

func (stubImages) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "broken" {
		return "", domain.ErrGenerationFailed
	}
	return "data:image/jpeg;base64,AAAA", nil
}

type stubSession struct {
	reply   string
	err     error
	release chan struct{}
}

func (s *stubSession) Send(ctx context.Context, text string) (string, error) {
	if s.release != nil {
		<-s.release
	}
	return s.reply, s.err
}

type stubFactory struct{ session *stubSession }

func (f *stubFactory) CreateSession(ctx context.Context) (gemini.Session, error) {
	return f.session, nil
}

func newTestServer(t *testing.T, parser *stubParser, session *stubSession) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch, err := storyboard.NewOrchestrator(parser, stubImages{}, nil)
	if err != nil {
		t.Fatalf("Orchestrator の初期化に失敗しました: %v", err)
	}
	conv, err := chat.NewConversation(&stubFactory{session: session})
	if err != nil {
		t.Fatalf("Conversation の初期化に失敗しました: %v", err)
	}
	s, err := New(context.Background(), orch, conv)
	if err != nil {
		t.Fatalf("Server の初期化に失敗しました: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("リクエストのエンコードに失敗しました: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitForPhase(t *testing.T, s *Server, phase domain.Phase) domain.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := s.orch.Store().Snapshot()
		if snap.Phase == phase {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("フェーズ %s になりませんでした: %+v", phase, s.orch.Store().Snapshot())
	return domain.Snapshot{}
}

func TestServer_Basics(t *testing.T) {
	s := newTestServer(t, &stubParser{}, &stubSession{})

	t.Run("healthz", func(t *testing.T) {
		rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("ステータスが違います: %d", rec.Code)
		}
	})

	t.Run("トップページが返ること", func(t *testing.T) {
		rec := doJSON(t, s.Handler(), http.MethodGet, "/", nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Storyboard Generator") {
			t.Errorf("ページが返りません: %d", rec.Code)
		}
	})

	t.Run("サンプル台本が返ること", func(t *testing.T) {
		rec := doJSON(t, s.Handler(), http.MethodGet, "/api/sample", nil)
		var body struct {
			Script string `json:"script"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスの解析に失敗しました: %v", err)
		}
		if !strings.HasPrefix(body.Script, "INT. DINER - NIGHT") {
			t.Errorf("サンプル台本が違います: %q", body.Script)
		}
	})
}

func TestServer_Storyboard(t *testing.T) {
	t.Run("空の台本は400でストアは変化しないこと", func(t *testing.T) {
		s := newTestServer(t, &stubParser{}, &stubSession{})

		rec := doJSON(t, s.Handler(), http.MethodPost, "/api/storyboard", map[string]string{"script": "   "})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("ステータスが違います: %d", rec.Code)
		}
		var body errorResponse
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Error != "Script content cannot be empty." {
			t.Errorf("エラーメッセージが違います: %q", body.Error)
		}
		if s.orch.Store().Generation() != 0 {
			t.Error("ストアが更新されました")
		}
	})

	t.Run("生成を開始して完了後のスナップショットを取得できること", func(t *testing.T) {
		parser := &stubParser{scenes: domain.Scenes{
			{SceneNumber: 1, VisualPrompt: "a diner at night"},
			{SceneNumber: 2, VisualPrompt: "broken"},
		}}
		s := newTestServer(t, parser, &stubSession{})

		rec := doJSON(t, s.Handler(), http.MethodPost, "/api/storyboard", map[string]string{"script": domain.SampleScript})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("ステータスが違います: %d", rec.Code)
		}
		var accepted createStoryboardResponse
		json.Unmarshal(rec.Body.Bytes(), &accepted)
		if accepted.Generation != 1 {
			t.Errorf("世代番号が違います: %d", accepted.Generation)
		}

		waitForPhase(t, s, domain.PhaseDone)

		rec = doJSON(t, s.Handler(), http.MethodGet, "/api/storyboard", nil)
		var snap domain.Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("スナップショットの解析に失敗しました: %v", err)
		}
		if len(snap.Entries) != 2 {
			t.Fatalf("エントリ数が違います: %d", len(snap.Entries))
		}
		if snap.Entries[0].ImageURL == nil || snap.Entries[1].Error == nil || *snap.Entries[1].Error != domain.EntryFailedMessage {
			t.Errorf("エントリの状態が違います: %+v", snap.Entries)
		}
		if !strings.Contains(rec.Body.String(), `"imageUrl":null`) {
			t.Errorf("失敗したエントリの imageUrl が null になっていません: %s", rec.Body.String())
		}
	})

	t.Run("解析失敗はバナー用のメッセージになること", func(t *testing.T) {
		s := newTestServer(t, &stubParser{err: domain.ErrMalformedResponse}, &stubSession{})

		doJSON(t, s.Handler(), http.MethodPost, "/api/storyboard", map[string]string{"script": "script"})
		snap := waitForPhase(t, s, domain.PhaseFailed)
		if snap.Error != domain.ErrMalformedResponse.Error() || len(snap.Entries) != 0 {
			t.Errorf("失敗状態が違います: %+v", snap)
		}
	})

	t.Run("不正なJSONは400になること", func(t *testing.T) {
		s := newTestServer(t, &stubParser{}, &stubSession{})
		req := httptest.NewRequest(http.MethodPost, "/api/storyboard", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("ステータスが違います: %d", rec.Code)
		}
	})
}

func TestServer_Chat(t *testing.T) {
	t.Run("返答と会話ログが返ること", func(t *testing.T) {
		s := newTestServer(t, &stubParser{}, &stubSession{reply: "Try a stronger opening image."})

		rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": "hello"})
		if rec.Code != http.StatusOK {
			t.Fatalf("ステータスが違います: %d", rec.Code)
		}
		var body chatResponse
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Reply.Role != domain.RoleModel || body.Reply.Content != "Try a stronger opening image." {
			t.Errorf("返答が違います: %+v", body.Reply)
		}
		if len(body.Messages) != 3 || body.Messages[0].Content != domain.ChatGreeting {
			t.Errorf("会話ログが違います: %+v", body.Messages)
		}
	})

	t.Run("空のメッセージは400になること", func(t *testing.T) {
		s := newTestServer(t, &stubParser{}, &stubSession{})
		rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": " "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("ステータスが違います: %d", rec.Code)
		}
		if got := len(s.conv.Messages()); got != 1 {
			t.Errorf("会話ログが変化しました: %d", got)
		}
	})

	t.Run("モデルの失敗は謝罪文として200で返ること", func(t *testing.T) {
		s := newTestServer(t, &stubParser{}, &stubSession{err: errors.New("503")})

		rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": "hello"})
		if rec.Code != http.StatusOK {
			t.Fatalf("ステータスが違います: %d", rec.Code)
		}
		var body chatResponse
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Reply.Content != domain.ChatApology || body.Error == "" {
			t.Errorf("謝罪文が返っていません: %+v", body)
		}
	})

	t.Run("返答待ちの間の送信は409になること", func(t *testing.T) {
		session := &stubSession{reply: "ok", release: make(chan struct{})}
		s := newTestServer(t, &stubParser{}, session)

		first := make(chan *httptest.ResponseRecorder, 1)
		go func() {
			first <- doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": "first"})
		}()

		deadline := time.Now().Add(2 * time.Second)
		for !s.conv.Responding() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		rec := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": "second"})
		if rec.Code != http.StatusConflict {
			t.Errorf("ステータスが違います: %d", rec.Code)
		}

		close(session.release)
		if got := (<-first).Code; got != http.StatusOK {
			t.Errorf("最初のターンのステータスが違います: %d", got)
		}
	})
}

func TestServer_WebSocket(t *testing.T) {
	s := newTestServer(t, &stubParser{scenes: domain.Scenes{{SceneNumber: 1, VisualPrompt: "a"}}}, &stubSession{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/storyboard"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("接続に失敗しました: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var initial domain.Snapshot
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("初期スナップショットを受信できません: %v", err)
	}
	if initial.Phase != domain.PhaseIdle {
		t.Errorf("初期フェーズが違います: %s", initial.Phase)
	}

	if err := s.orch.Generate(context.Background(), "script"); err != nil {
		t.Fatalf("生成に失敗しました: %v", err)
	}

	// 最後に完了状態が届くまで読み続ける
	for {
		var snap domain.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("完了スナップショットを受信できません: %v", err)
		}
		if snap.Phase == domain.PhaseDone {
			if len(snap.Entries) != 1 || snap.Entries[0].ImageURL == nil {
				t.Errorf("完了状態が違います: %+v", snap)
			}
			return
		}
	}
}

package scenario

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"chaos-pinger/internal/payload"
)

// faultTarget はシナリオ用の疑似ターゲット
//
// 設定されたステータス列を循環して返し、kill指示を受けると
// blackoutWindowの間だけ接続を切って落ちたノードを演じる。
type faultTarget struct {
	blackoutWindow time.Duration

	mu             sync.Mutex
	statusSequence []int
	index          int
	blackoutUntil  time.Time

	killsReceived atomic.Uint64
	blackouts     atomic.Uint64
}

func newFaultTarget(statusSequence []int, blackoutWindow time.Duration) *faultTarget {
	return &faultTarget{
		statusSequence: statusSequence,
		blackoutWindow: blackoutWindow,
	}
}

func (t *faultTarget) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	kill := payload.ParseKill(body)

	t.mu.Lock()
	// blackout判定はkill処理より先。kill指示自体にはackを返し、
	// 落ちるのは後続リクエストからにする
	dark := time.Now().Before(t.blackoutUntil)
	if kill {
		t.killsReceived.Add(1)
		if t.blackoutWindow > 0 {
			t.blackoutUntil = time.Now().Add(t.blackoutWindow)
		}
	}
	status := http.StatusOK
	if len(t.statusSequence) > 0 {
		status = t.statusSequence[t.index%len(t.statusSequence)]
		t.index++
	}
	t.mu.Unlock()

	if dark {
		t.blackouts.Add(1)
		// レスポンスを書かずに接続を切り、トランスポートエラーを発生させる
		panic(http.ErrAbortHandler)
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
		fmt.Fprintf(w, "injected status %d", status)
		return
	}

	fmt.Fprint(w, "Received request!")
}

// KillsReceived は受信したkill指示の総数を返す
func (t *faultTarget) KillsReceived() uint64 {
	return t.killsReceived.Load()
}

// Blackouts はblackout中に切断したリクエスト数を返す
func (t *faultTarget) Blackouts() uint64 {
	return t.blackouts.Load()
}

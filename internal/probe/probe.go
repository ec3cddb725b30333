package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"chaos-pinger/internal/events"
	"chaos-pinger/internal/logger"
	"chaos-pinger/internal/metrics"
	"chaos-pinger/internal/payload"
)

// デフォルト設定値（reconfigureで省略されたフィールドにも適用される）
const (
	DefaultTargetURL    = "http://google.com/"
	DefaultKillInterval = 1000
	DefaultBearerToken  = ""
)

const (
	// StatusTransportError はトランスポート層の失敗を表す番兵ステータス
	StatusTransportError = -1

	// progressEvery は進捗ログを出す間隔（ウィンドウ内リクエスト数）
	progressEvery = 3

	// maxReasonsPerStatus はステータスコード毎に保持する失敗理由の上限
	// ループは無期限に走るため、理由セットの成長を抑える
	maxReasonsPerStatus = 32

	// maxReasonBytes は失敗理由として保持するレスポンスボディの上限
	maxReasonBytes = 4096
)

// Config はPingerの設定
type Config struct {
	TargetURL       string        // プローブ送信先
	BearerToken     string        // Authorizationヘッダ用トークン（空で無効）
	KillInterval    int           // kill指示の周期（0以下で無効）
	RequestInterval time.Duration // リクエスト間の固定ディレイ
	RequestTimeout  time.Duration // 1リクエストのタイムアウト
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		TargetURL:       DefaultTargetURL,
		BearerToken:     DefaultBearerToken,
		KillInterval:    DefaultKillInterval,
		RequestInterval: 2 * time.Second,
		RequestTimeout:  3 * time.Second,
	}
}

// Options はreconfigure時に渡される設定
//
// nilのフィールドは前回値ではなく固定のデフォルト定数に置き換えられる。
// マージではなくデフォルト再適用がこの契約の核であることに注意。
type Options struct {
	TargetURL    *string `json:"target_url" yaml:"target_url"`
	BearerToken  *string `json:"bearer_token" yaml:"bearer_token"`
	KillInterval *int    `json:"kill_interval" yaml:"kill_interval"`
}

// Pinger はターゲットへ定期プローブを送り続けるコンポーネント
//
// 全てのカウンタと設定フィールドは単一のmutexで保護され、
// 1回の結果反映は1回のロック区間内で完結する。
type Pinger struct {
	mu           sync.Mutex
	targetURL    string
	bearerToken  string
	killInterval int
	live         bool

	totalRequests uint64
	totalSuccess  uint64
	totalFailed   uint64
	totalKill     uint64

	currentRequests uint64
	currentSuccess  uint64
	currentFailed   uint64
	currentKill     uint64

	failedStatusCounts  map[int]uint64
	failedStatusReasons map[int]map[string]struct{}

	interval time.Duration
	timeout  time.Duration

	client   *http.Client
	tracker  *metrics.Tracker
	eventBus *events.Bus

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New は新しいPingerを作成する
func New(config Config) *Pinger {
	if config.RequestInterval <= 0 {
		config.RequestInterval = 2 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 3 * time.Second
	}
	return &Pinger{
		targetURL:           config.TargetURL,
		bearerToken:         config.BearerToken,
		killInterval:        config.KillInterval,
		failedStatusCounts:  make(map[int]uint64),
		failedStatusReasons: make(map[int]map[string]struct{}),
		interval:            config.RequestInterval,
		timeout:             config.RequestTimeout,
		client:              &http.Client{},
		tracker:             metrics.New(),
	}
}

// SetEventBus はイベントバスを設定する
func (p *Pinger) SetEventBus(bus *events.Bus) {
	p.eventBus = bus
}

// publishEvent はイベントを発行する
func (p *Pinger) publishEvent(event events.Event) {
	if p.eventBus != nil {
		p.eventBus.Publish(event)
	}
}

// Start は送信ループを開始する
//
// 既に稼働中の場合は何もせずfalseを返す（カウンタはリセットされない）。
// ループはバックグラウンドのゴルーチンとして走り、呼び出しはすぐ戻る。
func (p *Pinger) Start(ctx context.Context) bool {
	p.mu.Lock()
	if p.live {
		p.mu.Unlock()
		return false
	}
	p.live = true
	target := p.targetURL

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	logger.Info("pinger", "Starting to send requests to URL %q", target)

	p.wg.Add(1)
	go p.sendLoop(loopCtx)

	return true
}

// Stop は送信ループを停止し、ウィンドウカウンタをゼロに戻す
//
// ウィンドウリセットはループの完全終了を待ってから行う。キャンセルを
// 生き延びた送信（レスポンスヘッダ到達済みでボディ読みだけ中断された
// ケース）の結果計上がリセット後に混入しないようにするため。
// 停止済みの場合も安全（冪等）。
func (p *Pinger) Stop() {
	p.mu.Lock()
	target := p.targetURL
	p.live = false
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	logger.Info("pinger", "Stopping requests to URL %q", target)

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	p.resetCurrentCountersLocked()
	p.mu.Unlock()

	p.tracker.Reset()
}

// Reconfigure は設定を置き換える
//
// ループ稼働中のフィールド書き換えを許さないため、必ず先にStopする。
// 省略されたフィールドは固定のデフォルト定数に戻る。
func (p *Pinger) Reconfigure(opts Options) {
	p.Stop()

	newTarget := DefaultTargetURL
	if opts.TargetURL != nil {
		newTarget = *opts.TargetURL
	}
	newToken := DefaultBearerToken
	if opts.BearerToken != nil {
		newToken = *opts.BearerToken
	}
	newInterval := DefaultKillInterval
	if opts.KillInterval != nil {
		newInterval = *opts.KillInterval
	}

	p.mu.Lock()
	logger.Info("pinger", "Changing kill interval from %d to %d.", p.killInterval, newInterval)
	p.killInterval = newInterval
	logger.Info("pinger", "Changing target URL from %q to %q", p.targetURL, newTarget)
	p.targetURL = newTarget
	p.bearerToken = newToken
	p.mu.Unlock()
}

// Live は送信ループが稼働中かどうかを返す
func (p *Pinger) Live() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Snapshot はカウンタとフラグの読み取り専用コピー
type Snapshot struct {
	Live         bool   `json:"live"`
	TargetURL    string `json:"target_url"`
	KillInterval int    `json:"kill_interval"`

	TotalRequests uint64 `json:"total_requests"`
	TotalSuccess  uint64 `json:"total_successful_requests"`
	TotalFailed   uint64 `json:"total_failed_requests"`
	TotalKill     uint64 `json:"total_kill_requests"`

	CurrentRequests uint64 `json:"current_requests"`
	CurrentSuccess  uint64 `json:"current_successful_requests"`
	CurrentFailed   uint64 `json:"current_failed_requests"`
	CurrentKill     uint64 `json:"current_kill_requests"`

	FailedStatusCounts  map[int]uint64   `json:"failed_status_counts"`
	FailedStatusReasons map[int][]string `json:"failed_status_reasons"`

	LastSuccessLatency string  `json:"last_success_latency,omitempty"`
	AvgSuccessLatency  string  `json:"avg_success_latency,omitempty"`
	RPS                float64 `json:"rps"`
}

// Info は現在の状態のスナップショットを返す
//
// スナップショット作成はロックの取得のみで、送信中のリクエスト完了を
// 待つことはない。
func (p *Pinger) Info() Snapshot {
	p.mu.Lock()

	snap := Snapshot{
		Live:            p.live,
		TargetURL:       p.targetURL,
		KillInterval:    p.killInterval,
		TotalRequests:   p.totalRequests,
		TotalSuccess:    p.totalSuccess,
		TotalFailed:     p.totalFailed,
		TotalKill:       p.totalKill,
		CurrentRequests: p.currentRequests,
		CurrentSuccess:  p.currentSuccess,
		CurrentFailed:   p.currentFailed,
		CurrentKill:     p.currentKill,
	}

	snap.FailedStatusCounts = make(map[int]uint64, len(p.failedStatusCounts))
	for code, count := range p.failedStatusCounts {
		snap.FailedStatusCounts[code] = count
	}

	snap.FailedStatusReasons = make(map[int][]string, len(p.failedStatusReasons))
	for code, reasons := range p.failedStatusReasons {
		list := make([]string, 0, len(reasons))
		for reason := range reasons {
			list = append(list, reason)
		}
		sort.Strings(list)
		snap.FailedStatusReasons[code] = list
	}

	p.mu.Unlock()

	ms := p.tracker.Snapshot()
	if ms.LastLatency > 0 {
		snap.LastSuccessLatency = ms.LastLatency.String()
	}
	if ms.AverageLatency > 0 {
		snap.AvgSuccessLatency = ms.AverageLatency.String()
	}
	snap.RPS = ms.RPS

	return snap
}

// Tracker はレイテンシトラッカーを返す
func (p *Pinger) Tracker() *metrics.Tracker {
	return p.tracker
}

// sendLoop は停止されるまでプローブを送り続ける
func (p *Pinger) sendLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		if !p.live {
			p.mu.Unlock()
			return
		}
		target := p.targetURL
		token := p.bearerToken
		timeout := p.timeout
		interval := p.interval
		sendKill := p.killInterval > 0 &&
			p.currentRequests%uint64(p.killInterval) == uint64(p.killInterval-1)
		p.mu.Unlock()

		if sendKill {
			logger.Info("pinger", "Sending kill request.")
			p.publishEvent(events.NewKillSentEvent(target))
		}

		body, err := payload.NewProbe(sendKill).Marshal()
		if err != nil {
			// ワイヤモデルが壊れている場合のみ起こり得る
			logger.Error("pinger", "Failed to encode probe payload: %v", err)
			return
		}

		start := time.Now()
		status, respBody, sendErr := p.send(ctx, target, token, timeout, body)
		latency := time.Since(start)

		// stop()によるキャンセルで中断された試行は結果として数えない
		if sendErr != nil && ctx.Err() != nil {
			return
		}

		switch {
		case sendErr != nil:
			p.countFailedRequest(StatusTransportError, sendErr.Error())
			p.publishEvent(events.NewProbeFailureEvent(target, StatusTransportError, sendErr.Error()))
		case sendKill:
			// killリクエストは接続が切断される前提のため、
			// レスポンスコードに関わらず成功として数える
			p.countSuccessfulRequest(true)
			if status == http.StatusOK {
				p.tracker.RecordLatency(latency)
			}
		case status == http.StatusOK:
			p.countSuccessfulRequest(false)
			p.tracker.RecordLatency(latency)
			p.publishEvent(events.NewProbeSuccessEvent(target, latency))
		default:
			p.countFailedRequest(status, respBody)
			p.publishEvent(events.NewProbeFailureEvent(target, status, respBody))
		}

		p.mu.Lock()
		current := p.currentRequests
		p.mu.Unlock()
		if current%progressEvery == 0 {
			logger.Info("pinger", "Sent %d requests to %q.", current, target)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// send は1回のプローブを送信する
func (p *Pinger) send(ctx context.Context, target, token string, timeout time.Duration, body []byte) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxReasonBytes))
	if err != nil {
		// ボディが読めなくてもステータスは分類に使える。
		// 失敗理由には読み取りエラーの症状を残す
		return resp.StatusCode, fmt.Sprintf("body read failed: %v", err), nil
	}
	return resp.StatusCode, string(respBody), nil
}

// countSuccessfulRequest は成功（およびkill）の結果を1ロック区間で反映する
func (p *Pinger) countSuccessfulRequest(killRequest bool) {
	p.mu.Lock()
	p.totalRequests++
	p.totalSuccess++
	p.currentRequests++
	p.currentSuccess++
	if killRequest {
		p.totalKill++
		p.currentKill++
	}
	p.mu.Unlock()

	p.tracker.RecordProbe()
}

// countFailedRequest は失敗の結果を1ロック区間で反映する
func (p *Pinger) countFailedRequest(statusCode int, reason string) {
	p.mu.Lock()
	p.totalRequests++
	p.totalFailed++
	p.currentRequests++
	p.currentFailed++
	p.failedStatusCounts[statusCode]++

	reasons, ok := p.failedStatusReasons[statusCode]
	if !ok {
		reasons = make(map[string]struct{})
		p.failedStatusReasons[statusCode] = reasons
	}
	if len(reasons) < maxReasonsPerStatus {
		reasons[reason] = struct{}{}
	}
	p.mu.Unlock()

	p.tracker.RecordProbe()
}

// resetCurrentCountersLocked はウィンドウカウンタをゼロに戻す
// 呼び出し側がロックを保持していること
func (p *Pinger) resetCurrentCountersLocked() {
	p.currentRequests = 0
	p.currentSuccess = 0
	p.currentFailed = 0
	p.currentKill = 0
}

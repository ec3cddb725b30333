package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Tracker はプローブのレイテンシとレートを収集する
//
// 成功/失敗の正式な台帳はPinger自身が持つ。
// Trackerは成功プローブのラウンドトリップ時間と送信レートの
// 診断値のみを扱う。
type Tracker struct {
	totalProbes    atomic.Uint64
	totalSamples   atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowProbes      uint64
	lastLatency       time.Duration
	latencies         []time.Duration
	maxLatencySamples int
}

// New は新しいTrackerを作成する
func New() *Tracker {
	now := time.Now()
	return &Tracker{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, 1000),
		maxLatencySamples: 1000,
	}
}

// RecordProbe はプローブ送信を記録する（成否問わず）
func (t *Tracker) RecordProbe() {
	t.totalProbes.Add(1)

	t.mu.Lock()
	t.windowProbes++
	t.mu.Unlock()
}

// RecordLatency は成功したプローブのラウンドトリップ時間を記録する
func (t *Tracker) RecordLatency(latency time.Duration) {
	t.totalSamples.Add(1)
	t.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	t.mu.Lock()
	t.lastLatency = latency
	if len(t.latencies) < t.maxLatencySamples {
		t.latencies = append(t.latencies, latency)
	}
	t.mu.Unlock()
}

// TotalProbes は総プローブ数を返す
func (t *Tracker) TotalProbes() uint64 {
	return t.totalProbes.Load()
}

// LastLatency は直近の成功レイテンシを返す
func (t *Tracker) LastLatency() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastLatency
}

// RPS は現在ウィンドウのRequests Per Secondを返す
func (t *Tracker) RPS() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	elapsed := time.Since(t.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(t.windowProbes) / elapsed
}

// AverageLatency は成功プローブの平均レイテンシを返す
func (t *Tracker) AverageLatency() time.Duration {
	samples := t.totalSamples.Load()
	if samples == 0 {
		return 0
	}
	return time.Duration(t.totalLatencyNs.Load() / samples)
}

// P99Latency はP99レイテンシを返す（サンプルベース）
func (t *Tracker) P99Latency() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.latencies) == 0 {
		return 0
	}

	// コピーしてソート
	sorted := make([]time.Duration, len(t.latencies))
	copy(sorted, t.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Reset はウィンドウ状態をリセットする
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.windowProbes = 0
	t.lastResetTime = time.Now()
	t.latencies = t.latencies[:0]
	t.lastLatency = 0
}

// Snapshot はトラッカーのスナップショット
type Snapshot struct {
	TotalProbes    uint64
	RPS            float64
	LastLatency    time.Duration
	AverageLatency time.Duration
	P99Latency     time.Duration
	Elapsed        time.Duration
}

// Snapshot は現在の診断値のスナップショットを返す
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	start := t.startTime
	t.mu.RUnlock()

	return Snapshot{
		TotalProbes:    t.TotalProbes(),
		RPS:            t.RPS(),
		LastLatency:    t.LastLatency(),
		AverageLatency: t.AverageLatency(),
		P99Latency:     t.P99Latency(),
		Elapsed:        time.Since(start),
	}
}

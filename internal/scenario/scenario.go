package scenario

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"chaos-pinger/internal/events"
	"chaos-pinger/internal/logger"
	"chaos-pinger/internal/probe"

	"go.uber.org/multierr"
)

// Config はシナリオの設定
type Config struct {
	Name        string        // シナリオ名
	Description string        // 説明
	Duration    time.Duration // 実行時間

	// Pinger設定
	RequestInterval time.Duration // リクエスト間隔
	RequestTimeout  time.Duration // リクエストタイムアウト
	KillInterval    int           // kill指示の周期（0で無効）
	BearerToken     string        // 認証トークン

	// ターゲット挙動
	StatusSequence []int         // 応答ステータスの循環列（空なら常に200）
	BlackoutWindow time.Duration // kill受信後に応答を落とす時間
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:            "default",
		Description:     "Default soak scenario",
		Duration:        10 * time.Second,
		RequestInterval: 100 * time.Millisecond,
		RequestTimeout:  time.Second,
		KillInterval:    0,
		BlackoutWindow:  time.Second,
	}
}

// Result はシナリオ実行結果
type Result struct {
	ScenarioName string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration

	// プローブ統計
	TotalRequests   uint64
	SuccessRequests uint64
	FailedRequests  uint64
	KillRequests    uint64
	ErrorRate       float64
	AvgLatency      time.Duration
	P99Latency      time.Duration
	RPS             float64

	// ターゲット側統計
	KillsReceived uint64
	Blackouts     uint64

	// ステータス別の失敗内訳
	FailedStatusCounts map[int]uint64
}

// Engine はシナリオ実行エンジン
//
// ローカルの疑似ターゲットを立て、その上でPingerを一定時間走らせる。
type Engine struct {
	config   Config
	eventBus *events.Bus

	pinger   *probe.Pinger
	target   *faultTarget
	server   *http.Server
	listener net.Listener

	mu      sync.RWMutex
	running bool
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// Run はシナリオを実行する
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("scenario is already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	logger.Info("", "=== Scenario '%s' started ===", e.config.Name)
	logger.Info("", "Description: %s", e.config.Description)

	result := &Result{
		ScenarioName: e.config.Name,
		StartTime:    time.Now(),
	}

	if err := e.setup(); err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	defer func() {
		if err := e.teardown(); err != nil {
			logger.Warn("", "Teardown finished with errors: %v", err)
		}
	}()

	scenarioCtx, cancel := context.WithTimeout(ctx, e.config.Duration)
	defer cancel()

	e.runScenario(scenarioCtx)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	e.collectResults(result)

	logger.Info("", "=== Scenario '%s' completed ===", e.config.Name)

	return result, nil
}

// setup はシナリオ実行前のセットアップ
func (e *Engine) setup() error {
	// 疑似ターゲット
	e.target = newFaultTarget(e.config.StatusSequence, e.config.BlackoutWindow)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	e.listener = listener
	e.server = &http.Server{Handler: e.target}

	go func() {
		if serveErr := e.server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("", "Scenario target server error: %v", serveErr)
		}
	}()

	// Pinger
	pingerConfig := probe.DefaultConfig()
	pingerConfig.TargetURL = fmt.Sprintf("http://%s/", listener.Addr().String())
	pingerConfig.BearerToken = e.config.BearerToken
	pingerConfig.KillInterval = e.config.KillInterval
	pingerConfig.RequestInterval = e.config.RequestInterval
	pingerConfig.RequestTimeout = e.config.RequestTimeout
	e.pinger = probe.New(pingerConfig)
	if e.eventBus != nil {
		e.pinger.SetEventBus(e.eventBus)
	}

	return nil
}

// teardown はシナリオ実行後のクリーンアップ
func (e *Engine) teardown() error {
	var errs error

	if e.pinger != nil {
		e.pinger.Stop()
	}
	if e.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.server.Shutdown(shutdownCtx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("target shutdown: %w", err))
		}
	}

	return errs
}

// runScenario はシナリオのメイン処理
func (e *Engine) runScenario(ctx context.Context) {
	e.pinger.Start(ctx)

	<-ctx.Done()

	logger.Info("", "Scenario duration completed, stopping pinger...")
	e.pinger.Stop()
}

// collectResults は結果を収集する
func (e *Engine) collectResults(result *Result) {
	info := e.pinger.Info()
	result.TotalRequests = info.TotalRequests
	result.SuccessRequests = info.TotalSuccess
	result.FailedRequests = info.TotalFailed
	result.KillRequests = info.TotalKill
	if info.TotalRequests > 0 {
		result.ErrorRate = float64(info.TotalFailed) / float64(info.TotalRequests)
	}
	result.FailedStatusCounts = info.FailedStatusCounts

	snapshot := e.pinger.Tracker().Snapshot()
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency
	result.RPS = snapshot.RPS

	result.KillsReceived = e.target.KillsReceived()
	result.Blackouts = e.target.Blackouts()
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	report := fmt.Sprintf(`
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v

PROBE METRICS
-------------
  Total Requests:   %d
  Success:          %d
  Failed:           %d
  Kill Requests:    %d
  Error Rate:       %.2f%%
  Avg Latency:      %v
  P99 Latency:      %v
  RPS:              %.2f

TARGET STATISTICS
-----------------
  Kills Received:   %d
  Blackouts:        %d

FAILED STATUS BREAKDOWN
-----------------------
`,
		r.ScenarioName,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.TotalRequests,
		r.SuccessRequests,
		r.FailedRequests,
		r.KillRequests,
		r.ErrorRate*100,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
		r.RPS,
		r.KillsReceived,
		r.Blackouts,
	)

	if len(r.FailedStatusCounts) == 0 {
		report += "  (none)\n"
	}
	for status, count := range r.FailedStatusCounts {
		report += fmt.Sprintf("  %-20d %d\n", status, count)
	}

	report += "\n================================================================================"

	return report
}

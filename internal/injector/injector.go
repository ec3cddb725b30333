package injector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"chaos-pinger/internal/events"
	"chaos-pinger/internal/logger"
	"chaos-pinger/internal/payload"
	"chaos-pinger/internal/worker"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxBodyBytes は読み込むリクエストボディの上限
const maxBodyBytes = 1 << 20

// NodeKiller はReceiverが委譲する終了処理のインターフェース
type NodeKiller interface {
	Kill(ctx context.Context)
}

// Config はReceiverの設定
type Config struct {
	KillWait       time.Duration // terminator完了待ちの上限
	SuppressPeriod time.Duration // 連続killの抑制間隔
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		KillWait:       10 * time.Second,
		SuppressPeriod: 30 * time.Second,
	}
}

// Receiver はプローブを受け、kill指示があればterminatorへ委譲する
//
// リクエスト毎の状態は持たず、複数レプリカでの水平スケールを前提とする。
// terminatorの失敗やタイムアウトは呼び出し元に伝播しない。
type Receiver struct {
	instanceID string
	pid        int
	killer     NodeKiller
	pool       *worker.Pool
	limiter    *rate.Limiter
	eventBus   *events.Bus
	config     Config
}

// New は新しいReceiverを作成する
func New(killer NodeKiller, pool *worker.Pool, config Config) *Receiver {
	if config.KillWait <= 0 {
		config.KillWait = 10 * time.Second
	}
	if config.SuppressPeriod <= 0 {
		config.SuppressPeriod = 30 * time.Second
	}
	return &Receiver{
		instanceID: uuid.NewString(),
		pid:        os.Getpid(),
		killer:     killer,
		pool:       pool,
		limiter:    rate.NewLimiter(rate.Every(config.SuppressPeriod), 1),
		config:     config,
	}
}

// SetEventBus はイベントバスを設定する
func (rc *Receiver) SetEventBus(bus *events.Bus) {
	rc.eventBus = bus
}

// publishEvent はイベントを発行する
func (rc *Receiver) publishEvent(event events.Event) {
	if rc.eventBus != nil {
		rc.eventBus.Publish(event)
	}
}

// InstanceID はこのレプリカの識別子を返す
func (rc *Receiver) InstanceID() string {
	return rc.instanceID
}

// ServeHTTP はプローブリクエストを処理する
//
// killフラグの有無に関わらず、必ず生存応答を返す。
func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		body = nil
	}

	if payload.ParseKill(body) {
		logger.Info("receiver", "Received kill request. Attempting to kill a node.")
		rc.publishEvent(events.NewKillReceivedEvent(rc.instanceID))
		rc.triggerKill()
	}

	fmt.Fprintf(w, "(instance: %s, pid: %d) Received request!", rc.instanceID, rc.pid)
}

// triggerKill はterminatorを起動し、上限つきで完了を待つ
//
// 待ちが打ち切られてもterminator自体は走り続ける（fire-and-forget）。
// 抑制間隔内の連続killは冗長とみなして落とす。
func (rc *Receiver) triggerKill() {
	if !rc.limiter.Allow() {
		logger.Info("receiver", "Kill already triggered recently, suppressing redundant termination")
		rc.publishEvent(events.NewTerminationSuppressedEvent(rc.instanceID, "rate limited"))
		return
	}

	// リクエストコンテキストには紐付けない:
	// レスポンス送信後もterminatorは走り続ける必要がある
	done, ok := rc.pool.Dispatch(func() {
		rc.killer.Kill(context.Background())
	})
	if !ok {
		logger.Warn("receiver", "Worker pool rejected kill job")
		return
	}

	select {
	case <-done:
	case <-time.After(rc.config.KillWait):
		logger.Warn("receiver", "Terminator did not finish within %v, responding anyway", rc.config.KillWait)
	}
}

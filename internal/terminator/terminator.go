package terminator

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strconv"
	"sync/atomic"
	"time"

	"chaos-pinger/internal/cluster"
	"chaos-pinger/internal/events"
	"chaos-pinger/internal/logger"
)

// PeerLister はterminatorが参照するメンバーシップの最小インターフェース
type PeerLister interface {
	Live() []cluster.Peer
}

// Config はKillerの設定
type Config struct {
	ListTimeout time.Duration // ピア列挙の待機上限
	KillTimeout time.Duration // killコマンド自体の待機上限
	KillCommand []string      // ノード終了に使う外部コマンド
}

// DefaultConfig はデフォルト設定を返す
//
// デフォルトのkillコマンドは自プロセスのSIGKILL。receiverの稼働環境が
// プロセス単位でノードを構成している場合にそのまま使える。
func DefaultConfig() Config {
	return Config{
		ListTimeout: 3 * time.Second,
		KillTimeout: 10 * time.Second,
		KillCommand: []string{"kill", "-9", strconv.Itoa(os.Getpid())},
	}
}

// Killer はローカルノードのサービスプロセスを終了させる
//
// Killは戻ってこないことが前提の破壊的操作であり、呼び出し側は
// レスポンスを期待してはならない。
type Killer struct {
	registry    PeerLister
	config      Config
	eventBus    *events.Bus
	terminating atomic.Bool
}

// New は新しいKillerを作成する
// registry は nil でもよい（列挙がスキップされるだけ）
func New(registry PeerLister, config Config) *Killer {
	if config.ListTimeout <= 0 {
		config.ListTimeout = 3 * time.Second
	}
	if config.KillTimeout <= 0 {
		config.KillTimeout = 10 * time.Second
	}
	return &Killer{
		registry: registry,
		config:   config,
	}
}

// SetEventBus はイベントバスを設定する
func (k *Killer) SetEventBus(bus *events.Bus) {
	k.eventBus = bus
}

// Terminating は終了処理が既に始まっているかどうかを返す
func (k *Killer) Terminating() bool {
	return k.terminating.Load()
}

// Kill は生存ピアをベストエフォートで列挙した後、ローカルノードを終了させる
//
// 冪等: 既に終了処理中の場合は何もしない。列挙の失敗はログに残すだけで
// 終了処理を止めない。
func (k *Killer) Kill(ctx context.Context) {
	if k.terminating.Swap(true) {
		logger.Info("terminator", "Node already terminating, ignoring redundant kill")
		return
	}

	k.logPeerSummary(ctx)

	if k.eventBus != nil {
		k.eventBus.Publish(events.NewTerminationStartedEvent(strconv.Itoa(os.Getpid())))
	}

	if len(k.config.KillCommand) == 0 {
		logger.Error("terminator", "No kill command configured, node not terminated")
		return
	}

	logger.Warn("terminator", "Killing node (pid %d) via %v", os.Getpid(), k.config.KillCommand)

	cmdCtx, cancel := context.WithTimeout(ctx, k.config.KillTimeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, k.config.KillCommand[0], k.config.KillCommand[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// 正常に戻らないのが本来の姿。ログのみ残す
		logger.Warn("terminator", "Kill command returned: %v (output: %s)", err, output)
	}
}

// logPeerSummary は生存ピアの一覧を診断目的でログに出す
// 失敗しても終了処理は続行される
func (k *Killer) logPeerSummary(ctx context.Context) {
	if k.registry == nil {
		logger.Warn("terminator", "Failed to get peer info: no registry configured")
		return
	}

	listCtx, cancel := context.WithTimeout(ctx, k.config.ListTimeout)
	defer cancel()

	ch := make(chan []cluster.Peer, 1)
	go func() {
		ch <- k.registry.Live()
	}()

	select {
	case <-listCtx.Done():
		logger.Warn("terminator", "Failed to get peer info: %v", listCtx.Err())
	case peers := <-ch:
		data, err := json.MarshalIndent(peers, "", "  ")
		if err != nil {
			logger.Warn("terminator", "Failed to encode peer summary: %v", err)
			return
		}
		logger.Info("terminator", "Peer summary:\n%s", data)
	}
}

// Package main is the entry point for the receiver.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chaos-pinger/internal/cluster"
	"chaos-pinger/internal/config"
	"chaos-pinger/internal/events"
	"chaos-pinger/internal/injector"
	"chaos-pinger/internal/logger"
	"chaos-pinger/internal/terminator"
	"chaos-pinger/internal/worker"

	"go.uber.org/multierr"
)

var (
	version = "dev"
)

// 受信ループを止めずにkillを処理するためのワーカー数デフォルト
const defaultWorkers = 4

func main() {
	// フラグ定義
	var (
		configFile     = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		addr           = flag.String("addr", ":9000", "受信アドレス (例: :9000)")
		workers        = flag.Int("workers", 0, "killジョブ用ワーカー数")
		killWait       = flag.Duration("kill-wait", 0, "kill完了の待機上限 (例: 10s)")
		suppressPeriod = flag.Duration("suppress", 0, "kill抑止期間 (例: 30s)")
		showVersion    = flag.Bool("version", false, "バージョンを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Receiver - Probe Endpoint with Fault Injection

Usage:
  receiver [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト設定で起動
  receiver

  # アドレスと抑止期間を指定して起動
  receiver --addr :9000 --suppress 1m

  # 設定ファイルから起動
  receiver --config receiver.yaml
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("receiver version %s\n", version)
		return
	}

	if err := run(*configFile, *addr, *workers, *killWait, *suppressPeriod); err != nil {
		logger.Error("", "サーバーエラー: %v", err)
		os.Exit(1)
	}
}

// run はreceiverの本体を起動する
func run(configFile, addr string, workers int, killWait, suppressPeriod time.Duration) error {
	injectorConfig := injector.DefaultConfig()
	terminatorConfig := terminator.DefaultConfig()
	registryTTL := cluster.DefaultTTL

	// 1. 設定ファイルから読み込み
	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return fmt.Errorf("設定検証エラー: %w", err)
		}
		injectorConfig, err = fileConfig.ToInjectorConfig()
		if err != nil {
			return fmt.Errorf("設定変換エラー: %w", err)
		}
		terminatorConfig, err = fileConfig.ToTerminatorConfig()
		if err != nil {
			return fmt.Errorf("設定変換エラー: %w", err)
		}
		if ttl, ttlErr := fileConfig.RegistryTTL(); ttlErr != nil {
			return fmt.Errorf("設定変換エラー: %w", ttlErr)
		} else if ttl > 0 {
			registryTTL = ttl
		}
		if fileConfig.Receiver.Addr != "" {
			addr = fileConfig.Receiver.Addr
		}
		if fileConfig.Receiver.Workers > 0 {
			workers = fileConfig.Receiver.Workers
		}
	}

	// 2. フラグでオーバーライド
	if killWait > 0 {
		injectorConfig.KillWait = killWait
	}
	if suppressPeriod > 0 {
		injectorConfig.SuppressPeriod = suppressPeriod
	}
	if workers <= 0 {
		workers = defaultWorkers
	}

	fmt.Println("Receiver - Probe Endpoint with Fault Injection")
	fmt.Println("==============================================")
	fmt.Printf("Listen:   http://%s\n", addr)
	fmt.Printf("PID:      %d\n", os.Getpid())
	fmt.Printf("Suppress: %v\n", injectorConfig.SuppressPeriod)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
		cancel()
	}()

	eventBus := events.NewBus()
	defer eventBus.Close()

	// kill/termination系イベントを運用ログに残す
	faultCh := eventBus.SubscribeFault()
	go func() {
		for ev := range faultCh {
			logger.Info("", "Fault event: %s (instance: %s)", ev.Type, ev.Data.InstanceID)
		}
	}()

	// ピアレジストリ（自ノードを登録し、生存を通知する）
	registry := cluster.New(registryTTL)
	self := registry.Register(addr, os.Getpid())
	registry.StartSweeper(ctx)
	go heartbeatLoop(ctx, registry, self.ID, registryTTL)

	// kill実行系
	killer := terminator.New(registry, terminatorConfig)
	killer.SetEventBus(eventBus)

	pool := worker.NewPool(workers)
	pool.Start(ctx)

	receiver := injector.New(killer, pool, injectorConfig)
	receiver.SetEventBus(eventBus)

	logger.Info("", "Receiver instance %s is ready.", receiver.InstanceID())

	server := &http.Server{
		Addr:    addr,
		Handler: receiver,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return shutdown(server, registry, pool, self.ID)
}

// heartbeatLoop はレジストリへ定期的に生存を通知する
func heartbeatLoop(ctx context.Context, registry *cluster.Registry, id string, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry.Heartbeat(id)
		}
	}
}

// shutdown は各コンポーネントを停止し、エラーを集約して返す
func shutdown(server *http.Server, registry *cluster.Registry, pool *worker.Pool, selfID string) error {
	var errs error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	pool.Stop()
	registry.StopSweeper()

	if err := registry.Deregister(selfID); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("deregister: %w", err))
	}

	return errs
}

// Package main is the entry point for the pinger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chaos-pinger/internal/api"
	"chaos-pinger/internal/config"
	"chaos-pinger/internal/events"
	"chaos-pinger/internal/logger"
	"chaos-pinger/internal/probe"
	"chaos-pinger/internal/scenario"
)

var (
	version = "dev"
)

func main() {
	// フラグ定義
	var (
		configFile   = flag.String("config", "", "設定ファイルパス (YAML/JSON)")
		addr         = flag.String("addr", ":8080", "制御APIのアドレス (例: :8080)")
		targetURL    = flag.String("target", "", "プローブ送信先URL")
		bearerToken  = flag.String("token", "", "Authorizationヘッダ用のBearerトークン")
		killInterval = flag.Int("kill-interval", -1, "kill指示の周期（0で無効、負値で未指定）")
		interval     = flag.Duration("interval", 0, "リクエスト間隔 (例: 2s)")
		timeout      = flag.Duration("timeout", 0, "1リクエストのタイムアウト (例: 3s)")
		presetName   = flag.String("preset", "", "ソークシナリオを実行して終了 (steady, resilience, flaky, quick)")
		listPresets  = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
		showVersion  = flag.Bool("version", false, "バージョンを表示")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Pinger - Continuous Liveness Prober with Kill Injection

Usage:
  pinger [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # デフォルト設定で制御APIを起動
  pinger

  # ターゲットと周期を指定して起動
  pinger --target http://receiver:9000/ --kill-interval 500

  # 設定ファイルから起動
  pinger --config pinger.yaml

  # ソークシナリオを実行
  pinger --preset resilience
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("pinger version %s\n", version)
		return
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	// シナリオモード
	if *presetName != "" {
		if err := runScenario(*presetName); err != nil {
			logger.Error("", "シナリオ実行エラー: %v", err)
			os.Exit(1)
		}
		return
	}

	// サーバーモード
	probeConfig, serverAddr, err := buildProbeConfig(
		*configFile, *addr, *targetURL, *bearerToken, *killInterval, *interval, *timeout,
	)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(1)
	}

	if err := runServer(serverAddr, probeConfig); err != nil {
		logger.Error("", "サーバーエラー: %v", err)
		os.Exit(1)
	}
}

// buildProbeConfig はプローブ設定を構築する
func buildProbeConfig(
	configFile, addr, targetURL, bearerToken string,
	killInterval int, interval, timeout time.Duration,
) (probe.Config, string, error) {
	cfg := probe.DefaultConfig()

	// 1. 設定ファイルから読み込み
	if configFile != "" {
		fileConfig, err := config.LoadFile(configFile)
		if err != nil {
			return cfg, addr, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, addr, fmt.Errorf("設定検証エラー: %w", err)
		}
		cfg, err = fileConfig.ToProbeConfig()
		if err != nil {
			return cfg, addr, fmt.Errorf("設定変換エラー: %w", err)
		}
		if fileConfig.Pinger.Addr != "" {
			addr = fileConfig.Pinger.Addr
		}
	}

	// 2. フラグでオーバーライド
	if targetURL != "" {
		cfg.TargetURL = targetURL
	}
	if bearerToken != "" {
		cfg.BearerToken = bearerToken
	}
	if killInterval >= 0 {
		cfg.KillInterval = killInterval
	}
	if interval > 0 {
		cfg.RequestInterval = interval
	}
	if timeout > 0 {
		cfg.RequestTimeout = timeout
	}

	return cfg, addr, nil
}

// runServer は制御APIサーバーを起動する
func runServer(addr string, probeConfig probe.Config) error {
	fmt.Println("Pinger - Continuous Liveness Prober")
	fmt.Println("===================================")
	fmt.Printf("Control API: http://%s\n", addr)
	fmt.Printf("Target:      %s\n", probeConfig.TargetURL)
	fmt.Printf("Kill every:  %d requests\n", probeConfig.KillInterval)
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

	pinger := probe.New(probeConfig)
	pinger.SetEventBus(eventBus)
	defer pinger.Stop()

	server := api.NewServer(addr, pinger, eventBus)
	return server.Start(ctx)
}

// runScenario はソークシナリオを実行する
func runScenario(presetName string) error {
	cfg, ok := scenario.GetPreset(presetName)
	if !ok {
		return fmt.Errorf("不明なプリセット: %s (利用可能: %v)", presetName, scenario.ListPresets())
	}

	fmt.Println("Pinger - Soak Scenario")
	fmt.Println("======================")
	fmt.Printf("Scenario: %s\n", cfg.Name)
	fmt.Printf("Duration: %v\n", cfg.Duration)
	fmt.Println("======================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、シナリオを終了中...")
		cancel()
	}()

	engine := scenario.New(cfg)
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Report())

	return nil
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なプリセットシナリオ:")
	fmt.Println()

	presets := []struct {
		name string
		desc string
	}{
		{"steady", "健全なターゲットへの負荷テスト"},
		{"resilience", "kill注入とblackoutのテスト"},
		{"flaky", "5xxが混ざる不安定ターゲットのテスト"},
		{"quick", "短時間の動作確認"},
	}

	for _, p := range presets {
		fmt.Printf("  %-12s %s\n", p.name, p.desc)
	}

	fmt.Println()
	fmt.Println("使用例: pinger --preset quick")
}

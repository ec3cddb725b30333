package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chaos-pinger/internal/injector"
	"chaos-pinger/internal/probe"
	"chaos-pinger/internal/terminator"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pinger   PingerConfig   `yaml:"pinger" json:"pinger"`
	Receiver ReceiverConfig `yaml:"receiver" json:"receiver"`
}

// PingerConfig はPinger側の設定
type PingerConfig struct {
	Addr            string `yaml:"addr" json:"addr"`
	TargetURL       string `yaml:"target_url" json:"target_url"`
	BearerToken     string `yaml:"bearer_token" json:"bearer_token"`
	KillInterval    *int   `yaml:"kill_interval" json:"kill_interval"`
	RequestInterval string `yaml:"request_interval" json:"request_interval"`
	RequestTimeout  string `yaml:"request_timeout" json:"request_timeout"`
}

// ReceiverConfig はReceiver側の設定
type ReceiverConfig struct {
	Addr           string   `yaml:"addr" json:"addr"`
	Workers        int      `yaml:"workers" json:"workers"`
	KillWait       string   `yaml:"kill_wait" json:"kill_wait"`
	SuppressPeriod string   `yaml:"suppress_period" json:"suppress_period"`
	ListTimeout    string   `yaml:"list_timeout" json:"list_timeout"`
	KillCommand    []string `yaml:"kill_command" json:"kill_command"`
	RegistryTTL    string   `yaml:"registry_ttl" json:"registry_ttl"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToProbeConfig はPingerConfigをprobe.Configに変換する
func (f *FileConfig) ToProbeConfig() (probe.Config, error) {
	pc := f.Pinger

	// デフォルト値の設定
	config := probe.DefaultConfig()

	if pc.TargetURL != "" {
		config.TargetURL = pc.TargetURL
	}
	if pc.BearerToken != "" {
		config.BearerToken = pc.BearerToken
	}
	if pc.KillInterval != nil {
		config.KillInterval = *pc.KillInterval
	}
	if pc.RequestInterval != "" {
		d, err := time.ParseDuration(pc.RequestInterval)
		if err != nil {
			return config, fmt.Errorf("invalid request_interval: %w", err)
		}
		config.RequestInterval = d
	}
	if pc.RequestTimeout != "" {
		d, err := time.ParseDuration(pc.RequestTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid request_timeout: %w", err)
		}
		config.RequestTimeout = d
	}

	return config, nil
}

// ToInjectorConfig はReceiverConfigをinjector.Configに変換する
func (f *FileConfig) ToInjectorConfig() (injector.Config, error) {
	rc := f.Receiver

	config := injector.DefaultConfig()

	if rc.KillWait != "" {
		d, err := time.ParseDuration(rc.KillWait)
		if err != nil {
			return config, fmt.Errorf("invalid kill_wait: %w", err)
		}
		config.KillWait = d
	}
	if rc.SuppressPeriod != "" {
		d, err := time.ParseDuration(rc.SuppressPeriod)
		if err != nil {
			return config, fmt.Errorf("invalid suppress_period: %w", err)
		}
		config.SuppressPeriod = d
	}

	return config, nil
}

// ToTerminatorConfig はReceiverConfigをterminator.Configに変換する
func (f *FileConfig) ToTerminatorConfig() (terminator.Config, error) {
	rc := f.Receiver

	config := terminator.DefaultConfig()

	if rc.ListTimeout != "" {
		d, err := time.ParseDuration(rc.ListTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid list_timeout: %w", err)
		}
		config.ListTimeout = d
	}
	if rc.KillWait != "" {
		d, err := time.ParseDuration(rc.KillWait)
		if err != nil {
			return config, fmt.Errorf("invalid kill_wait: %w", err)
		}
		config.KillTimeout = d
	}
	if len(rc.KillCommand) > 0 {
		config.KillCommand = rc.KillCommand
	}

	return config, nil
}

// RegistryTTL はレジストリの鮮度ウィンドウを返す
func (f *FileConfig) RegistryTTL() (time.Duration, error) {
	if f.Receiver.RegistryTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(f.Receiver.RegistryTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid registry_ttl: %w", err)
	}
	return d, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	// 0はkill無効を意味するため許容、負値は設定ミス
	if f.Pinger.KillInterval != nil && *f.Pinger.KillInterval < 0 {
		return fmt.Errorf("pinger.kill_interval must be non-negative")
	}

	if f.Receiver.Workers < 0 {
		return fmt.Errorf("receiver.workers must be non-negative")
	}

	if f.Pinger.TargetURL != "" && !strings.HasPrefix(f.Pinger.TargetURL, "http") {
		return fmt.Errorf("pinger.target_url must be an http(s) URL")
	}

	return nil
}

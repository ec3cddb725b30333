package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", `
pinger:
  addr: ":8080"
  target_url: "http://receiver:9000/"
  bearer_token: "secret"
  kill_interval: 500
  request_interval: "1s"
  request_timeout: "5s"
receiver:
  addr: ":9000"
  workers: 4
  kill_wait: "8s"
  suppress_period: "1m"
  kill_command: ["kill", "-9", "1234"]
`)

	config, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if config.Pinger.TargetURL != "http://receiver:9000/" {
		t.Errorf("TargetURL = %q", config.Pinger.TargetURL)
	}
	if config.Pinger.KillInterval == nil || *config.Pinger.KillInterval != 500 {
		t.Errorf("KillInterval = %v, want 500", config.Pinger.KillInterval)
	}
	if config.Receiver.Workers != 4 {
		t.Errorf("Workers = %d, want 4", config.Receiver.Workers)
	}
}

func TestLoadFileJSON(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
  "pinger": {"target_url": "http://localhost:9000/", "kill_interval": 0},
  "receiver": {"addr": ":9000"}
}`)

	config, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if config.Pinger.KillInterval == nil || *config.Pinger.KillInterval != 0 {
		t.Errorf("KillInterval = %v, want 0", config.Pinger.KillInterval)
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	path := writeTempConfig(t, "config.toml", "pinger = {}")

	if _, err := LoadFile(path); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestLoadFileNotExist(t *testing.T) {
	if _, err := LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestToProbeConfigDefaults(t *testing.T) {
	var fc FileConfig

	pc, err := fc.ToProbeConfig()
	if err != nil {
		t.Fatalf("ToProbeConfig() error = %v", err)
	}

	if pc.TargetURL != "http://google.com/" {
		t.Errorf("TargetURL = %q", pc.TargetURL)
	}
	if pc.KillInterval != 1000 {
		t.Errorf("KillInterval = %d, want 1000", pc.KillInterval)
	}
	if pc.RequestInterval != 2*time.Second {
		t.Errorf("RequestInterval = %v", pc.RequestInterval)
	}
}

func TestToProbeConfigOverrides(t *testing.T) {
	interval := 0
	fc := FileConfig{
		Pinger: PingerConfig{
			TargetURL:       "http://target/",
			KillInterval:    &interval,
			RequestInterval: "500ms",
		},
	}

	pc, err := fc.ToProbeConfig()
	if err != nil {
		t.Fatalf("ToProbeConfig() error = %v", err)
	}

	if pc.KillInterval != 0 {
		t.Errorf("KillInterval = %d, want 0 (explicit)", pc.KillInterval)
	}
	if pc.RequestInterval != 500*time.Millisecond {
		t.Errorf("RequestInterval = %v", pc.RequestInterval)
	}
}

func TestToProbeConfigInvalidDuration(t *testing.T) {
	fc := FileConfig{Pinger: PingerConfig{RequestInterval: "two seconds"}}

	if _, err := fc.ToProbeConfig(); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestToInjectorConfig(t *testing.T) {
	fc := FileConfig{
		Receiver: ReceiverConfig{KillWait: "3s", SuppressPeriod: "10s"},
	}

	ic, err := fc.ToInjectorConfig()
	if err != nil {
		t.Fatalf("ToInjectorConfig() error = %v", err)
	}

	if ic.KillWait != 3*time.Second {
		t.Errorf("KillWait = %v", ic.KillWait)
	}
	if ic.SuppressPeriod != 10*time.Second {
		t.Errorf("SuppressPeriod = %v", ic.SuppressPeriod)
	}
}

func TestToTerminatorConfig(t *testing.T) {
	fc := FileConfig{
		Receiver: ReceiverConfig{
			ListTimeout: "1s",
			KillWait:    "5s",
			KillCommand: []string{"systemctl", "stop", "node"},
		},
	}

	tc, err := fc.ToTerminatorConfig()
	if err != nil {
		t.Fatalf("ToTerminatorConfig() error = %v", err)
	}

	if tc.ListTimeout != time.Second {
		t.Errorf("ListTimeout = %v", tc.ListTimeout)
	}
	if tc.KillTimeout != 5*time.Second {
		t.Errorf("KillTimeout = %v", tc.KillTimeout)
	}
	if len(tc.KillCommand) != 3 || tc.KillCommand[0] != "systemctl" {
		t.Errorf("KillCommand = %v", tc.KillCommand)
	}
}

func TestValidate(t *testing.T) {
	negative := -1

	tests := []struct {
		name    string
		config  FileConfig
		wantErr bool
	}{
		{"empty config", FileConfig{}, false},
		{"negative kill interval", FileConfig{Pinger: PingerConfig{KillInterval: &negative}}, true},
		{"negative workers", FileConfig{Receiver: ReceiverConfig{Workers: -1}}, true},
		{"non-http target", FileConfig{Pinger: PingerConfig{TargetURL: "ftp://host/"}}, true},
		{"https target", FileConfig{Pinger: PingerConfig{TargetURL: "https://host/"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

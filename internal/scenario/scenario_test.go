package scenario

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chaos-pinger/internal/payload"
)

func TestGetPreset(t *testing.T) {
	for _, name := range ListPresets() {
		config, ok := GetPreset(name)
		if !ok {
			t.Errorf("GetPreset(%q) not found", name)
			continue
		}
		if config.Name != name {
			t.Errorf("Preset name = %q, want %q", config.Name, name)
		}
		if config.Duration <= 0 {
			t.Errorf("Preset %q has non-positive duration", name)
		}
	}

	if _, ok := GetPreset("nonexistent"); ok {
		t.Error("GetPreset should not find nonexistent preset")
	}
}

func TestEngineRun(t *testing.T) {
	config := DefaultConfig()
	config.Name = "short"
	config.Duration = 400 * time.Millisecond
	config.RequestInterval = 20 * time.Millisecond
	config.RequestTimeout = 500 * time.Millisecond

	engine := New(config)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TotalRequests == 0 {
		t.Error("Expected at least one request")
	}
	if result.SuccessRequests == 0 {
		t.Error("Expected at least one successful request")
	}
	if result.FailedRequests != 0 {
		t.Errorf("Expected no failures against healthy target, got %d", result.FailedRequests)
	}
	if engine.IsRunning() {
		t.Error("Engine should not be running after Run returns")
	}
}

func TestEngineRunTwice(t *testing.T) {
	config := DefaultConfig()
	config.Duration = 300 * time.Millisecond
	config.RequestInterval = 20 * time.Millisecond

	engine := New(config)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = engine.Run(context.Background())
	}()

	// 1回目のRunが走り出すまで待つ
	time.Sleep(50 * time.Millisecond)

	if _, err := engine.Run(context.Background()); err == nil {
		t.Error("Second Run should fail while first is running")
	}

	<-done
}

func TestEngineKillInjection(t *testing.T) {
	config := Config{
		Name:            "kill-test",
		Duration:        600 * time.Millisecond,
		RequestInterval: 20 * time.Millisecond,
		RequestTimeout:  500 * time.Millisecond,
		KillInterval:    5,
		BlackoutWindow:  100 * time.Millisecond,
	}

	engine := New(config)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.KillRequests == 0 {
		t.Error("Expected at least one kill request")
	}
	if result.KillsReceived == 0 {
		t.Error("Target should have received at least one kill instruction")
	}
	if result.Blackouts == 0 {
		t.Error("Expected blackout drops after kill")
	}
	if result.FailedRequests == 0 {
		t.Error("Blackout should have produced failed probes")
	}
}

func TestFaultTargetStatusSequence(t *testing.T) {
	target := newFaultTarget([]int{http.StatusOK, http.StatusInternalServerError}, 0)
	server := httptest.NewServer(target)
	defer server.Close()

	body, err := payload.NewProbe(false).Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	wantStatuses := []int{http.StatusOK, http.StatusInternalServerError, http.StatusOK}
	for i, want := range wantStatuses {
		resp, err := http.Post(server.URL, "application/json", strings.NewReader(string(body)))
		if err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("Request %d: status = %d, want %d", i, resp.StatusCode, want)
		}
	}
}

func TestFaultTargetKillAck(t *testing.T) {
	target := newFaultTarget(nil, 100*time.Millisecond)
	server := httptest.NewServer(target)
	defer server.Close()

	killBody, err := payload.NewProbe(true).Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// kill指示自体はackされる
	resp, err := http.Post(server.URL, "application/json", strings.NewReader(string(killBody)))
	if err != nil {
		t.Fatalf("Kill post error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Kill request status = %d, want 200", resp.StatusCode)
	}
	if target.KillsReceived() != 1 {
		t.Errorf("KillsReceived = %d, want 1", target.KillsReceived())
	}

	// blackout中の後続リクエストは切断される
	plainBody, _ := payload.NewProbe(false).Marshal()
	if _, err := http.Post(server.URL, "application/json", strings.NewReader(string(plainBody))); err == nil {
		t.Error("Expected transport error during blackout")
	}
	if target.Blackouts() == 0 {
		t.Error("Expected blackout counter to increment")
	}
}

func TestResultReport(t *testing.T) {
	result := &Result{
		ScenarioName:       "report-test",
		StartTime:          time.Now(),
		EndTime:            time.Now().Add(time.Second),
		Duration:           time.Second,
		TotalRequests:      100,
		SuccessRequests:    95,
		FailedRequests:     5,
		ErrorRate:          0.05,
		FailedStatusCounts: map[int]uint64{500: 5},
	}

	report := result.Report()
	if !strings.Contains(report, "report-test") {
		t.Error("Report should contain scenario name")
	}
	if !strings.Contains(report, "5.00%") {
		t.Error("Report should contain formatted error rate")
	}
}

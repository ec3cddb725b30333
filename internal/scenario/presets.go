package scenario

import (
	"net/http"
	"time"
)

// SteadyScenario は安定ターゲットへの純粋な負荷テストを返す
// kill指示なし、常に200応答
func SteadyScenario() Config {
	return Config{
		Name:            "steady",
		Description:     "Steady load test against a healthy target",
		Duration:        10 * time.Second,
		RequestInterval: 100 * time.Millisecond,
		RequestTimeout:  time.Second,
		KillInterval:    0,
	}
}

// ResilienceScenario は耐障害性テストシナリオを返す
// 周期的なkill指示あり、ターゲットはkill後に一時的に沈黙する
func ResilienceScenario() Config {
	return Config{
		Name:            "resilience",
		Description:     "Resilience test with periodic kill injection and blackouts",
		Duration:        15 * time.Second,
		RequestInterval: 100 * time.Millisecond,
		RequestTimeout:  time.Second,
		KillInterval:    30,
		BlackoutWindow:  time.Second,
	}
}

// FlakyScenario は不安定ターゲットのシナリオを返す
// 5xxが混ざる応答列、kill指示なし
func FlakyScenario() Config {
	return Config{
		Name:            "flaky",
		Description:     "Flaky target returning intermittent server errors",
		Duration:        10 * time.Second,
		RequestInterval: 100 * time.Millisecond,
		RequestTimeout:  time.Second,
		KillInterval:    0,
		StatusSequence: []int{
			http.StatusOK, http.StatusOK, http.StatusInternalServerError,
			http.StatusOK, http.StatusServiceUnavailable,
		},
	}
}

// QuickScenario はクイックテスト用シナリオを返す
// 短時間での動作確認用
func QuickScenario() Config {
	return Config{
		Name:            "quick",
		Description:     "Quick test for verification",
		Duration:        2 * time.Second,
		RequestInterval: 50 * time.Millisecond,
		RequestTimeout:  500 * time.Millisecond,
		KillInterval:    10,
		BlackoutWindow:  200 * time.Millisecond,
	}
}

// GetPreset は名前からプリセットシナリオを取得する
func GetPreset(name string) (Config, bool) {
	presets := map[string]func() Config{
		"steady":     SteadyScenario,
		"resilience": ResilienceScenario,
		"flaky":      FlakyScenario,
		"quick":      QuickScenario,
	}

	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"steady", "resilience", "flaky", "quick"}
}

// Package payload はPingerとReceiverの間のワイヤフォーマットを定義する。
package payload

import "encoding/json"

// ReceiverKillKey はkill指示を運ぶJSONフィールド名
const ReceiverKillKey = "kill_node"

// KillOption はkill指示の値を表す
//
// レガシー互換のため文字列型で、大文字小文字を区別する。
// 受信側は "True" 以外のあらゆる値をkillなしとして扱う。
type KillOption string

const (
	// KillOptionSpare は明示的な「killしない」マーカー
	KillOptionSpare KillOption = "False"
	// KillOptionKill はノード終了の指示
	KillOptionKill KillOption = "True"
)

// Probe はPingerが送信するリクエストボディ
type Probe struct {
	KillNode KillOption `json:"kill_node"`
}

// NewProbe はkill指示の有無に応じたペイロードを作成する
func NewProbe(kill bool) Probe {
	if kill {
		return Probe{KillNode: KillOptionKill}
	}
	return Probe{KillNode: KillOptionSpare}
}

// Marshal はペイロードをJSONにエンコードする
func (p Probe) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// ParseKill はリクエストボディからkillフラグを取り出す
//
// フィールドの欠落、不正なJSON、空ボディは全てkillなしとして扱う。
// 値の比較は大文字小文字を区別し、厳密に "True" のみがkillとなる。
func ParseKill(body []byte) bool {
	if len(body) == 0 {
		return false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}

	raw, ok := fields[ReceiverKillKey]
	if !ok {
		return false
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}

	return KillOption(value) == KillOptionKill
}

// Package probe は継続的な死活プローブとkill注入の送信側を提供する。
//
// Pingerはターゲットへ固定間隔でPOSTリクエストを送り続け、設定された
// 周期で「kill」指示をペイロードに埋め込む。結果は成功・失敗・killの
// いずれかに分類され、生涯カウンタと現在ウィンドウカウンタの両方に
// 集計される。
//
// # ライフサイクル
//
// Stopped -> Running -> Stopped の遷移のみを持つ。個々の送信失敗は
// カウンタへ吸収され、ループ自体はstop以外で終了しない。
//
// # 使用例
//
//	p := probe.New(probe.DefaultConfig())
//	p.Start(ctx)
//	defer p.Stop()
//
//	info := p.Info()
//	fmt.Println(info.TotalRequests)
//
// # kill周期
//
// killInterval = N > 0 のとき、ウィンドウ内の 0 始まりで N-1, 2N-1, ...
// 番目のリクエストがkillリクエストになる。N <= 0 でkillは無効。
package probe

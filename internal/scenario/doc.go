// Package scenario はソークテストシナリオ実行機能を提供する。
//
// シナリオエンジンはローカルに疑似ターゲットを立て、
// その上でPingerを一定時間走らせて挙動を観測する。
//
// # 機能
//
// - シナリオ定義と実行
// - 定義済みプリセットシナリオ
// - 実行結果のレポート生成
//
// # プリセットシナリオ
//
// - steady: 健全なターゲットへの負荷テスト
// - resilience: kill注入とblackoutのテスト
// - flaky: 5xxが混ざる不安定ターゲットのテスト
// - quick: 短時間の動作確認
//
// # 使用例
//
//	config := scenario.ResilienceScenario()
//	engine := scenario.New(config)
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package scenario

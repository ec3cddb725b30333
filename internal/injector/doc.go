// Package injector は受信側の障害注入コンポーネントを提供する。
//
// Receiverはプローブリクエストを受け取り、ペイロードのkillフラグを
// 調べる。フラグが立っていればNode Terminatorへ委譲するが、その完了は
// 上限つきでしか待たず、結果に関わらずプローブへの生存応答を返す。
//
// killリクエストの配送保証はない。ベストエフォートのプローブループの
// 上に載るベストエフォートのカオスシグナルである。
package injector

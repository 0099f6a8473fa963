// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はDiscord由来のイベント名・説明文をサニタイズし、
// フロントエンドがinnerHTMLで描画してもXSSが成立しないようにする。
// イベントテキストは平文として扱うため、bluemondayのStrictPolicyで
// タグを一切許可しない。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// スナップショット書き込み前のイベントテキストに使用される。
type TextSanitizerService interface {
	// Sanitize は入力からHTMLタグと危険な属性をすべて除去した平文を返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全タグを除去し、テキストノードのみを通過させる。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLをすべて除去した平文を返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)

// Package model はドメインモデルを定義する。
package model

import "fmt"

// RemoteCallError はDiscord APIの呼び出し失敗を表す。
// 非成功ステータスまたはネットワークエラーで、エンドポイントとステータスを保持する。
// ステータス0はネットワークエラー（レスポンスなし）を示す。
type RemoteCallError struct {
	Endpoint string
	Status   int
	Err      error
}

// Error はerrorインターフェースを実装する。
func (e *RemoteCallError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("discord API呼び出しに失敗しました: %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("discord APIがステータス %d を返しました: %s", e.Status, e.Endpoint)
}

// Unwrap はラップされたエラーを返す。
func (e *RemoteCallError) Unwrap() error { return e.Err }

// AssetWriteError はアバターまたはスナップショット永続化時のファイルシステムエラーを表す。
type AssetWriteError struct {
	Path string
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *AssetWriteError) Error() string {
	return fmt.Sprintf("アセットの書き込みに失敗しました: %s: %v", e.Path, e.Err)
}

// Unwrap はラップされたエラーを返す。
func (e *AssetWriteError) Unwrap() error { return e.Err }

// EnrichmentError は1イベントの依存ルックアップ（チャンネル/作成者）の失敗を表す。
// Fieldは失敗した派生フィールド名（channel_name等）。
type EnrichmentError struct {
	EventID string
	Field   string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("イベント %s のエンリッチに失敗しました（%s）: %v", e.EventID, e.Field, e.Err)
}

// Unwrap はラップされたエラーを返す。
func (e *EnrichmentError) Unwrap() error { return e.Err }

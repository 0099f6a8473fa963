package event

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/psg-community/psgweb/internal/model"
	"github.com/psg-community/psgweb/internal/security"
)

// SnapshotWriter はエンリッチ済みイベント一覧をスナップショットファイルへ永続化する。
// 書き込みは同一ディレクトリへの一時ファイル作成とrenameによるアトミック置換で、
// 読み手が途中状態のファイルを観測することはない。
// 書き込み前にイベント名と説明文をサニタイズする
// （フロントエンドがinnerHTMLで描画するため）。
type SnapshotWriter struct {
	path      string
	sanitizer security.TextSanitizerService
}

// NewSnapshotWriter はSnapshotWriterの新しいインスタンスを生成する。
func NewSnapshotWriter(path string, sanitizer security.TextSanitizerService) *SnapshotWriter {
	return &SnapshotWriter{
		path:      path,
		sanitizer: sanitizer,
	}
}

// Path はスナップショットファイルのパスを返す。
func (w *SnapshotWriter) Path() string { return w.path }

// Write はイベント一覧を整形JSONとしてスナップショットファイルへ書き込む。
// 失敗した場合は既存のスナップショットに一切触れない。
// 入力スライスは変更しない（サニタイズはコピーに対して行う）。
func (w *SnapshotWriter) Write(events []model.ScheduledEvent) error {
	sanitized := make([]model.ScheduledEvent, len(events))
	for i, ev := range events {
		ev.Name = w.sanitizer.Sanitize(ev.Name)
		ev.Description = w.sanitizer.Sanitize(ev.Description)
		sanitized[i] = ev
	}

	data, err := json.MarshalIndent(sanitized, "", "  ")
	if err != nil {
		return fmt.Errorf("スナップショットのJSONエンコードに失敗しました: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &model.AssetWriteError{Path: w.path, Err: err}
	}

	// Atomic write: 同一ディレクトリの一時ファイルに書いてからrenameする。
	tmp, err := os.CreateTemp(dir, ".events-*.tmp")
	if err != nil {
		return &model.AssetWriteError{Path: w.path, Err: err}
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &model.AssetWriteError{Path: w.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &model.AssetWriteError{Path: w.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.AssetWriteError{Path: w.path, Err: err}
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &model.AssetWriteError{Path: w.path, Err: err}
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return &model.AssetWriteError{Path: w.path, Err: err}
	}

	return nil
}

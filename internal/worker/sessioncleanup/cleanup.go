// Package sessioncleanup は期限切れセッションの自動削除ジョブを提供する。
// セッション検証はSQL側でexpires_atを見るため放置しても安全だが、
// 行が溜まり続けないよう日次バッチで物理削除する。
package sessioncleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Job は期限切れセッションの削除ジョブ。冪等で、削除対象がなくてもエラーにならない。
type Job struct {
	db     Executor
	logger *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(db Executor, logger *slog.Logger) *Job {
	return &Job{db: db, logger: logger}
}

// Name はスケジューラ登録用のジョブ名を返す。
func (j *Job) Name() string { return "session-cleanup" }

// RunOnce は期限切れセッションを削除する。
func (j *Job) RunOnce(ctx context.Context) error {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read deleted session count: %w", err)
	}

	j.logger.Info("期限切れセッションを削除しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

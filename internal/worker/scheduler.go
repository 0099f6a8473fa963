// Package worker はバックグラウンド同期ジョブのスケジューリングを提供する。
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job は名前付きの定期実行単位。
// テストではRunOnceを直接呼び出すことで、壁時計を待たずに実行できる。
type Job interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// Metrics は同期ジョブ実行のメトリクス記録インターフェース。
type Metrics interface {
	RecordSyncRun(job string, success bool)
}

// scheduledJob はスケジュール登録済みのジョブを表す。
type scheduledJob struct {
	spec string
	job  Job
}

// Scheduler は複数のJobを独立したcronスケジュールで実行する。
// 各ジョブは個別のgoroutineで起動されるため、1ジョブの失敗や遅延が
// 他ジョブの実行を妨げることはない。Start時に全ジョブを1回ずつ実行し、
// 最初のtickを待たずにキャッシュを温める。
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics Metrics
	jobs    []scheduledJob
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(logger *slog.Logger, metrics Metrics) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		metrics: metrics,
	}
}

// Add はジョブをcronスケジュール（標準5フィールド形式）で登録する。
// スケジュール文字列が不正な場合はエラーを返す。
func (s *Scheduler) Add(spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.run(context.Background(), job)
	}); err != nil {
		return err
	}
	s.jobs = append(s.jobs, scheduledJob{spec: spec, job: job})
	return nil
}

// Start はスケジューラを起動し、コンテキストがキャンセルされるまでブロックする。
// 起動直後に全ジョブを1回ずつ並行実行する。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("同期スケジューラを開始しました",
		slog.Int("job_count", len(s.jobs)),
	)

	// 起動直後に1回実行（ジョブごとに独立したgoroutine）
	for _, sj := range s.jobs {
		go s.run(ctx, sj.job)
	}

	s.cron.Start()

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	// 実行中のジョブの完了を待つ（中断機構は持たない）
	<-stopCtx.Done()

	s.logger.Info("同期スケジューラを停止しました")
}

// run はジョブを1回実行し、結果をログに記録する。
// ジョブのエラーはここで握りつぶされ、スケジューラより上には伝播しない。
func (s *Scheduler) run(ctx context.Context, job Job) {
	runID := uuid.New().String()
	start := time.Now()

	s.logger.Info("同期ジョブを開始します",
		slog.String("job", job.Name()),
		slog.String("run_id", runID),
	)

	if err := job.RunOnce(ctx); err != nil {
		s.logger.Error("同期ジョブが失敗しました",
			slog.String("job", job.Name()),
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
			slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
		)
		s.metrics.RecordSyncRun(job.Name(), false)
		return
	}

	s.metrics.RecordSyncRun(job.Name(), true)
	s.logger.Info("同期ジョブが完了しました",
		slog.String("job", job.Name()),
		slog.String("run_id", runID),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

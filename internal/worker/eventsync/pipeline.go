// Package eventsync はギルドイベントの取得→エンリッチ→スナップショット書き込みの
// パイプラインを提供する。
package eventsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/psg-community/psgweb/internal/event"
	"github.com/psg-community/psgweb/internal/model"
)

// EventLister はイベント一覧取得のインターフェース。discord.Clientが実装する。
type EventLister interface {
	GetGuildScheduledEvents(ctx context.Context, guildID string) ([]model.ScheduledEvent, error)
}

// EventEnricher はイベントエンリッチ処理のインターフェース。
type EventEnricher interface {
	EnrichAll(ctx context.Context, events []model.ScheduledEvent) []event.EnrichResult
}

// SnapshotStore はスナップショット永続化のインターフェース。
type SnapshotStore interface {
	Write(events []model.ScheduledEvent) error
}

// Metrics はイベント同期のメトリクス記録インターフェース。
type Metrics interface {
	RecordEventsSynced(count int)
	RecordEnrichmentFailure()
	RecordSnapshotWriteLatency(d time.Duration)
}

// Pipeline は1回のイベント同期を実行する。
//
// 失敗方針: イベント一覧の取得失敗は実行全体を中断し、既存スナップショットには
// 一切触れない。1イベントのエンリッチ失敗はそのイベントを生のまま残して続行する
// （フロントエンドは派生フィールド欠落時のフォールバック表示を持つ）。
type Pipeline struct {
	api      EventLister
	enricher EventEnricher
	store    SnapshotStore
	metrics  Metrics
	logger   *slog.Logger
	guildID  string
}

// NewPipeline はPipelineの新しいインスタンスを生成する。
func NewPipeline(
	api EventLister,
	enricher EventEnricher,
	store SnapshotStore,
	metrics Metrics,
	guildID string,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		api:      api,
		enricher: enricher,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		guildID:  guildID,
	}
}

// Name はジョブ名を返す。
func (p *Pipeline) Name() string { return "event-sync" }

// RunOnce はイベント同期を1回実行する。
func (p *Pipeline) RunOnce(ctx context.Context) error {
	start := time.Now()

	events, err := p.api.GetGuildScheduledEvents(ctx, p.guildID)
	if err != nil {
		// 一覧取得に失敗した実行はスナップショットを書かない（前回の正常値を維持）
		return fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}

	results := p.enricher.EnrichAll(ctx, events)

	enriched := make([]model.ScheduledEvent, 0, len(results))
	var failed int
	for _, res := range results {
		if res.Err != nil {
			p.logger.Warn("イベントのエンリッチに失敗したため生のまま保存します",
				slog.String("event_id", res.Event.ID),
				slog.String("event_name", res.Event.Name),
				slog.String("error", res.Err.Error()),
			)
			p.metrics.RecordEnrichmentFailure()
			failed++
		}
		enriched = append(enriched, res.Event)
	}

	writeStart := time.Now()
	if err := p.store.Write(enriched); err != nil {
		return fmt.Errorf("スナップショットの書き込みに失敗しました: %w", err)
	}
	p.metrics.RecordSnapshotWriteLatency(time.Since(writeStart))
	p.metrics.RecordEventsSynced(len(enriched))

	duration := time.Since(start)
	p.logger.Info("イベント同期サイクルが完了しました",
		slog.Int("event_count", len(enriched)),
		slog.Int("enrich_failed", failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は同期パイプラインと認証のメトリクスを収集する。
// ワーカーやサービス層は各パッケージで定義する小さなインターフェース越しに利用する。
type Collector struct {
	syncRuns        *prometheus.CounterVec
	eventsSynced    prometheus.Gauge
	enrichFail      prometheus.Counter
	snapshotLatency prometheus.Histogram
	avatarsSynced   prometheus.Counter
	avatarFail      prometheus.Counter
	logins          *prometheus.CounterVec
	discordRequests *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psgweb_sync_runs_total",
			Help: "同期ジョブ実行のジョブ別・結果別の合計数",
		}, []string{"job", "result"}),
		eventsSynced: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "psgweb_snapshot_events",
			Help: "直近の成功した同期でスナップショットに書き込まれたイベント数",
		}),
		enrichFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psgweb_enrichment_fail_total",
			Help: "イベントエンリッチ失敗の合計数",
		}),
		snapshotLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "psgweb_snapshot_write_seconds",
			Help:    "スナップショット書き込みのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		avatarsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psgweb_avatars_synced_total",
			Help: "同期されたアバターの合計数",
		}),
		avatarFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psgweb_avatar_fail_total",
			Help: "アバター同期失敗の合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psgweb_logins_total",
			Help: "OAuthログインの新規/既存別の合計数",
		}, []string{"kind"}),
		discordRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psgweb_discord_requests_total",
			Help: "Discord API呼び出しのHTTPステータス別の合計数（0はネットワークエラー）",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.syncRuns,
		c.eventsSynced,
		c.enrichFail,
		c.snapshotLatency,
		c.avatarsSynced,
		c.avatarFail,
		c.logins,
		c.discordRequests,
	)

	return c
}

// RecordSyncRun は同期ジョブの実行結果を記録する。
func (c *Collector) RecordSyncRun(job string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.syncRuns.WithLabelValues(job, result).Inc()
}

// RecordEventsSynced はスナップショットに書き込まれたイベント数を記録する。
func (c *Collector) RecordEventsSynced(count int) {
	c.eventsSynced.Set(float64(count))
}

// RecordEnrichmentFailure はイベントエンリッチ失敗を記録する。
func (c *Collector) RecordEnrichmentFailure() {
	c.enrichFail.Inc()
}

// RecordSnapshotWriteLatency はスナップショット書き込みのレイテンシを記録する。
func (c *Collector) RecordSnapshotWriteLatency(d time.Duration) {
	c.snapshotLatency.Observe(d.Seconds())
}

// RecordAvatarSynced はアバター同期成功を記録する。
func (c *Collector) RecordAvatarSynced() {
	c.avatarsSynced.Inc()
}

// RecordAvatarFailure はアバター同期失敗を記録する。
func (c *Collector) RecordAvatarFailure() {
	c.avatarFail.Inc()
}

// RecordLogin はOAuthログインを記録する。
func (c *Collector) RecordLogin(newUser bool) {
	kind := "returning"
	if newUser {
		kind = "new"
	}
	c.logins.WithLabelValues(kind).Inc()
}

// RecordDiscordRequest はDiscord API呼び出しの結果をHTTPステータス別に記録する。
// status 0はレスポンスが得られなかったネットワークエラーを示す。
func (c *Collector) RecordDiscordRequest(status int) {
	c.discordRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

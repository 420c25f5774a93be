// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ボット本体とハンドラー層から利用する。
type MetricsCollector interface {
	RecordEventReceived(kind string)
	RecordEstimateCall(kind string)
	RecordEstimateFailure(kind string)
	RecordEstimateLatency(duration time.Duration)
	RecordDuplicateSuppressed(reason string)
	RecordCoachCacheHit()
	RecordCoachCacheMiss()
	RecordEntriesUpserted(count int)
	RecordPushFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	eventsReceived      *prometheus.CounterVec
	estimateCalls       *prometheus.CounterVec
	estimateFailures    *prometheus.CounterVec
	estimateLatency     prometheus.Histogram
	duplicateSuppressed *prometheus.CounterVec
	coachCacheHit       prometheus.Counter
	coachCacheMiss      prometheus.Counter
	entriesUpserted     prometheus.Counter
	pushFailures        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calobot_events_received_total",
			Help: "受信したWebhookイベントの種別ごとの合計数",
		}, []string{"kind"}),
		estimateCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calobot_estimate_calls_total",
			Help: "栄養推定API呼び出しの種別ごとの合計数",
		}, []string{"kind"}),
		estimateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calobot_estimate_failures_total",
			Help: "栄養推定の失敗（呼び出し失敗・解析不能）の合計数",
		}, []string{"kind"}),
		estimateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "calobot_estimate_latency_seconds",
			Help:    "栄養推定呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		duplicateSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calobot_duplicates_suppressed_total",
			Help: "重複として抑止したイベントの理由別合計数",
		}, []string{"reason"}),
		coachCacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calobot_coach_cache_hit_total",
			Help: "コーチングキャッシュのヒット合計数",
		}),
		coachCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calobot_coach_cache_miss_total",
			Help: "コーチングキャッシュのミス（再生成）合計数",
		}),
		entriesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calobot_entries_upserted_total",
			Help: "アップサートされた食事記録の合計数",
		}),
		pushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calobot_push_failures_total",
			Help: "プッシュ送信失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.eventsReceived,
		c.estimateCalls,
		c.estimateFailures,
		c.estimateLatency,
		c.duplicateSuppressed,
		c.coachCacheHit,
		c.coachCacheMiss,
		c.entriesUpserted,
		c.pushFailures,
	)

	return c
}

// RecordEventReceived は受信イベントを記録する。kindは"text"または"image"。
func (c *Collector) RecordEventReceived(kind string) {
	c.eventsReceived.WithLabelValues(kind).Inc()
}

// RecordEstimateCall は推定API呼び出しを記録する。
func (c *Collector) RecordEstimateCall(kind string) {
	c.estimateCalls.WithLabelValues(kind).Inc()
}

// RecordEstimateFailure は推定失敗を記録する。
func (c *Collector) RecordEstimateFailure(kind string) {
	c.estimateFailures.WithLabelValues(kind).Inc()
}

// RecordEstimateLatency は推定呼び出しのレイテンシを記録する。
func (c *Collector) RecordEstimateLatency(duration time.Duration) {
	c.estimateLatency.Observe(duration.Seconds())
}

// RecordDuplicateSuppressed は重複抑止を記録する。reasonは"redelivery"または"image_hash"。
func (c *Collector) RecordDuplicateSuppressed(reason string) {
	c.duplicateSuppressed.WithLabelValues(reason).Inc()
}

// RecordCoachCacheHit はコーチングキャッシュのヒットを記録する。
func (c *Collector) RecordCoachCacheHit() {
	c.coachCacheHit.Inc()
}

// RecordCoachCacheMiss はコーチングキャッシュのミスを記録する。
func (c *Collector) RecordCoachCacheMiss() {
	c.coachCacheMiss.Inc()
}

// RecordEntriesUpserted はアップサートされた記録数を記録する。
func (c *Collector) RecordEntriesUpserted(count int) {
	c.entriesUpserted.Add(float64(count))
}

// RecordPushFailure はプッシュ送信失敗を記録する。
func (c *Collector) RecordPushFailure() {
	c.pushFailures.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 出力処理やワーカーから利用する。
type MetricsCollector interface {
	RecordOutputWritten(variant string)
	RecordOutputSkipped(variant string)
	RecordOutputFailed(variant string)
	RecordFetchFailure()
	RecordEntriesFetched(count int)
	RecordPublishLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	outputsWritten *prometheus.CounterVec
	outputsSkipped *prometheus.CounterVec
	outputsFailed  *prometheus.CounterVec
	fetchFailure   prometheus.Counter
	entriesFetched prometheus.Gauge
	publishLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		outputsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ljfeed_outputs_written_total",
			Help: "書き込まれたフィードファイルの合計数",
		}, []string{"variant"}),
		outputsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ljfeed_outputs_skipped_total",
			Help: "最新のため書き込みをスキップしたフィードファイルの合計数",
		}, []string{"variant"}),
		outputsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ljfeed_outputs_failed_total",
			Help: "生成または書き込みに失敗したフィードファイルの合計数",
		}, []string{"variant"}),
		fetchFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ljfeed_fetch_failure_total",
			Help: "friendspage取得失敗の合計数",
		}),
		entriesFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ljfeed_entries_fetched",
			Help: "直近に取得したfriendspageの記事数",
		}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ljfeed_publish_latency_seconds",
			Help:    "全出力ターゲットの生成・書き込みにかかった時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.outputsWritten,
		c.outputsSkipped,
		c.outputsFailed,
		c.fetchFailure,
		c.entriesFetched,
		c.publishLatency,
	)

	return c
}

// RecordOutputWritten はフィードファイルの書き込みを記録する。
func (c *Collector) RecordOutputWritten(variant string) {
	c.outputsWritten.WithLabelValues(variant).Inc()
}

// RecordOutputSkipped は書き込みスキップを記録する。
func (c *Collector) RecordOutputSkipped(variant string) {
	c.outputsSkipped.WithLabelValues(variant).Inc()
}

// RecordOutputFailed は生成・書き込み失敗を記録する。
func (c *Collector) RecordOutputFailed(variant string) {
	c.outputsFailed.WithLabelValues(variant).Inc()
}

// RecordFetchFailure は取得失敗を記録する。
func (c *Collector) RecordFetchFailure() {
	c.fetchFailure.Inc()
}

// RecordEntriesFetched は取得した記事数を記録する。
func (c *Collector) RecordEntriesFetched(count int) {
	c.entriesFetched.Set(float64(count))
}

// RecordPublishLatency は生成・書き込みのレイテンシを記録する。
func (c *Collector) RecordPublishLatency(duration time.Duration) {
	c.publishLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

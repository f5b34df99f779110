// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordSubmission()
	RecordTransition(to string)
	RecordUpload(fileType string)
	RecordUploadBytes(n int64)
	RecordRelayFailure()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submissions    prometheus.Counter
	transitions    *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	relayFailures  prometheus.Counter
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiretrack_submissions_total",
			Help: "受理された応募フォーム送信の合計数",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiretrack_transitions_total",
			Help: "遷移先ステータス別のステータス遷移数",
		}, []string{"status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiretrack_uploads_total",
			Help: "ファイル種別別の受理アップロード数",
		}, []string{"file_type"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiretrack_upload_bytes_total",
			Help: "受理アップロードの合計バイト数",
		}),
		relayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiretrack_relay_failures_total",
			Help: "アップロード中継の失敗数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiretrack_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hiretrack_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.submissions,
		c.transitions,
		c.uploads,
		c.uploadBytes,
		c.relayFailures,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordSubmission は応募フォーム送信の受理を記録する。
func (c *Collector) RecordSubmission() {
	c.submissions.Inc()
}

// RecordTransition はステータス遷移を遷移先ラベル付きで記録する。
func (c *Collector) RecordTransition(to string) {
	c.transitions.WithLabelValues(to).Inc()
}

// RecordUpload は受理されたアップロードをファイル種別ラベル付きで記録する。
func (c *Collector) RecordUpload(fileType string) {
	c.uploads.WithLabelValues(fileType).Inc()
}

// RecordUploadBytes は受理アップロードのバイト数を記録する。
func (c *Collector) RecordUploadBytes(n int64) {
	c.uploadBytes.Add(float64(n))
}

// RecordRelayFailure はアップロード中継の失敗を記録する。
func (c *Collector) RecordRelayFailure() {
	c.relayFailures.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// NopCollector は何も記録しないコレクター。テストや計測無効時に使用する。
type NopCollector struct{}

func (NopCollector) RecordSubmission()                    {}
func (NopCollector) RecordTransition(to string)           {}
func (NopCollector) RecordUpload(fileType string)         {}
func (NopCollector) RecordUploadBytes(n int64)            {}
func (NopCollector) RecordRelayFailure()                  {}
func (NopCollector) RecordHTTPStatus(statusCode int)      {}
func (NopCollector) RecordRequestLatency(d time.Duration) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

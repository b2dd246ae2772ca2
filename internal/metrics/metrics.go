// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 貸出エンジンとHTTPミドルウェアの両方から記録される。
type Collector struct {
	checkoutTotal prometheus.Counter
	returnTotal   prometheus.Counter
	loanRejected  *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	httpDuration  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libman_checkout_total",
			Help: "貸出成功の合計数",
		}),
		returnTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libman_return_total",
			Help: "返却成功の合計数",
		}),
		loanRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libman_loan_rejected_total",
			Help: "業務ルールにより拒否された貸出・返却の合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "libman_http_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.checkoutTotal,
		c.returnTotal,
		c.loanRejected,
		c.httpStatus,
		c.httpDuration,
	)

	return c
}

// RecordCheckout は貸出成功を記録する。
func (c *Collector) RecordCheckout() {
	c.checkoutTotal.Inc()
}

// RecordReturn は返却成功を記録する。
func (c *Collector) RecordReturn() {
	c.returnTotal.Inc()
}

// RecordLoanRejection は業務ルールによる拒否を理由コード付きで記録する。
func (c *Collector) RecordLoanRejection(reason string) {
	c.loanRejected.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPDuration はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordHTTPDuration(duration time.Duration) {
	c.httpDuration.Observe(duration.Seconds())
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

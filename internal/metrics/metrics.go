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
// ストア、ミラー、バックエンドクライアントから利用する。
type MetricsCollector interface {
	RecordCartMutation(op string)
	RecordCartRejection(code string)
	RecordMirrorResult(task string, ok bool)
	RecordBackendStatus(endpoint string, statusCode int)
	RecordBackendLatency(endpoint string, duration time.Duration)
	SetCatalogSize(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cartMutations  *prometheus.CounterVec
	cartRejections *prometheus.CounterVec
	mirrorResults  *prometheus.CounterVec
	backendStatus  *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	catalogSize    prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "操作種別ごとのローカルカート更新数",
		}, []string{"op"}),
		cartRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_rejections_total",
			Help: "業務ルールにより拒否されたカート追加数",
		}, []string{"code"}),
		mirrorResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_mirror_results_total",
			Help: "サーバーへのミラー呼び出し結果",
		}, []string{"task", "result"}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_backend_status_total",
			Help: "エンドポイント・HTTPステータスコード別のバックエンド応答数",
		}, []string{"endpoint", "status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_backend_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_catalog_products",
			Help: "メモリ上の商品カタログ件数",
		}),
	}

	reg.MustRegister(
		c.cartMutations,
		c.cartRejections,
		c.mirrorResults,
		c.backendStatus,
		c.backendLatency,
		c.catalogSize,
	)

	return c
}

// RecordCartMutation はカート更新を記録する。
func (c *Collector) RecordCartMutation(op string) {
	c.cartMutations.WithLabelValues(op).Inc()
}

// RecordCartRejection はカート追加の拒否を記録する。
func (c *Collector) RecordCartRejection(code string) {
	c.cartRejections.WithLabelValues(code).Inc()
}

// RecordMirrorResult はミラー呼び出しの成否を記録する。
func (c *Collector) RecordMirrorResult(task string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.mirrorResults.WithLabelValues(task, result).Inc()
}

// RecordBackendStatus はHTTPステータスコードを記録する。
// 通信エラーでステータスが得られない場合は0を渡す。
func (c *Collector) RecordBackendStatus(endpoint string, statusCode int) {
	c.backendStatus.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordBackendLatency はバックエンド呼び出しのレイテンシを記録する。
func (c *Collector) RecordBackendLatency(endpoint string, duration time.Duration) {
	c.backendLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetCatalogSize はカタログ件数を記録する。
func (c *Collector) SetCatalogSize(n int) {
	c.catalogSize.Set(float64(n))
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordCartMutation(string) {}
func (NopCollector) RecordCartRejection(string) {}
func (NopCollector) RecordMirrorResult(string, bool) {}
func (NopCollector) RecordBackendStatus(string, int) {}
func (NopCollector) RecordBackendLatency(string, time.Duration) {}
func (NopCollector) SetCatalogSize(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

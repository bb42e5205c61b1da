// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// upstream.Observerとstatus.Gaugeを実装する。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
	sanitizeFallback *prometheus.CounterVec
	gestureCommit    *prometheus.CounterVec
	backendUp        prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tend_upstream_request_total",
			Help: "バックエンドAPIリクエストのエンドポイント・結果別合計数",
		}, []string{"endpoint", "outcome"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tend_upstream_latency_seconds",
			Help:    "バックエンドAPIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sanitizeFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tend_sanitize_fallback_total",
			Help: "サニタイズ層がデフォルト値へ退化させた不正形ペイロードの合計数",
		}, []string{"entity"}),
		gestureCommit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tend_gesture_commit_total",
			Help: "スワイプ確定のアクション別合計数",
		}, []string{"action"}),
		backendUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tend_backend_up",
			Help: "バックエンドとの接続可否（1=接続可、0=接続不可）",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.sanitizeFallback,
		c.gestureCommit,
		c.backendUp,
	)

	return c
}

// ObserveRequest はバックエンドAPIリクエストの結果とレイテンシを記録する。
func (c *Collector) ObserveRequest(endpoint, outcome string, seconds float64) {
	c.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	c.upstreamLatency.Observe(seconds)
}

// SanitizeFallback は不正形ペイロードのデフォルト退化を記録する。
func (c *Collector) SanitizeFallback(entity string) {
	c.sanitizeFallback.WithLabelValues(entity).Inc()
}

// RecordGestureCommit はスワイプ確定を記録する。actionはfavoriteまたはarchive。
func (c *Collector) RecordGestureCommit(action string) {
	c.gestureCommit.WithLabelValues(action).Inc()
}

// SetBackendUp はバックエンドの接続可否を記録する。
func (c *Collector) SetBackendUp(up bool) {
	if up {
		c.backendUp.Set(1)
	} else {
		c.backendUp.Set(0)
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

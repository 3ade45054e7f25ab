package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/dep2p/go-gridauth/pkg/interfaces"
)

// HandshakeMetrics 握手 Prometheus 指标
type HandshakeMetrics struct {
	Latency    *prometheus.HistogramVec // 握手耗时，标签 role/status/mode
	Handshakes *prometheus.CounterVec   // 握手结果，标签 role/status
	Errors     *prometheus.CounterVec   // 握手错误，标签 role/kind
}

var _ interfaces.HandshakeRecorder = (*HandshakeMetrics)(nil)

// HandshakeBuckets 握手耗时分桶（秒）
var HandshakeBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewHandshakeMetrics 创建并注册握手指标
//
// traffic 非 nil 时同时导出其字节计数与连接数。任一指标注册失败都会返回错误。
func NewHandshakeMetrics(namespace string, reg prometheus.Registerer, traffic *TrafficCounter) (*HandshakeMetrics, error) {
	m := &HandshakeMetrics{
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Time spent completing a connection handshake.",
			Buckets:   HandshakeBuckets,
		}, []string{"role", "status", "mode"}),
		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Completed handshakes by outcome.",
		}, []string{"role", "status"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "errors_total",
			Help:      "Handshake errors by kind.",
		}, []string{"role", "kind"}),
	}
	if reg == nil {
		return m, nil
	}

	collectors := []prometheus.Collector{m.Latency, m.Handshakes, m.Errors}
	if traffic != nil {
		collectors = append(collectors, trafficCollectors(namespace, traffic)...)
	}

	var err error
	for _, c := range collectors {
		err = multierr.Append(err, reg.Register(c))
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// trafficCollectors 将 TrafficCounter 导出为 Prometheus 指标
func trafficCollectors(namespace string, t *TrafficCounter) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "bytes_received_total",
			Help:      "Bytes read from handshake connections.",
		}, func() float64 { return float64(t.totalIn.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "bytes_sent_total",
			Help:      "Bytes written to handshake connections.",
		}, func() float64 { return float64(t.totalOut.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "connections_total",
			Help:      "Connections wrapped for handshake traffic accounting.",
		}, func() float64 { return float64(t.connections.Load()) }),
	}
}

// RecordHandshake 记录一次握手结果
func (m *HandshakeMetrics) RecordHandshake(role, status, mode string, elapsed time.Duration) {
	m.Latency.WithLabelValues(role, status, mode).Observe(elapsed.Seconds())
	m.Handshakes.WithLabelValues(role, status).Inc()
}

// RecordError 记录一次握手错误
func (m *HandshakeMetrics) RecordError(role, kind string) {
	m.Errors.WithLabelValues(role, kind).Inc()
}

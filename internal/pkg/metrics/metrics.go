package metrics

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

var ProviderSet = wire.NewSet(NewMetrics, wire.InterfaceValue(new(prometheus.Registerer), prometheus.DefaultRegisterer))

const namespace = "blog"

// Metrics 认证与撤销相关指标
type Metrics struct {
	// 未过期的撤销记录数，由定时任务每 5 分钟上报
	RevokedActive prometheus.Gauge
	// 按拒绝原因计数
	Rejections *prometheus.CounterVec
	// 按撤销原因计数
	Revocations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RevokedActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jwt_revoked_tokens_active",
			Help:      "Number of revoked tokens that have not reached their natural expiry.",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jwt_rejections_total",
			Help:      "Rejected bearer credentials by reason.",
		}, []string{"reason"}),
		Revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jwt_revocations_total",
			Help:      "Token revocations by reason.",
		}, []string{"reason"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.RevokedActive, m.Rejections, m.Revocations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RejectionCounter 返回拒绝计数器，nil 安全
func (m *Metrics) RejectionCounter() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.Rejections
}

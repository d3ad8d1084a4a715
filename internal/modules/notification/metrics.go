package notification

import "github.com/prometheus/client_golang/prometheus"

// PoolMetrics counts delivery outcomes and mirrors queue depth.
type PoolMetrics struct {
	Deliveries *prometheus.CounterVec
	Queue      *prometheus.GaugeVec
}

func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crafty",
		Subsystem: "notification",
		Name:      "deliveries_total",
		Help:      "Email delivery attempts by job kind and outcome.",
	}, []string{"kind", "outcome"})
	queue := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crafty",
		Subsystem: "notification",
		Name:      "queue_jobs",
		Help:      "Jobs in the notification queue by state.",
	}, []string{"state"})

	reg.MustRegister(deliveries, queue)
	return &PoolMetrics{Deliveries: deliveries, Queue: queue}
}

func (m *PoolMetrics) observe(s Stats) {
	m.Queue.WithLabelValues("waiting").Set(float64(s.Waiting))
	m.Queue.WithLabelValues("delayed").Set(float64(s.Delayed))
	m.Queue.WithLabelValues("active").Set(float64(s.Active))
	m.Queue.WithLabelValues("completed").Set(float64(s.Completed))
	m.Queue.WithLabelValues("failed").Set(float64(s.Failed))
}

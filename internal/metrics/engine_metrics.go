// Package metrics экспортирует метрики движка правок в Prometheus.
package metrics

import (
	"github.com/annel0/worldedit/internal/engine"
	"github.com/annel0/worldedit/internal/history"
	"github.com/prometheus/client_golang/prometheus"
)

var _ engine.Observer = (*EngineMetrics)(nil)

// EngineMetrics наблюдатель движка.
//
// Метрики (namespace задается при создании):
// * edit_operations_queued: gauge, задачи в очереди
// * edit_operations_running: gauge, выполняющиеся задачи
// * edit_operations_total{kind,status}: counter, итоги задач
// * edit_operation_duration_seconds{kind}: histogram, время выполнения
// * edit_operation_wait_seconds{kind}: histogram, ожидание в очереди
// * edit_cells_changed_total{kind}: counter, измененные ячейки
type EngineMetrics struct {
	queued   prometheus.Gauge
	running  prometheus.Gauge
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	wait     *prometheus.HistogramVec
	cells    *prometheus.CounterVec
}

// NewEngineMetrics создает метрики и регистрирует их в reg (nil означает регистр по умолчанию)
func NewEngineMetrics(namespace string, reg prometheus.Registerer) (*EngineMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &EngineMetrics{
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edit_operations_queued",
			Help:      "Число правок, ожидающих запуска.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edit_operations_running",
			Help:      "Число выполняющихся правок.",
		}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edit_operations_total",
			Help:      "Завершенные правки по типу и итогу.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edit_operation_duration_seconds",
			Help:      "Длительность выполнения правок.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edit_operation_wait_seconds",
			Help:      "Время ожидания правок в очереди.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"kind"}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edit_cells_changed_total",
			Help:      "Число ячеек, измененных правками.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{m.queued, m.running, m.total, m.duration, m.wait, m.cells} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *EngineMetrics) OnQueued(engine.Task) {
	m.queued.Inc()
}

func (m *EngineMetrics) OnStarted(t engine.Task) {
	m.queued.Dec()
	m.running.Inc()
	m.wait.WithLabelValues(t.Op.Kind()).Observe(t.StartedAt.Sub(t.QueuedAt).Seconds())
}

func (m *EngineMetrics) OnCompleted(t engine.Task, cs *history.ChangeSet) {
	kind := t.Op.Kind()
	m.running.Dec()
	m.total.WithLabelValues(kind, "completed").Inc()
	m.duration.WithLabelValues(kind).Observe(t.Duration.Seconds())
	if cs != nil {
		m.cells.WithLabelValues(kind).Add(float64(cs.Len()))
	}
}

func (m *EngineMetrics) OnFailed(t engine.Task, _ error) {
	kind := t.Op.Kind()
	m.running.Dec()
	m.total.WithLabelValues(kind, "failed").Inc()
	m.duration.WithLabelValues(kind).Observe(t.Duration.Seconds())
}

// OnCancelled вызывается только для задач, не покинувших очередь
func (m *EngineMetrics) OnCancelled(t engine.Task) {
	m.queued.Dec()
	m.total.WithLabelValues(t.Op.Kind(), "cancelled").Inc()
}

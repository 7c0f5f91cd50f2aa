package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты генерации для метки result
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// GenerationMetrics — Prometheus-метрики генерации рельефа.
// Методы безопасны для nil-получателя.
//
// Метрики:
// * terrain_generations_total{result} — counter
// * terrain_generation_duration_seconds — histogram
// * terrain_vertices, terrain_triangles, terrain_noise_fields — gauge последней генерации
type GenerationMetrics struct {
	generations *prometheus.CounterVec
	duration    prometheus.Histogram
	vertices    prometheus.Gauge
	triangles   prometheus.Gauge
	fields      prometheus.Gauge
}

// NewGenerationMetrics создаёт метрики и регистрирует их в reg
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	m := &GenerationMetrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terrain",
			Name:      "generations_total",
			Help:      "Число запусков генерации рельефа.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "terrain",
			Name:      "generation_duration_seconds",
			Help:      "Длительность генерации рельефа (сэмплирование и построение меша).",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		vertices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Name:      "vertices",
			Help:      "Число вершин текущего меша после дублирования.",
		}),
		triangles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Name:      "triangles",
			Help:      "Число треугольников текущего меша.",
		}),
		fields: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "terrain",
			Name:      "noise_fields",
			Help:      "Число полей шума в выражении текущего рельефа.",
		}),
	}

	reg.MustRegister(m.generations, m.duration, m.vertices, m.triangles, m.fields)
	return m
}

// ObserveSuccess учитывает успешную генерацию
func (m *GenerationMetrics) ObserveSuccess(elapsed time.Duration, vertices, triangles, fields int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(ResultOK).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.vertices.Set(float64(vertices))
	m.triangles.Set(float64(triangles))
	m.fields.Set(float64(fields))
}

// ObserveFailure учитывает неудачную генерацию; gauge текущего меша не меняются
func (m *GenerationMetrics) ObserveFailure(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(ResultError).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Reset обнуляет gauge текущего меша (рельеф удалён)
func (m *GenerationMetrics) Reset() {
	if m == nil {
		return
	}
	m.vertices.Set(0)
	m.triangles.Set(0)
	m.fields.Set(0)
}

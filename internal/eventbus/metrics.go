package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector отдаёт Stats шины в Prometheus при каждом scrape,
// без фонового опроса.
type StatsCollector struct {
	bus       EventBus
	published *prometheus.Desc
	consumed  *prometheus.Desc
	dropped   *prometheus.Desc
	inflight  *prometheus.Desc
}

// NewStatsCollector создаёт коллектор; регистрировать его должен вызывающий.
func NewStatsCollector(bus EventBus) *StatsCollector {
	return &StatsCollector{
		bus:       bus,
		published: prometheus.NewDesc("eventbus_messages_published_total", "Общее число опубликованных сообщений.", nil, nil),
		consumed:  prometheus.NewDesc("eventbus_messages_consumed_total", "Общее число доставленных сообщений подписчикам.", nil, nil),
		dropped:   prometheus.NewDesc("eventbus_messages_dropped_total", "Сообщений, отброшенных из-за ошибок или back-pressure.", nil, nil),
		inflight:  prometheus.NewDesc("eventbus_messages_inflight", "Количество сообщений в очереди.", nil, nil),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.consumed
	ch <- c.dropped
	ch <- c.inflight
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.bus.Metrics()
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.consumed, prometheus.CounterValue, float64(s.Consumed))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(s.InFlight))
}

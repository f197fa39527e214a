package player

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors a Player exposes, grounded on
// the teacher's distribution.Server metrics registration — one Player
// process registers its own collectors against a caller-supplied
// registry rather than the global default, so multiple Players (tests,
// or a host embedding more than one) don't collide.
type Metrics struct {
	renderTicks prometheus.Counter
	clockTime   prometheus.Gauge
	poolInUse   prometheus.Gauge
}

// NewMetrics creates and registers a Player's collectors against reg. If
// reg is nil, the collectors are created but not registered, which is
// enough for tests that only exercise observeRenderTick.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		renderTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weave_player_render_ticks_total",
			Help: "Total number of render loop ticks processed.",
		}),
		clockTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weave_player_clock_seconds",
			Help: "Current playback position in seconds.",
		}),
		poolInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weave_player_workers_in_use",
			Help: "Number of PlaybackWorkers currently checked out of the pool.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.renderTicks, m.clockTime, m.poolInUse)
	}
	return m
}

func (m *Metrics) observeRenderTick(t float64) {
	if m == nil {
		return
	}
	m.renderTicks.Inc()
	m.clockTime.Set(t)
}

func (m *Metrics) setWorkersInUse(n int) {
	if m == nil {
		return
	}
	m.poolInUse.Set(float64(n))
}

// Package metrics exposes the step pipeline to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nstehr/vimy/vimy-sc2/orders"
	"github.com/nstehr/vimy/vimy-sc2/squad"
)

// Metrics holds the collectors of one agent process. Sessions share it.
type Metrics struct {
	Objectives   *prometheus.GaugeVec
	Squads       *prometheus.GaugeVec
	Commands     *prometheus.CounterVec
	Retreats     prometheus.Counter
	Merges       prometheus.Counter
	StepDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Objectives: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vimy_objectives",
				Help: "Objectives per scheduler set",
			},
			[]string{"state"},
		),
		Squads: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vimy_squads",
				Help: "Squads per tactical status",
			},
			[]string{"status"},
		),
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vimy_commands_total",
				Help: "Unit commands sent to the game, by ability id",
			},
			[]string{"ability"},
		),
		Retreats: factory.NewCounter(prometheus.CounterOpts{
			Name: "vimy_retreats_total",
			Help: "Squad retreats started",
		}),
		Merges: factory.NewCounter(prometheus.CounterOpts{
			Name: "vimy_squad_merges_total",
			Help: "Squads merged into another by a join",
		}),
		StepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vimy_step_duration_seconds",
			Help:    "Wall time of one decision step",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// SetObjectives publishes the scheduler set sizes.
func (m *Metrics) SetObjectives(counts map[string]int) {
	for state, n := range counts {
		m.Objectives.WithLabelValues(state).Set(float64(n))
	}
}

// SetSquads publishes how many squads are in each status.
func (m *Metrics) SetSquads(squads []*squad.Squad) {
	counts := map[squad.Status]int{squad.Idle: 0, squad.Moving: 0, squad.Combat: 0, squad.AtTarget: 0}
	for _, sq := range squads {
		counts[sq.Status()]++
	}
	for st, n := range counts {
		m.Squads.WithLabelValues(st.String()).Set(float64(n))
	}
}

// AddSquadStats adds the lifecycle events between two manager snapshots.
func (m *Metrics) AddSquadStats(prev, cur squad.Stats) {
	if cur.Retreats > prev.Retreats {
		m.Retreats.Add(float64(cur.Retreats - prev.Retreats))
	}
	if cur.Merged > prev.Merged {
		m.Merges.Add(float64(cur.Merged - prev.Merged))
	}
}

// CountCommands counts every unit order in the batches.
func (m *Metrics) CountCommands(batches []orders.Batch) {
	for _, b := range batches {
		m.Commands.WithLabelValues(strconv.FormatUint(uint64(b.Ability), 10)).Add(float64(len(b.Units)))
	}
}

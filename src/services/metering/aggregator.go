package metering

import (
	"sync"

	"cdclag/src/domain"
)

// Sink receives every aggregator mutation, typically to mirror it into
// Prometheus collectors. A nil sink disables mirroring.
type Sink interface {
	IncMessageTotal(solution domain.Solution)
	IncOperation(solution domain.Solution, op domain.OperationKind)
	ObserveLag(solution domain.Solution, lag, eventTime float64)
}

// SolutionStats is the cumulative per-solution state. Counters are monotonic
// for the process lifetime; there is no eviction or windowing, a full restart
// is the only reset. LastEventTime and LastLag are meaningful only while
// LagCount > 0.
type SolutionStats struct {
	MessagesTotal uint64
	Operations    map[domain.OperationKind]uint64
	LagSum        float64
	LagCount      uint64
	LastEventTime float64
	LastLag       float64
}

// AvgLag returns the running average lag in seconds, or 0 before the first
// lag observation.
func (s SolutionStats) AvgLag() float64 {
	if s.LagCount == 0 {
		return 0
	}
	return s.LagSum / float64(s.LagCount)
}

// Aggregator owns the only mutable state of the pipeline. Mutations are
// mutex-serialized because sarama runs one goroutine per partition claim and
// a torn lag_sum/lag_count pair would corrupt the running average, not just
// a count.
type Aggregator struct {
	mu    sync.RWMutex
	stats map[domain.Solution]*SolutionStats
	sink  Sink
}

// NewAggregator creates the stats cells for the given solutions at process
// start. With no solutions it covers the two bench pipelines.
func NewAggregator(sink Sink, solutions ...domain.Solution) *Aggregator {
	if len(solutions) == 0 {
		solutions = []domain.Solution{domain.SolutionOutboxx, domain.SolutionDebezium}
	}

	stats := make(map[domain.Solution]*SolutionStats, len(solutions))
	for _, solution := range solutions {
		stats[solution] = &SolutionStats{
			Operations: make(map[domain.OperationKind]uint64),
		}
	}

	return &Aggregator{
		stats: stats,
		sink:  sink,
	}
}

// RecordMessage unconditionally increments the solution's raw message total.
func (a *Aggregator) RecordMessage(solution domain.Solution) {
	a.mu.Lock()
	a.getOrCreate(solution).MessagesTotal++
	a.mu.Unlock()

	if a.sink != nil {
		a.sink.IncMessageTotal(solution)
	}
}

// RecordOperation increments the per-operation counter for countable kinds.
// READ and pass-through codes are observed but not counted here.
func (a *Aggregator) RecordOperation(solution domain.Solution, op domain.OperationKind) {
	if !op.Countable() {
		return
	}

	a.mu.Lock()
	a.getOrCreate(solution).Operations[op]++
	a.mu.Unlock()

	if a.sink != nil {
		a.sink.IncOperation(solution, op)
	}
}

// RecordLag folds one lag observation into the running sum and updates the
// last-seen markers. Callers guarantee lag >= 0; negative values are
// discarded upstream as clock-skew artifacts.
func (a *Aggregator) RecordLag(solution domain.Solution, lag, eventTime float64) {
	if lag < 0 {
		return
	}

	a.mu.Lock()
	stats := a.getOrCreate(solution)
	stats.LagSum += lag
	stats.LagCount++
	stats.LastEventTime = eventTime
	stats.LastLag = lag
	a.mu.Unlock()

	if a.sink != nil {
		a.sink.ObserveLag(solution, lag, eventTime)
	}
}

// Snapshot returns a deep copy of the per-solution stats for reporting.
func (a *Aggregator) Snapshot() map[domain.Solution]SolutionStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snapshot := make(map[domain.Solution]SolutionStats, len(a.stats))
	for solution, stats := range a.stats {
		operations := make(map[domain.OperationKind]uint64, len(stats.Operations))
		for op, count := range stats.Operations {
			operations[op] = count
		}

		copied := *stats
		copied.Operations = operations
		snapshot[solution] = copied
	}
	return snapshot
}

// caller must hold a.mu
func (a *Aggregator) getOrCreate(solution domain.Solution) *SolutionStats {
	stats, ok := a.stats[solution]
	if !ok {
		stats = &SolutionStats{
			Operations: make(map[domain.OperationKind]uint64),
		}
		a.stats[solution] = stats
	}
	return stats
}

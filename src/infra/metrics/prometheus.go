package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"cdclag/src/domain"
)

// Collector mirrors aggregator mutations into Prometheus series, labelled
// per CDC solution so both pipelines share one metric family.
type Collector struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	registered bool

	messagesTotal      *prometheus.CounterVec
	eventsTotal        *prometheus.CounterVec
	replicationLag     *prometheus.GaugeVec
	lastEventTimestamp *prometheus.GaugeVec
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdc",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cdc",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewCollector creates the CDC comparison collectors against the given
// registerer. A nil registerer falls back to the default registry.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Collector{
		registerer:         registerer,
		messagesTotal:      newCounterVec("kafka_messages_total", "Total messages read from Kafka by CDC solution", []string{"cdc_solution"}),
		eventsTotal:        newCounterVec("events_total", "Total countable CDC events processed, by solution and operation", []string{"cdc_solution", "operation"}),
		replicationLag:     newGaugeVec("replication_lag_seconds", "CDC replication lag (kafka_timestamp - event_timestamp)", []string{"cdc_solution"}),
		lastEventTimestamp: newGaugeVec("last_event_timestamp", "Timestamp of the last event that produced a lag observation", []string{"cdc_solution"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (c *Collector) Register() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		c.messagesTotal,
		c.eventsTotal,
		c.replicationLag,
		c.lastEventTimestamp,
	}

	for _, collector := range collectors {
		if err := c.registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	c.registered = true
	return nil
}

// IncMessageTotal counts one raw Kafka message for a solution.
func (c *Collector) IncMessageTotal(solution domain.Solution) {
	c.messagesTotal.WithLabelValues(string(solution)).Inc()
}

// IncOperation counts one countable CDC event.
func (c *Collector) IncOperation(solution domain.Solution, op domain.OperationKind) {
	c.eventsTotal.WithLabelValues(string(solution), string(op)).Inc()
}

// ObserveLag sets the current-lag and last-event gauges for a solution.
func (c *Collector) ObserveLag(solution domain.Solution, lag, eventTime float64) {
	c.replicationLag.WithLabelValues(string(solution)).Set(lag)
	c.lastEventTimestamp.WithLabelValues(string(solution)).Set(eventTime)
}

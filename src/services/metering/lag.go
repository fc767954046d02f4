package metering

import "cdclag/src/domain"

// ComputeLag derives replication lag in seconds: broker receipt time minus
// event time. Broker time comes from Kafka's own message timestamp, never
// the consumer wall clock, so consumer clock drift cannot skew the result.
// If either timestamp is absent there is no lag to compute. A negative lag
// is a transient clock-skew artifact and is discarded; only lag >= 0 is
// forwarded to the aggregator.
func ComputeLag(event domain.NormalizedEvent) (float64, bool) {
	if !event.HasBrokerTime || !event.HasEventTime {
		return 0, false
	}
	lag := event.BrokerTime - event.EventTime
	if lag < 0 {
		return 0, false
	}
	return lag, true
}

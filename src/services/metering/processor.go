package metering

import (
	"log/slog"

	"cdclag/src/domain"
)

// Processor runs one raw message through the normalization pipeline:
// detect -> decode -> normalize operation -> parse timestamps -> lag ->
// aggregate. It holds no per-message state; everything cumulative lives in
// the Aggregator.
type Processor struct {
	logger     *slog.Logger
	detector   *Detector
	aggregator *Aggregator
}

func NewProcessor(logger *slog.Logger, detector *Detector, aggregator *Aggregator) *Processor {
	return &Processor{
		logger:     logger,
		detector:   detector,
		aggregator: aggregator,
	}
}

// Process reports whether the message contributed a lag observation. Every
// other outcome (unknown solution, decode failure, non-countable operation,
// missing or invalid timestamps, negative lag) returns false; these are
// expected steady-state drops and never abort the consume loop. Only decode
// failures get logged, since they may indicate upstream schema drift.
func (p *Processor) Process(msg domain.RawMessage) bool {
	solution := p.detector.Detect(msg.Topic)
	if solution == domain.SolutionUnknown {
		return false
	}

	doc, err := DecodeDocument(msg.Payload)
	if err != nil {
		p.logger.Error("Failed to decode CDC message",
			"error", err,
			"topic", msg.Topic,
			"value_length", len(msg.Payload))
		return false
	}

	p.aggregator.RecordMessage(solution)

	op := NormalizeOperation(doc, solution)
	if !op.Countable() {
		return false
	}

	// The operation counts regardless of whether a lag can be derived, so
	// event counts and lag counts may diverge under timestamp loss.
	p.aggregator.RecordOperation(solution, op)

	event := domain.NormalizedEvent{
		Solution:  solution,
		Operation: op,
	}
	event.EventTime, event.HasEventTime = EventTime(doc)
	if !msg.BrokerTimestamp.IsZero() {
		event.BrokerTime = float64(msg.BrokerTimestamp.UnixMilli()) / 1000.0
		event.HasBrokerTime = true
	}

	lag, ok := ComputeLag(event)
	if !ok {
		return false
	}

	p.aggregator.RecordLag(solution, lag, event.EventTime)
	return true
}

package domain

import (
	"fmt"
	"time"
)

// Solution identifies which CDC pipeline produced a message. It is used
// verbatim as the `cdc_solution` metric label.
type Solution string

const (
	SolutionOutboxx  Solution = "outboxx"
	SolutionDebezium Solution = "debezium"
	SolutionUnknown  Solution = "unknown"
)

// OperationKind is the canonical CDC operation. Unrecognized codes pass
// through unchanged so new upstream operations are visible in the label set
// rather than silently collapsed.
type OperationKind string

const (
	OperationInsert OperationKind = "INSERT"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
	OperationRead   OperationKind = "READ"
)

// Countable reports whether the operation participates in per-operation
// counters and lag statistics. READ and pass-through codes still count
// toward the solution's raw message total.
func (op OperationKind) Countable() bool {
	switch op {
	case OperationInsert, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// RawMessage is one record as handed over by the Kafka consumer. The broker
// timestamp is the receipt time assigned by Kafka, independent of consumer
// clock drift; a zero time means the broker did not provide one.
type RawMessage struct {
	Topic           string
	Payload         []byte
	BrokerTimestamp time.Time
}

// NormalizedEvent is the per-message result of the normalization pipeline.
// Timestamps are epoch seconds; HasEventTime/HasBrokerTime distinguish a
// genuine zero from an absent value.
type NormalizedEvent struct {
	Solution      Solution
	Operation     OperationKind
	EventTime     float64
	HasEventTime  bool
	BrokerTime    float64
	HasBrokerTime bool
}

// DecodeError reports a payload that could not be decoded into a document.
// It is the only per-message failure that gets logged, since it may indicate
// upstream schema drift.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode CDC payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

package metering

import "cdclag/src/domain"

// debeziumOperations maps Debezium's single-character op codes to the
// canonical kinds. Codes outside the table pass through unchanged.
var debeziumOperations = map[string]domain.OperationKind{
	"c": domain.OperationInsert,
	"u": domain.OperationUpdate,
	"d": domain.OperationDelete,
	"r": domain.OperationRead,
}

// NormalizeOperation extracts the operation from a decoded document.
// Outboxx writes the canonical string under a top-level "op" field, so it
// needs no mapping; a missing field yields the empty (non-countable) kind.
// Debezium writes a single-character code under "__op".
func NormalizeOperation(doc map[string]any, solution domain.Solution) domain.OperationKind {
	switch solution {
	case domain.SolutionOutboxx:
		op, _ := doc["op"].(string)
		return domain.OperationKind(op)
	case domain.SolutionDebezium:
		code, _ := doc["__op"].(string)
		if kind, ok := debeziumOperations[code]; ok {
			return kind
		}
		return domain.OperationKind(code)
	}
	return ""
}

package metering

import (
	"github.com/bytedance/sonic"

	"cdclag/src/domain"
)

// sonic with stdlib-compatible semantics; decoding dominates the hot path.
var json = sonic.ConfigStd

// DecodeDocument parses a raw payload into a generic key-value document.
// Failures come back as *domain.DecodeError so the orchestrator can log
// them; no aggregator state is touched for an undecodable message.
func DecodeDocument(payload []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, &domain.DecodeError{Err: err}
	}
	return doc, nil
}

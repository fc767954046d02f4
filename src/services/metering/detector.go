package metering

import (
	"strings"

	"cdclag/src/domain"
)

// TopicRule maps a topic-name substring to the CDC solution that owns it.
type TopicRule struct {
	Match    string
	Solution domain.Solution
}

// DefaultTopicRules covers the bench setup: Outboxx publishes to
// outboxx.<table>, Debezium to debezium.<schema>.<table>.
func DefaultTopicRules() []TopicRule {
	return []TopicRule{
		{Match: "outboxx", Solution: domain.SolutionOutboxx},
		{Match: "debezium", Solution: domain.SolutionDebezium},
	}
}

// Detector classifies a message's source solution from its topic. Rules are
// evaluated in order, matching is case-sensitive, first match wins. The
// detector holds no mutable state, so classification is deterministic for a
// given topic across the process lifetime.
type Detector struct {
	rules []TopicRule
}

func NewDetector(rules ...TopicRule) *Detector {
	if len(rules) == 0 {
		rules = DefaultTopicRules()
	}
	return &Detector{rules: rules}
}

// Detect returns the solution for a topic, or SolutionUnknown when no rule
// matches. Unknown messages are dropped before any state mutation.
func (d *Detector) Detect(topic string) domain.Solution {
	for _, rule := range d.rules {
		if strings.Contains(topic, rule.Match) {
			return rule.Solution
		}
	}
	return domain.SolutionUnknown
}

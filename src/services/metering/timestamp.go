package metering

import "time"

// TimestampLayout is the Outboxx event timestamp format: PostgreSQL
// timestamp output with six-digit fractional seconds and no zone, assumed
// UTC.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// ParseTimestamp converts a timestamp value of unknown shape to epoch
// seconds. Numeric values are microseconds since epoch (Debezium source
// timestamps); strings must match TimestampLayout (Outboxx). Any other
// shape, or a string that fails the layout, parses to nothing rather than
// erroring — the event then proceeds without a usable event time.
func ParseTimestamp(value any) (float64, bool) {
	switch ts := value.(type) {
	case float64:
		return ts / 1e6, true
	case int64:
		return float64(ts) / 1e6, true
	case int:
		return float64(ts) / 1e6, true
	case string:
		t, err := time.ParseInLocation(TimestampLayout, ts, time.UTC)
		if err != nil {
			return 0, false
		}
		return float64(t.UnixMicro()) / 1e6, true
	}
	return 0, false
}

// EventTime resolves and parses a document's event timestamp. Outboxx nests
// it under the per-event data sub-document; Debezium's flattened shape keeps
// the same field name at the top level. Empty and zero values count as
// absent, matching how both producers omit the field.
func EventTime(doc map[string]any) (float64, bool) {
	raw, ok := eventTimestampField(doc)
	if !ok {
		return 0, false
	}
	return ParseTimestamp(raw)
}

func eventTimestampField(doc map[string]any) (any, bool) {
	if data, ok := doc["data"].(map[string]any); ok {
		if raw, ok := data["event_timestamp"]; ok && hasValue(raw) {
			return raw, true
		}
	}
	if raw, ok := doc["event_timestamp"]; ok && hasValue(raw) {
		return raw, true
	}
	return nil, false
}

func hasValue(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case float64:
		return v != 0
	}
	return true
}

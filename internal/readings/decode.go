package readings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrUnrecognizedTopic marks a topic with no registered decoder. It is
// deliberately not a ValidationError: the live loop skips these topics,
// while a malformed payload on a recognized topic is an error.
var ErrUnrecognizedTopic = errors.New("unrecognized topic")

type decoder func(payload []byte) (Reading, error)

var topicDecoders = map[string]decoder{
	MeasurementInstantaneousDemand: decodeInstantaneousDemand,
	MeasurementMinutelySummation:   decodeMinutelySummation,
}

// Decode looks up the decoder for topic and validates payload into a
// typed Reading. Returns ErrUnrecognizedTopic when no decoder matches
// and a ValidationError when the payload violates the topic's schema.
func Decode(topic string, payload []byte) (Reading, error) {
	dec, ok := topicDecoders[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedTopic, topic)
	}
	return dec(payload)
}

func decodeInstantaneousDemand(payload []byte) (Reading, error) {
	raw, err := objectFields(payload, "time", "demand")
	if err != nil {
		return nil, err
	}
	t, err := epochMillisField(raw["time"], "time")
	if err != nil {
		return nil, err
	}
	demand, err := intField(raw["demand"], "demand")
	if err != nil {
		return nil, err
	}
	r, err := NewInstantaneousDemand(t, demand)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func decodeMinutelySummation(payload []byte) (Reading, error) {
	raw, err := objectFields(payload, "type", "time", "local_time", "value")
	if err != nil {
		return nil, err
	}
	var kind string
	if err := json.Unmarshal(raw["type"], &kind); err != nil || kind != "minute" {
		return nil, &ValidationError{Field: "type", Reason: `must be "minute"`}
	}
	t, err := epochMillisField(raw["time"], "time")
	if err != nil {
		return nil, err
	}
	localTime, err := localTimeField(raw["local_time"], "local_time")
	if err != nil {
		return nil, err
	}
	value, err := floatField(raw["value"], "value")
	if err != nil {
		return nil, err
	}
	r, err := NewMinutelySummation(t, localTime, value)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// objectFields splits payload into its raw members and enforces the
// strict schema: every declared key present, no extras.
func objectFields(payload []byte, keys ...string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &ValidationError{Field: "payload", Reason: "not a JSON object"}
	}
	declared := make(map[string]bool, len(keys))
	for _, k := range keys {
		declared[k] = true
		if _, ok := raw[k]; !ok {
			return nil, &ValidationError{Field: k, Reason: "missing"}
		}
	}
	for k := range raw {
		if !declared[k] {
			return nil, &ValidationError{Field: k, Reason: "unknown field"}
		}
	}
	return raw, nil
}

func intField(raw json.RawMessage, field string) (int64, error) {
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "not an integer"}
	}
	return n, nil
}

func floatField(raw json.RawMessage, field string) (float64, error) {
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "not a number"}
	}
	return f, nil
}

// epochMillisField parses an epoch-milliseconds integer, truncating to
// whole seconds like the bridge firmware expects.
func epochMillisField(raw json.RawMessage, field string) (time.Time, error) {
	ms, err := intField(raw, field)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ms/1000, 0).UTC(), nil
}

// localTimeField accepts either an epoch-milliseconds integer or a
// wall-clock string; the bridge firmware emits both depending on
// version.
func localTimeField(raw json.RawMessage, field string) (time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return time.Time{}, &ValidationError{Field: field, Reason: "missing"}
	}
	if trimmed[0] != '"' {
		return epochMillisField(trimmed, field)
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: "not a timestamp"}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Field: field, Reason: "not a timestamp"}
}

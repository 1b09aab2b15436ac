// Package readings defines the typed metering records accepted from the
// energy bridge and the utility usage report, their validation rules,
// and their conversion to series-store points.
//
// Every reading is constructed through a checked constructor: negative
// demand or usage values never make it into a Reading. Conversion to a
// Point is pure and cannot fail once a Reading exists.
package readings

import (
	"fmt"
	"time"

	"github.com/calumet/energy-bridge/internal/models"
)

// Measurement names written to the series store. The live topics double
// as measurement names; the usage report gets its own.
const (
	MeasurementInstantaneousDemand = "event/metering/instantaneous_demand"
	MeasurementMinutelySummation   = "event/metering/summation/minute"
	MeasurementHourlyUsage         = "dte/usage/report/electric"
)

// ValidationError reports a payload or value that failed schema or
// range checks. It is distinct from transport errors so callers can
// tell a malformed reading from a broken connection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reading: field %q: %s", e.Field, e.Reason)
}

// Reading is a validated metering record that knows its point form.
type Reading interface {
	Point() models.Point
}

// InstantaneousDemand is a live power draw sample from the meter.
type InstantaneousDemand struct {
	Time   time.Time
	Demand int64
}

func NewInstantaneousDemand(t time.Time, demand int64) (InstantaneousDemand, error) {
	if demand < 0 {
		return InstantaneousDemand{}, &ValidationError{Field: "demand", Reason: "must be >= 0"}
	}
	return InstantaneousDemand{Time: t.UTC(), Demand: demand}, nil
}

func (r InstantaneousDemand) Point() models.Point {
	return models.Point{
		Measurement: MeasurementInstantaneousDemand,
		Time:        r.Time,
		Tags:        map[string]string{},
		Fields:      map[string]any{"value": r.Demand},
	}
}

// MinutelySummation is the meter's per-minute energy summation. The
// local timestamp rides along from the payload but the point is always
// stamped with the UTC instant.
type MinutelySummation struct {
	Time      time.Time
	LocalTime time.Time
	Value     float64
}

func NewMinutelySummation(t, localTime time.Time, value float64) (MinutelySummation, error) {
	if value < 0 {
		return MinutelySummation{}, &ValidationError{Field: "value", Reason: "must be >= 0"}
	}
	return MinutelySummation{Time: t.UTC(), LocalTime: localTime, Value: value}, nil
}

func (r MinutelySummation) Point() models.Point {
	return models.Point{
		Measurement: MeasurementMinutelySummation,
		Time:        r.Time,
		Tags:        map[string]string{},
		Fields:      map[string]any{"value": r.Value},
	}
}

// HourlyUsage is one hour of energy use from the utility's report.
// Value is kWh as reported; the point carries Wh to match the
// energy-bridge readings.
type HourlyUsage struct {
	Time  time.Time
	Value float64
}

func NewHourlyUsage(t time.Time, value float64) (HourlyUsage, error) {
	if value < 0 {
		return HourlyUsage{}, &ValidationError{Field: "value", Reason: "must be >= 0"}
	}
	return HourlyUsage{Time: t.UTC(), Value: value}, nil
}

func (r HourlyUsage) Point() models.Point {
	return models.Point{
		Measurement: MeasurementHourlyUsage,
		Time:        r.Time,
		Tags:        map[string]string{},
		Fields:      map[string]any{"value": r.Value * 1000.0},
	}
}

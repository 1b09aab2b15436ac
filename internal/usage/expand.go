// Package usage expands the utility's per-local-hour daily report rows
// into UTC-stamped hourly values, accounting for daylight-saving
// transitions.
package usage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DaySample is one calendar day of the utility's hourly usage report.
// DayStartUTC is the UTC instant of local midnight; Hours maps the
// 1-indexed local clock hour (1..24, 25 on a fall-back day) to kWh.
type DaySample struct {
	DayStartUTC time.Time
	Hours       map[int]float64
}

var hourKey = regexp.MustCompile(`^HR(\d{2})_KWH$`)

// UnmarshalJSON reads a report row. Only DAY_START_EPOCH and the
// HRnn_KWH columns are used; the report carries assorted metadata
// alongside them, which is ignored. Null hour values are treated as
// absent.
func (d *DaySample) UnmarshalJSON(data []byte) error {
	var row map[string]json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return fmt.Errorf("usage report row: %w", err)
	}

	epochRaw, ok := row["DAY_START_EPOCH"]
	if !ok {
		return fmt.Errorf("usage report row: missing DAY_START_EPOCH")
	}
	var epoch int64
	if err := json.Unmarshal(epochRaw, &epoch); err != nil {
		return fmt.Errorf("usage report row: DAY_START_EPOCH: %w", err)
	}
	d.DayStartUTC = time.Unix(epoch, 0).UTC()

	d.Hours = make(map[int]float64)
	for k, v := range row {
		m := hourKey.FindStringSubmatch(k)
		if m == nil || string(v) == "null" {
			continue
		}
		hour, _ := strconv.Atoi(m[1])
		var val float64
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("usage report row: %s: %w", k, err)
		}
		d.Hours[hour] = val
	}
	return nil
}

// HourValue is one real elapsed hour of a local day.
type HourValue struct {
	Time time.Time // UTC
	KWH  float64
}

// Expand converts a day's local-hour-keyed values into UTC-stamped
// pairs, one per real elapsed hour of the local calendar day.
//
// Starting at local midnight, it advances in absolute one-hour steps
// for as long as the instant still falls on the same local calendar
// date. That walk yields 24 instants on a normal day, 23 on a
// spring-forward day, and 25 on a fall-back day. Each instant is then
// keyed by its 1-indexed local clock hour and looked up in the sample;
// on a fall-back day the repeated clock hour makes two instants share
// one key, so both carry the same reported value. Instants whose key is
// absent from the report are dropped. Output is in ascending UTC order.
func Expand(sample DaySample, loc *time.Location) []HourValue {
	y0, m0, d0 := sample.DayStartUTC.In(loc).Date()

	instants := []time.Time{sample.DayStartUTC}
	for {
		next := instants[len(instants)-1].Add(time.Hour)
		y, m, d := next.In(loc).Date()
		if y != y0 || m != m0 || d != d0 {
			break
		}
		instants = append(instants, next)
	}

	out := make([]HourValue, 0, len(instants))
	for _, t := range instants {
		v, ok := sample.Hours[t.In(loc).Hour()+1]
		if !ok {
			continue
		}
		out = append(out, HourValue{Time: t, KWH: v})
	}
	return out
}

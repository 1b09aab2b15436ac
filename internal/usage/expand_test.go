package usage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detroit(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Detroit")
	require.NoError(t, err)
	return loc
}

// daySample builds a sample starting at local midnight of the given
// date, with hour key h carrying float64(h).
func daySample(t *testing.T, loc *time.Location, year int, month time.Month, day, hourKeys int) DaySample {
	t.Helper()
	hours := make(map[int]float64, hourKeys)
	for h := 1; h <= hourKeys; h++ {
		hours[h] = float64(h)
	}
	return DaySample{
		DayStartUTC: time.Date(year, month, day, 0, 0, 0, 0, loc).UTC(),
		Hours:       hours,
	}
}

func TestExpandNormalDay(t *testing.T) {
	loc := detroit(t)
	sample := daySample(t, loc, 2023, time.June, 15, 24)

	got := Expand(sample, loc)
	require.Len(t, got, 24)

	for i, hv := range got {
		// Each pair carries the value keyed by its local clock hour.
		assert.Equal(t, float64(hv.Time.In(loc).Hour()+1), hv.KWH)
		if i > 0 {
			assert.Equal(t, time.Hour, hv.Time.Sub(got[i-1].Time), "pairs must be one hour apart")
		}
	}
	assert.Equal(t, sample.DayStartUTC, got[0].Time)
	assert.Equal(t, "2023-06-15T04:00:00Z", got[0].Time.Format(time.RFC3339))
}

func TestExpandSpringForwardDay(t *testing.T) {
	loc := detroit(t)
	// 2023-03-12: 02:00 EST jumps to 03:00 EDT, 23 real hours.
	sample := daySample(t, loc, 2023, time.March, 12, 24)

	got := Expand(sample, loc)
	require.Len(t, got, 23)

	// Third instant lands on local 03:00; 02:00 never occurs.
	assert.Equal(t, 1.0, got[0].KWH)
	assert.Equal(t, 2.0, got[1].KWH)
	assert.Equal(t, 4.0, got[2].KWH)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Time.After(got[i-1].Time))
	}
}

func TestExpandFallBackDay(t *testing.T) {
	loc := detroit(t)
	// 2023-11-05: 02:00 EDT falls back to 01:00 EST, 25 real hours.
	sample := daySample(t, loc, 2023, time.November, 5, 25)

	got := Expand(sample, loc)
	require.Len(t, got, 25)

	// The repeated local 01:00 appears twice, one absolute hour apart,
	// carrying the identical reported value.
	assert.Equal(t, 2.0, got[1].KWH)
	assert.Equal(t, 2.0, got[2].KWH)
	assert.Equal(t, time.Hour, got[2].Time.Sub(got[1].Time))
	assert.Equal(t, 1, got[1].Time.In(loc).Hour())
	assert.Equal(t, 1, got[2].Time.In(loc).Hour())

	assert.Equal(t, 24.0, got[len(got)-1].KWH)
}

func TestExpandDropsMissingHours(t *testing.T) {
	loc := detroit(t)
	sample := daySample(t, loc, 2023, time.June, 15, 24)
	delete(sample.Hours, 13)

	got := Expand(sample, loc)
	require.Len(t, got, 23)
	for _, hv := range got {
		assert.NotEqual(t, 12, hv.Time.In(loc).Hour(), "dropped hour must not appear")
	}
}

func TestDaySampleUnmarshalJSON(t *testing.T) {
	row := `{
		"DAY_START_EPOCH": 1686801600,
		"DAY_START": "06/15/2023",
		"TOTAL_KWH": 3.25,
		"HR01_KWH": 0.5,
		"HR02_KWH": null,
		"HR03_KWH": 2.75
	}`

	var sample DaySample
	require.NoError(t, json.Unmarshal([]byte(row), &sample))

	assert.Equal(t, "2023-06-15T04:00:00Z", sample.DayStartUTC.Format(time.RFC3339))
	assert.Equal(t, map[int]float64{1: 0.5, 3: 2.75}, sample.Hours)
}

func TestDaySampleUnmarshalJSONMissingEpoch(t *testing.T) {
	var sample DaySample
	err := json.Unmarshal([]byte(`{"HR01_KWH": 0.5}`), &sample)
	assert.Error(t, err)
}

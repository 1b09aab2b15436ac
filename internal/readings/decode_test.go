package readings

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInstantaneousDemand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid payload",
			payload: `{"time": 1700000000000, "demand": 742}`,
		},
		{
			name:    "negative demand",
			payload: `{"time": 1700000000000, "demand": -1}`,
			wantErr: true,
		},
		{
			name:    "fractional demand",
			payload: `{"time": 1700000000000, "demand": 742.5}`,
			wantErr: true,
		},
		{
			name:    "demand as string",
			payload: `{"time": 1700000000000, "demand": "742"}`,
			wantErr: true,
		},
		{
			name:    "missing demand",
			payload: `{"time": 1700000000000}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			payload: `{"time": 1700000000000, "demand": 742, "extra": 1}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			payload: `[1, 2, 3]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(MeasurementInstantaneousDemand, []byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				assert.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
				return
			}
			require.NoError(t, err)

			demand, ok := r.(InstantaneousDemand)
			require.True(t, ok)
			assert.Equal(t, int64(742), demand.Demand)
			assert.Equal(t, "2023-11-14T22:13:20Z", demand.Time.Format(time.RFC3339))
		})
	}
}

func TestDecodeMinutelySummation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "local_time as epoch millis",
			payload: `{"type": "minute", "time": 1700000000000, "local_time": 1699982000000, "value": 1234.5}`,
		},
		{
			name:    "local_time as string",
			payload: `{"type": "minute", "time": 1700000000000, "local_time": "2023-11-14 17:13:20", "value": 1234.5}`,
		},
		{
			name:    "wrong type literal",
			payload: `{"type": "hourly", "time": 1700000000000, "local_time": 1699982000000, "value": 1234.5}`,
			wantErr: true,
		},
		{
			name:    "negative value",
			payload: `{"type": "minute", "time": 1700000000000, "local_time": 1699982000000, "value": -0.5}`,
			wantErr: true,
		},
		{
			name:    "missing local_time",
			payload: `{"type": "minute", "time": 1700000000000, "value": 1234.5}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			payload: `{"type": "minute", "time": 1700000000000, "local_time": 1699982000000, "value": 1234.5, "unit": "Wh"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(MeasurementMinutelySummation, []byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				assert.True(t, errors.As(err, &vErr), "want ValidationError, got %v", err)
				return
			}
			require.NoError(t, err)

			summation, ok := r.(MinutelySummation)
			require.True(t, ok)
			assert.Equal(t, 1234.5, summation.Value)
			assert.Equal(t, "2023-11-14T22:13:20Z", summation.Time.Format(time.RFC3339))
		})
	}
}

func TestDecodeUnrecognizedTopic(t *testing.T) {
	r, err := Decode("event/metering/unknown", []byte(`{"demand": 742}`))
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrUnrecognizedTopic)

	// The skip path must stay distinguishable from a bad payload.
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
}

func TestDecodedDemandPoint(t *testing.T) {
	r, err := Decode(MeasurementInstantaneousDemand, []byte(`{"time": 1700000000000, "demand": 742}`))
	require.NoError(t, err)

	p := r.Point()
	assert.Equal(t, MeasurementInstantaneousDemand, p.Measurement)
	assert.Equal(t, "2023-11-14T22:13:20Z", p.Time.Format(time.RFC3339))
	assert.Empty(t, p.Tags)
	assert.Equal(t, map[string]any{"value": int64(742)}, p.Fields)
}

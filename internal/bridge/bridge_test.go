package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calumet/energy-bridge/internal/models"
	"github.com/calumet/energy-bridge/internal/readings"
)

type recordingRepo struct {
	points  []models.Point
	failure error
}

func (r *recordingRepo) WritePoint(_ context.Context, p models.Point) error {
	if r.failure != nil {
		return r.failure
	}
	r.points = append(r.points, p)
	return nil
}

func (r *recordingRepo) WriteBatch(_ context.Context, points []models.Point) error {
	r.points = append(r.points, points...)
	return nil
}

func (r *recordingRepo) Close() error { return nil }

func TestHandleMessageSkipsUnrecognizedTopic(t *testing.T) {
	repo := &recordingRepo{}
	b := New("localhost", 1883, "test", repo, logrus.New())

	err := b.handleMessage(context.Background(), "event/zigbee/heartbeat", []byte(`not even json`))
	assert.NoError(t, err, "unrecognized topics are a no-op")
	assert.Empty(t, repo.points)
}

func TestHandleMessageWritesRecognizedReading(t *testing.T) {
	repo := &recordingRepo{}
	b := New("localhost", 1883, "test", repo, logrus.New())

	payload := []byte(`{"time": 1700000000000, "demand": 742}`)
	require.NoError(t, b.handleMessage(context.Background(), readings.MeasurementInstantaneousDemand, payload))

	require.Len(t, repo.points, 1)
	p := repo.points[0]
	assert.Equal(t, readings.MeasurementInstantaneousDemand, p.Measurement)
	assert.Equal(t, "2023-11-14T22:13:20Z", p.Time.UTC().Format(time.RFC3339))
	assert.Empty(t, p.Tags)
	assert.Equal(t, map[string]any{"value": int64(742)}, p.Fields)
}

func TestHandleMessageFailsOnMalformedRecognizedPayload(t *testing.T) {
	repo := &recordingRepo{}
	b := New("localhost", 1883, "test", repo, logrus.New())

	err := b.handleMessage(context.Background(), readings.MeasurementInstantaneousDemand, []byte(`{"time": 1700000000000, "demand": -5}`))
	require.Error(t, err)

	var vErr *readings.ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Empty(t, repo.points)
}

func TestHandleMessageSurfacesWriteFailure(t *testing.T) {
	repo := &recordingRepo{failure: errors.New("connection refused")}
	b := New("localhost", 1883, "test", repo, logrus.New())

	payload := []byte(`{"time": 1700000000000, "demand": 742}`)
	err := b.handleMessage(context.Background(), readings.MeasurementInstantaneousDemand, payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write point")
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testResult() domain.Result {
	t := domain.DefaultTimeBounds(1961, 1990)
	req := domain.NewBatchRequest(domain.Temperature, []domain.Cell{
		domain.PointCell(10, 20, t),
		domain.PointCell(11, 21, t),
	}, domain.DefaultOptions())
	return domain.Result{
		Request: req,
		Values: []domain.ParameterValue{
			{Value: 290.1, Uncertainty: 0.5, Provenance: "CRU_CL_2_0"},
			{Value: 289.7, Uncertainty: 0.6, Provenance: "CRU_CL_2_0"},
		},
		Status: domain.StatusSuccess,
	}
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	msg, err := serializeToMessage("abc123", testResult(), now)
	require.NoError(t, err)

	assert.Equal(t, []byte("abc123"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "parameter", msg.Headers[0].Key)
	assert.Equal(t, []byte("FC_TEMPERATURE"), msg.Headers[0].Value)
	assert.Equal(t, "fetched_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var body ResultMessage
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "abc123", body.RequestHash)
	assert.Equal(t, "FC_TEMPERATURE", body.Parameter)
	assert.Equal(t, "ANY", body.DataSource)
	assert.Equal(t, "success", body.Status)
	assert.True(t, now.Equal(body.FetchedAt))
	require.Len(t, body.Cells, 2)
	assert.Equal(t, 11.0, body.Cells[1].LatMin)
	assert.Equal(t, 289.7, body.Cells[1].Value)
	assert.Equal(t, domain.Unspecified, body.Cells[0].DayMin)
}

func TestSerializeToMessage_ShapeMismatch(t *testing.T) {
	res := testResult()
	res.Values = res.Values[:1]

	_, err := serializeToMessage("abc123", res, time.Now())
	assert.Error(t, err)
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()
	p := newPublisher(w, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics, clock)

	require.NoError(t, p.Publish(context.Background(), "abc123", testResult()))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("abc123"), w.msgs[0].Key)
	assert.Equal(t, []byte("2024-01-02T03:04:05Z"), w.msgs[0].Headers[1].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResultsPublished))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PublishErrors))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	metrics := observability.NewMetricsForTesting()
	p := newPublisher(w, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics, clockwork.NewFakeClock())

	err := p.Publish(context.Background(), "abc123", testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ResultsPublished))
}

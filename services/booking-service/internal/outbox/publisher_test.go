package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/sellerbook/libs/kafkax"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed bool
}

func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { return nil }

type fakeStore struct {
	tx        *fakeTx
	records   []Record
	published []int64
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) {
	s.tx = &fakeTx{}
	return s.tx, nil
}

func (s *fakeStore) FetchUnpublished(_ context.Context, _ pgx.Tx, limit int) ([]Record, error) {
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, _ pgx.Tx, ids []int64) error {
	s.published = append(s.published, ids...)
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func testLogger() *slog.Logger { return slog.New(slog.NewJSONHandler(io.Discard, nil)) }

func TestPublishBatchWritesAndMarks(t *testing.T) {
	st := &fakeStore{records: []Record{
		{ID: 1, EventID: "e-1", AggregateID: "appt-1", EventType: EventAppointmentBooked, Payload: []byte(`{}`)},
		{ID: 2, EventID: "e-2", AggregateID: "appt-1", EventType: EventAppointmentCancelled, Payload: []byte(`{}`)},
	}}
	w := &fakeWriter{}
	p := NewPublisher(st, w, testLogger(), PublisherConfig{BatchSize: 10})

	n, err := p.PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, st.published)
	assert.True(t, st.tx.committed)

	require.Len(t, w.msgs, 2)
	assert.Equal(t, EventAppointmentBooked, w.msgs[0].Topic)
	assert.Equal(t, "appt-1", string(w.msgs[0].Key))
	assert.Equal(t, "e-1", kafkax.HeaderValue(w.msgs[0].Headers, kafkax.HeaderEventID))
}

func TestPublishBatchDoesNotMarkOnWriteFailure(t *testing.T) {
	st := &fakeStore{records: []Record{{ID: 1, EventType: EventAppointmentBooked}}}
	p := NewPublisher(st, &fakeWriter{err: errors.New("broker down")}, testLogger(), PublisherConfig{})

	_, err := p.PublishBatch(context.Background())
	require.Error(t, err)
	assert.Empty(t, st.published)
	assert.False(t, st.tx.committed)
}

func TestPublishBatchEmpty(t *testing.T) {
	st := &fakeStore{}
	n, err := NewPublisher(st, &fakeWriter{}, testLogger(), PublisherConfig{}).PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, st.tx.committed)
}

func TestAppointmentEventPayload(t *testing.T) {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	evt, err := AppointmentEvent(EventAppointmentBooked, model.Appointment{
		ID: "appt-1", SellerID: "s-1", BuyerID: "b-1",
		StartTime: start, EndTime: start.Add(time.Hour),
		Timezone: "Europe/Berlin", Status: model.StatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, AggregateAppointment, evt.AggregateType)
	assert.Equal(t, "appt-1", evt.AggregateID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(evt.Payload, &body))
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "2026-03-02T14:00:00Z", body["start_at"])
	assert.NotContains(t, body, "cancelled_at")
}

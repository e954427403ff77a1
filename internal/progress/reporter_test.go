package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	events []Event
	err    error
	closed bool
}

func (s *recordingSink) Consume(_ context.Context, evt Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.closed = true
	return nil
}

func validEvent() Event {
	return Event{
		RunID: uuid.New(),
		TS:    time.Now().UTC(),
		Stage: StageDocPersisted,
		Site:  "povarenok",
	}
}

func TestReporterDeliversValidEvents(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(context.Background(), zap.NewNop(), sink)

	evt := validEvent()
	r.Emit(evt)

	require.Len(t, sink.events, 1)
	require.Equal(t, evt.Site, sink.events[0].Site)
}

func TestReporterDropsInvalidEvents(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(context.Background(), zap.NewNop(), sink)

	r.Emit(Event{})                                       // missing everything
	r.Emit(Event{RunID: uuid.New(), TS: time.Now().UTC()}) // missing site

	evt := validEvent()
	evt.Stage = StageFetchDone // missing status class
	r.Emit(evt)

	require.Empty(t, sink.events)
}

func TestReporterSinkFailureDoesNotStopDelivery(t *testing.T) {
	failing := &recordingSink{err: errors.New("sink down")}
	healthy := &recordingSink{}
	r := NewReporter(context.Background(), zap.NewNop(), failing, healthy)

	r.Emit(validEvent())

	require.Len(t, healthy.events, 1)
}

func TestReporterCloseClosesSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	r := NewReporter(context.Background(), zap.NewNop(), a, b)

	require.NoError(t, r.Close(context.Background()))
	require.True(t, a.closed)
	require.True(t, b.closed)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want StatusClass
	}{
		{0, StatusNone},
		{200, Status2xx},
		{301, Status3xx},
		{404, Status4xx},
		{503, Status5xx},
		{999, StatusOther},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ClassifyStatus(tt.code), "code %d", tt.code)
	}
}

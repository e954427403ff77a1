package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/recipecorpus/harvester/internal/progress"
)

func TestPrometheusSinkCountsFetchesAndDocuments(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := uuid.New()
	base := progress.Event{RunID: runID, TS: time.Now().UTC(), Site: "povarenok"}

	fetchOK := base
	fetchOK.Stage = progress.StageFetchDone
	fetchOK.StatusClass = progress.Status2xx
	fetchOK.Bytes = 2048
	require.NoError(t, sink.Consume(context.Background(), fetchOK))
	require.NoError(t, sink.Consume(context.Background(), fetchOK))

	fetchMiss := base
	fetchMiss.Stage = progress.StageFetchDone
	fetchMiss.StatusClass = progress.Status4xx
	require.NoError(t, sink.Consume(context.Background(), fetchMiss))

	persisted := base
	persisted.Stage = progress.StageDocPersisted
	persisted.Found = 7
	require.NoError(t, sink.Consume(context.Background(), persisted))

	done := base
	done.Stage = progress.StageWalkDone
	require.NoError(t, sink.Consume(context.Background(), done))

	require.InDelta(t, 2, testutil.ToFloat64(sink.fetchAttempts.WithLabelValues("povarenok", "2xx")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(sink.fetchAttempts.WithLabelValues("povarenok", "4xx")), 1e-9)
	require.InDelta(t, 4096, testutil.ToFloat64(sink.fetchBytes.WithLabelValues("povarenok")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(sink.docsPersisted.WithLabelValues("povarenok")), 1e-9)
	require.InDelta(t, 7, testutil.ToFloat64(sink.walkFound.WithLabelValues("povarenok")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(sink.walksDone.WithLabelValues("povarenok", "success")), 1e-9)
}

func TestPrometheusSinkRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

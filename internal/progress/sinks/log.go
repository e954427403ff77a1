// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/recipecorpus/harvester/internal/progress"
)

// LogSink emits structured logs for the progress stream. It is the default
// sink for interactive runs.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields. Fetch completions are
// logged at debug level to keep per-attempt noise out of normal output.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID.String()),
		zap.String("site", evt.Site),
		zap.Int("attempts", evt.Attempts),
		zap.Int("found", evt.Found),
	}
	switch evt.Stage {
	case progress.StageFetchDone:
		s.logger.Debug("fetch done", append(fields,
			zap.Int64("id", evt.Identifier),
			zap.String("status_class", string(evt.StatusClass)),
			zap.Int64("bytes", evt.Bytes),
		)...)
	case progress.StageDocPersisted:
		s.logger.Info("document persisted", append(fields,
			zap.Int64("id", evt.Identifier),
			zap.String("url", evt.URL),
			zap.Int64("bytes", evt.Bytes),
		)...)
	case progress.StageWalkError:
		s.logger.Error("walk failed", append(fields, zap.String("note", evt.Note))...)
	default:
		s.logger.Info(string(evt.Stage), append(fields, zap.String("note", evt.Note))...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

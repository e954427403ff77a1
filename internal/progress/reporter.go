package progress

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Sink consumes progress events. Implementations must be safe for concurrent
// use; walkers for different sites emit from separate goroutines.
type Sink interface {
	Consume(ctx context.Context, evt Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events. Reporter satisfies this interface so
// walkers stay agnostic about where events end up.
type Emitter interface {
	Emit(evt Event)
}

// Reporter fans events out to its sinks synchronously. Harvest progress is
// low-volume (at most one event per rate-limited fetch), so no buffering or
// batching is needed; a failing sink is logged and never stops the walk.
type Reporter struct {
	sinks  []Sink
	logger *zap.Logger
	ctx    context.Context
}

// NewReporter wires the sinks to a Reporter. A nil logger is replaced with a
// no-op logger.
func NewReporter(ctx context.Context, logger *zap.Logger, sinks ...Sink) *Reporter {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
		ctx:    ctx,
	}
}

// Emit validates the event and delivers it to every sink. Invalid events are
// dropped with a debug log.
func (r *Reporter) Emit(evt Event) {
	if r == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		r.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	for _, sink := range r.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Consume(r.ctx, evt); err != nil {
			r.logger.Warn("progress sink consume failed", zap.Error(err))
		}
	}
}

// Close closes every sink, returning the first failure.
func (r *Reporter) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var firstErr error
	for _, sink := range r.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close progress sink: %w", err)
		}
	}
	return firstErr
}

// Package progress defines the events emitted by site walkers and the
// reporter that fans them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageWalkStart    Stage = "WALK_START"
	StageFetchDone    Stage = "FETCH_DONE"
	StageDocPersisted Stage = "DOC_PERSISTED"
	StageWalkDone     Stage = "WALK_DONE"
	StageWalkError    Stage = "WALK_ERROR"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported status classes tracked for fetch completions. StatusNone marks
// fetches that exhausted their transport retries without any HTTP response.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusNone  StatusClass = "none"
	StatusOther StatusClass = "other"
)

// Event captures a single milestone of harvest progress.
type Event struct {
	// RunID identifies the harvest invocation the event belongs to.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Site is the site key the walker is working on.
	Site string
	// Identifier is the candidate identifier, when the stage concerns one.
	Identifier int64
	// URL is the candidate URL, when the stage concerns one.
	URL string
	// Bytes carries the response size for fetch completions.
	Bytes int64
	// Attempts is the walker's running attempt counter.
	Attempts int
	// Found is the walker's running accepted-document count.
	Found int
	// StatusClass groups the HTTP response code for fetch completions.
	StatusClass StatusClass
	// Note attaches low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Site == "" {
		return errors.New("site is required")
	}
	switch e.Stage {
	case StageWalkStart, StageWalkDone, StageWalkError, StageDocPersisted:
	case StageFetchDone:
		if e.StatusClass == "" {
			return errors.New("fetch done requires status class")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}

// ClassifyStatus groups HTTP status codes for fetch events. Code zero means
// no response was obtained at all.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code == 0:
		return StatusNone
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}

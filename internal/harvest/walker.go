package harvest

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipecorpus/harvester/internal/progress"
)

// DoneReason explains why a walk terminated.
type DoneReason string

// Walk termination reasons. Only TargetReached means the site delivered the
// requested number of documents; the other two are safety bounds so a walk
// can never loop forever when the site's real document density is lower than
// assumed.
const (
	TargetReached      DoneReason = "target_reached"
	IdentifiersDrained DoneReason = "identifier_space_exhausted"
	AttemptsExhausted  DoneReason = "attempt_budget_exhausted"
)

// WalkResult summarizes one completed site walk.
type WalkResult struct {
	SiteKey  string
	Records  []DocumentRecord
	Found    int
	Attempts int
	Reason   DoneReason
}

// SiteWalker orchestrates one site's acquisition loop: it generates the
// identifier sequence, skips identifiers already in the ledger, drives
// Fetcher, Classifier, Extractor, and the stores, and throttles between
// attempts. A walker owns its SiteState exclusively; walkers for different
// sites share no mutable state.
type SiteWalker struct {
	siteKey string
	site    SiteConfig
	cfg     Config

	fetcher    Fetcher
	classifier Classifier
	extractor  Extractor
	ledger     MetadataStore
	artifacts  ArtifactStore
	reporter   progress.Emitter
	logger     *zap.Logger
	runID      uuid.UUID

	state    SiteState
	attempts int

	// sleep and rng are swappable so tests can run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
	rng   *rand.Rand
}

// NewSiteWalker loads the site's ledger and returns a walker ready to run.
// A corrupt ledger fails here, before any network traffic.
func NewSiteWalker(
	siteKey string,
	cfg Config,
	runID uuid.UUID,
	fetcher Fetcher,
	classifier Classifier,
	extractor Extractor,
	ledger MetadataStore,
	artifacts ArtifactStore,
	reporter progress.Emitter,
	logger *zap.Logger,
) (*SiteWalker, error) {
	site, ok := cfg.Sites[siteKey]
	if !ok {
		return nil, fmt.Errorf("site %s is not configured", siteKey)
	}
	state, err := ledger.Load(siteKey)
	if err != nil {
		return nil, fmt.Errorf("site %s: load ledger: %w", siteKey, err)
	}
	return &SiteWalker{
		siteKey:    siteKey,
		site:       site,
		cfg:        cfg,
		fetcher:    fetcher,
		classifier: classifier,
		extractor:  extractor,
		ledger:     ledger,
		artifacts:  artifacts,
		reporter:   reporter,
		logger:     logger.With(zap.String("site", siteKey)),
		runID:      runID,
		state:      state,
		sleep:      sleepWithContext,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Walk runs the acquisition loop until the target count is reached, the
// identifier space or attempt budget runs out, or the context is canceled.
// The returned error is fatal for this site: a write failure or
// cancellation, never a misbehaving remote page.
func (w *SiteWalker) Walk(ctx context.Context) (WalkResult, error) {
	w.logger.Info("walk starting",
		zap.Int64("start_id", w.site.StartID),
		zap.Int64("step", w.site.Step),
		zap.Int("resumed", len(w.state.Seen)),
		zap.Int("target", w.cfg.TargetPerSite),
	)
	w.emit(progress.Event{Stage: progress.StageWalkStart})

	id := w.site.StartID
	var reason DoneReason
	for {
		if done, why := w.finished(id); done {
			reason = why
			break
		}
		if _, seen := w.state.Seen[id]; seen {
			// Already in the ledger: skip without a fetch, a delay, or an
			// attempt so resumed runs never re-fetch known-good identifiers.
			id += w.site.Step
			continue
		}
		if err := ctx.Err(); err != nil {
			return w.result(""), err
		}
		if err := w.processCandidate(ctx, id); err != nil {
			w.emit(progress.Event{Stage: progress.StageWalkError, Note: err.Error()})
			return w.result(""), err
		}
		if w.attempts%w.cfg.ProgressEvery == 0 {
			w.logger.Info("walk progress",
				zap.Int("attempts", w.attempts),
				zap.Int("found", len(w.state.Seen)),
			)
		}
		if err := w.throttle(ctx); err != nil {
			return w.result(""), err
		}
		id += w.site.Step
	}

	w.logger.Info("walk finished",
		zap.String("reason", string(reason)),
		zap.Int("attempts", w.attempts),
		zap.Int("found", len(w.state.Seen)),
	)
	w.emit(progress.Event{Stage: progress.StageWalkDone, Note: string(reason)})
	return w.result(reason), nil
}

func (w *SiteWalker) finished(id int64) (bool, DoneReason) {
	switch {
	case len(w.state.Seen) >= w.cfg.TargetPerSite:
		return true, TargetReached
	case id <= 0 && w.site.Step < 0:
		return true, IdentifiersDrained
	case w.attempts >= w.cfg.MaxAttemptsPerSite:
		return true, AttemptsExhausted
	default:
		return false, ""
	}
}

// processCandidate runs one fetch-classify-persist iteration for id. Remote
// misbehavior (retry exhaustion, error statuses, rejected content) is a
// non-event: the identifier stays out of the seen-set so a future run can
// try it again. Only local persistence failures are returned as errors.
func (w *SiteWalker) processCandidate(ctx context.Context, id int64) error {
	url := w.site.URLFor(id)
	res, err := w.fetcher.Fetch(ctx, url)
	w.attempts++
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Debug("candidate unreachable", zap.Int64("id", id), zap.Error(err))
		w.emit(progress.Event{
			Stage:       progress.StageFetchDone,
			Identifier:  id,
			URL:         url,
			StatusClass: progress.StatusNone,
		})
		return nil
	}
	w.emit(progress.Event{
		Stage:       progress.StageFetchDone,
		Identifier:  id,
		URL:         url,
		Bytes:       int64(len(res.Body)),
		StatusClass: progress.ClassifyStatus(res.StatusCode),
	})

	if res.StatusCode != http.StatusOK || len(res.Body) == 0 {
		return nil
	}
	if !w.classifier.IsLikelyRecipe(res.Body, w.siteKey) {
		return nil
	}
	if err := w.persist(id, url, res); err != nil {
		return fmt.Errorf("site %s: persist id %d: %w", w.siteKey, id, err)
	}
	return nil
}

// persist writes both artifact files, appends the ledger entry, and only
// then updates the in-memory state. The ledger append is durable before the
// walker proceeds, so a crash after it never loses the record and a crash
// before it never leaves a half-written entry for the identifier. Artifacts
// are written first: a ledger entry implies both files exist.
func (w *SiteWalker) persist(id int64, url string, res FetchResult) error {
	rawPath, err := w.artifacts.SaveRaw(w.siteKey, id, res.Body)
	if err != nil {
		return err
	}
	text := w.extractor.ExtractText(res.Body)
	textPath, err := w.artifacts.SaveText(w.siteKey, id, text)
	if err != nil {
		return err
	}
	rec := DocumentRecord{
		ID:            id,
		URL:           url,
		RawPath:       rawPath,
		TextPath:      textPath,
		RawSizeBytes:  int64(len(res.Body)),
		TextSizeBytes: int64(len(text)),
		WordCount:     len(strings.Fields(text)),
		StatusCode:    res.StatusCode,
	}
	if err := w.ledger.Append(w.siteKey, rec); err != nil {
		return err
	}
	w.state.Add(rec)
	w.emit(progress.Event{
		Stage:      progress.StageDocPersisted,
		Identifier: id,
		URL:        url,
		Bytes:      rec.RawSizeBytes,
	})
	return nil
}

// throttle sleeps for a duration drawn uniformly from the configured delay
// range. Rate limiting applies to every attempt, not only accepted ones.
func (w *SiteWalker) throttle(ctx context.Context) error {
	delay := w.cfg.DelayMin
	if span := w.cfg.DelayMax - w.cfg.DelayMin; span > 0 {
		delay += time.Duration(w.rng.Int63n(int64(span) + 1))
	}
	return w.sleep(ctx, delay)
}

func (w *SiteWalker) emit(evt progress.Event) {
	if w.reporter == nil {
		return
	}
	evt.RunID = w.runID
	evt.TS = time.Now().UTC()
	evt.Site = w.siteKey
	evt.Attempts = w.attempts
	evt.Found = len(w.state.Seen)
	w.reporter.Emit(evt)
}

func (w *SiteWalker) result(reason DoneReason) WalkResult {
	return WalkResult{
		SiteKey:  w.siteKey,
		Records:  w.state.Records,
		Found:    len(w.state.Seen),
		Attempts: w.attempts,
		Reason:   reason,
	}
}

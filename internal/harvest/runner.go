package harvest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/recipecorpus/harvester/internal/progress"
)

// Runner drives one SiteWalker per configured site and aggregates their
// results into the summary outputs. Sites run concurrently: each walker owns
// a disjoint ledger and identifier space, so they share no mutable state.
type Runner struct {
	cfg        Config
	fetcher    Fetcher
	classifier Classifier
	extractor  Extractor
	ledger     MetadataStore
	artifacts  ArtifactStore
	reporter   progress.Emitter
	logger     *zap.Logger
	out        io.Writer
}

// NewRunner builds a Runner with the default component implementations.
func NewRunner(cfg Config, reporter progress.Emitter, logger *zap.Logger) (*Runner, error) {
	fetcher, err := NewCollyFetcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}
	ledger, err := NewFileLedger(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	artifacts, err := NewFileArtifactStore(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init artifact store: %w", err)
	}
	return &Runner{
		cfg:        cfg,
		fetcher:    fetcher,
		classifier: NewKeywordClassifier(cfg.MinBodyBytes, cfg.LongBodyBytes, cfg.Keywords),
		extractor:  NewHTMLExtractor(),
		ledger:     ledger,
		artifacts:  artifacts,
		reporter:   reporter,
		logger:     logger,
		out:        os.Stdout,
	}, nil
}

// Run walks every configured site and writes the per-site and cross-site
// summaries. The first fatal site error cancels the remaining walks and is
// returned with the failing site in its chain.
func (r *Runner) Run(ctx context.Context) error {
	runID := uuid.New()
	r.logger.Info("harvest starting",
		zap.String("run_id", runID.String()),
		zap.Strings("sites", r.cfg.SiteKeys()),
		zap.Int("target_per_site", r.cfg.TargetPerSite),
	)
	if err := r.ensureSiteDirs(); err != nil {
		return err
	}

	var mu sync.Mutex
	overall := make(map[string]SiteSummary, len(r.cfg.Sites))

	g, gctx := errgroup.WithContext(ctx)
	for _, siteKey := range r.cfg.SiteKeys() {
		g.Go(func() error {
			summary, err := r.walkSite(gctx, siteKey, runID)
			if err != nil {
				return err
			}
			mu.Lock()
			overall[siteKey] = summary
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := WriteOverallSummary(r.cfg.OutputDir, overall); err != nil {
		return err
	}
	r.logger.Info("harvest finished",
		zap.String("run_id", runID.String()),
		zap.String("output_dir", r.cfg.OutputDir),
	)
	return nil
}

func (r *Runner) walkSite(ctx context.Context, siteKey string, runID uuid.UUID) (SiteSummary, error) {
	walker, err := NewSiteWalker(
		siteKey, r.cfg, runID,
		r.fetcher, r.classifier, r.extractor,
		r.ledger, r.artifacts, r.reporter, r.logger,
	)
	if err != nil {
		return SiteSummary{}, err
	}
	result, err := walker.Walk(ctx)
	if err != nil {
		return SiteSummary{}, fmt.Errorf("site %s: walk: %w", siteKey, err)
	}

	stats := ComputeStats(result.Records)
	if err := WriteSiteSummary(r.cfg.OutputDir, siteKey, result.Records, stats); err != nil {
		return SiteSummary{}, fmt.Errorf("site %s: write summary: %w", siteKey, err)
	}
	RenderStatsTable(r.out, siteKey, stats)
	r.logger.Info("site completed",
		zap.String("site", siteKey),
		zap.String("reason", string(result.Reason)),
		zap.Int("found", result.Found),
		zap.Int("attempts", result.Attempts),
	)
	return SiteSummary{MetaCount: len(result.Records), Stats: stats}, nil
}

// ensureSiteDirs bootstraps the per-site raw/text/meta directories so every
// walker starts with a writable layout.
func (r *Runner) ensureSiteDirs() error {
	for _, siteKey := range r.cfg.SiteKeys() {
		for _, sub := range []string{"raw", "text", "meta"} {
			dir := filepath.Join(r.cfg.OutputDir, siteKey, sub)
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create output dir %s: %w", dir, err)
			}
		}
	}
	return nil
}

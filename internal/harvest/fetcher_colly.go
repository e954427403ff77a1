package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyFetcher implements Fetcher on top of a Colly collector. Each Fetch
// clones the base collector, so one instance is safe to share between site
// walkers.
//
// Only transport-level failures (timeout, refused connection, DNS) are
// retried, with the wait multiplying by the backoff factor after every
// failed attempt. Reachable-but-rejected responses are returned as-is.
type CollyFetcher struct {
	base          *colly.Collector
	maxRetries    int
	backoffBase   time.Duration
	backoffFactor float64
	logger        *zap.Logger

	// sleep is swappable so tests can observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) (*CollyFetcher, error) {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	// Retries and resumed runs revisit the same URL on purpose.
	base.AllowURLRevisit = true
	// Non-2xx pages must flow through OnResponse so the walker sees the
	// status and body instead of a synthetic error.
	base.ParseHTTPErrorResponse = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &CollyFetcher{
		base:          base,
		maxRetries:    cfg.MaxRetries,
		backoffBase:   cfg.BackoffBase,
		backoffFactor: cfg.BackoffFactor,
		logger:        logger,
		sleep:         sleepWithContext,
	}, nil
}

// Fetch retrieves rawURL, retrying transport failures up to the configured
// ceiling. The returned error means every attempt failed at the transport
// level; callers treat that as a skipped identifier, not a fatal condition.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (FetchResult, error) {
	wait := f.backoffBase
	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return FetchResult{}, err
		}
		res, err := f.visit(rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		f.logger.Debug("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == f.maxRetries {
			break
		}
		if serr := f.sleep(ctx, wait); serr != nil {
			return FetchResult{}, serr
		}
		wait = time.Duration(float64(wait) * f.backoffFactor)
	}
	return FetchResult{}, fmt.Errorf("fetch %s: %d attempts exhausted: %w", rawURL, f.maxRetries, lastErr)
}

func (f *CollyFetcher) visit(rawURL string) (FetchResult, error) {
	collector := f.base.Clone()
	resultCh := make(chan visitResult, 1)
	var once sync.Once
	send := func(res visitResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(visitResult{res: FetchResult{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(visitResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return FetchResult{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		return res.res, res.err
	default:
		return FetchResult{}, errors.New("fetch produced no result")
	}
}

type visitResult struct {
	res FetchResult
	err error
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package harvest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSiteKey = "testsite"

// scriptedFetcher serves canned results per URL and records every call.
type scriptedFetcher struct {
	mu      sync.Mutex
	results map[string]FetchResult
	errs    map[string]error
	calls   []string
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		results: make(map[string]FetchResult),
		errs:    make(map[string]error),
	}
}

func (f *scriptedFetcher) Fetch(_ context.Context, url string) (FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return FetchResult{}, err
	}
	if res, ok := f.results[url]; ok {
		return res, nil
	}
	return FetchResult{StatusCode: http.StatusNotFound, Body: []byte("not found")}, nil
}

func (f *scriptedFetcher) called(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == url {
			return true
		}
	}
	return false
}

// recipeBody builds a body that the test classifier accepts.
func recipeBody() []byte {
	return []byte("<html><body><p>рецепт " + strings.Repeat("вкусно ", 20) + "</p></body></html>")
}

func walkerConfig(dir string, target int) Config {
	return Config{
		Sites: map[string]SiteConfig{
			testSiteKey: {Pattern: "http://recipes.test/show/{id}", StartID: 100, Step: -1},
		},
		TargetPerSite:      target,
		MaxAttemptsPerSite: 1000,
		ProgressEvery:      1000,
		DelayMin:           0,
		DelayMax:           0,
		OutputDir:          dir,
	}
}

func newTestWalker(t *testing.T, cfg Config, fetcher Fetcher) (*SiteWalker, *FileLedger) {
	t.Helper()
	ledger, err := NewFileLedger(cfg.OutputDir)
	require.NoError(t, err)
	artifacts, err := NewFileArtifactStore(cfg.OutputDir)
	require.NoError(t, err)
	w, err := NewSiteWalker(
		testSiteKey, cfg, uuid.New(),
		fetcher,
		NewKeywordClassifier(10, 5000, []string{"рецепт"}),
		NewHTMLExtractor(),
		ledger, artifacts, nil, zap.NewNop(),
	)
	require.NoError(t, err)
	return w, ledger
}

func acceptIDs(cfg Config, fetcher *scriptedFetcher, ids ...int64) {
	site := cfg.Sites[testSiteKey]
	for _, id := range ids {
		fetcher.results[site.URLFor(id)] = FetchResult{StatusCode: http.StatusOK, Body: recipeBody()}
	}
}

func TestWalkerStopsAtTargetCount(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 3)
	fetcher := newScriptedFetcher()
	acceptIDs(cfg, fetcher, 100, 97, 94)

	w, ledger := newTestWalker(t, cfg, fetcher)
	result, err := w.Walk(context.Background())
	require.NoError(t, err)

	require.Equal(t, TargetReached, result.Reason)
	require.Equal(t, 3, result.Found)
	// Candidates 100 down to 94 inclusive are fetched; the walk stops as
	// soon as the third acceptance lands.
	require.Equal(t, 7, result.Attempts)
	require.Len(t, result.Records, 3)

	state, err := ledger.Load(testSiteKey)
	require.NoError(t, err)
	require.Len(t, state.Records, 3)
	require.Contains(t, state.Seen, int64(100))
	require.Contains(t, state.Seen, int64(97))
	require.Contains(t, state.Seen, int64(94))
}

func TestWalkerResumeNeverRefetchesSeenIdentifiers(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 2)
	first := newScriptedFetcher()
	acceptIDs(cfg, first, 100, 99)

	w1, _ := newTestWalker(t, cfg, first)
	result1, err := w1.Walk(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result1.Found)

	// Second run against the same ledger with a higher target: the seen-set
	// loaded from disk must gate re-fetching exactly.
	cfg.TargetPerSite = 3
	second := newScriptedFetcher()
	acceptIDs(cfg, second, 100, 99, 98)

	w2, ledger := newTestWalker(t, cfg, second)
	result2, err := w2.Walk(context.Background())
	require.NoError(t, err)

	site := cfg.Sites[testSiteKey]
	require.False(t, second.called(site.URLFor(100)), "identifier 100 was already in the ledger")
	require.False(t, second.called(site.URLFor(99)), "identifier 99 was already in the ledger")
	require.True(t, second.called(site.URLFor(98)))
	require.Equal(t, 1, result2.Attempts)

	state, err := ledger.Load(testSiteKey)
	require.NoError(t, err)
	require.Len(t, state.Seen, 3, "no duplicate records for resumed identifiers")
	require.Len(t, state.Records, 3)
}

func TestWalkerRejectedIdentifiersStayUnseen(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 1)
	fetcher := newScriptedFetcher()
	site := cfg.Sites[testSiteKey]
	// 100 is a transport failure, 99 is a 404, 98 is accepted.
	fetcher.errs[site.URLFor(100)] = errors.New("fetch http://recipes.test/show/100: 3 attempts exhausted: dial timeout")
	acceptIDs(cfg, fetcher, 98)

	w, ledger := newTestWalker(t, cfg, fetcher)
	result, err := w.Walk(context.Background())
	require.NoError(t, err, "retry exhaustion is a skipped identifier, not a walk failure")
	require.Equal(t, TargetReached, result.Reason)
	require.Equal(t, 3, result.Attempts)

	state, err := ledger.Load(testSiteKey)
	require.NoError(t, err)
	require.NotContains(t, state.Seen, int64(100), "failed fetches can be retried in a future run")
	require.NotContains(t, state.Seen, int64(99), "rejected pages can be retried in a future run")
	require.Contains(t, state.Seen, int64(98))
}

func TestWalkerStopsWhenIdentifierSpaceDrains(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 5)
	cfg.Sites[testSiteKey] = SiteConfig{Pattern: "http://recipes.test/show/{id}", StartID: 3, Step: -1}
	fetcher := newScriptedFetcher() // everything 404s

	w, _ := newTestWalker(t, cfg, fetcher)
	result, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Equal(t, IdentifiersDrained, result.Reason)
	require.Equal(t, 3, result.Attempts, "identifiers 3, 2, 1 are tried; 0 is never fetched")
	require.Zero(t, result.Found)
}

func TestWalkerStopsAtAttemptBudget(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 5)
	cfg.MaxAttemptsPerSite = 5
	fetcher := newScriptedFetcher() // everything 404s

	w, _ := newTestWalker(t, cfg, fetcher)
	result, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Equal(t, AttemptsExhausted, result.Reason)
	require.Equal(t, 5, result.Attempts)
	require.Zero(t, result.Found)
}

func TestWalkerThrottlesEveryAttempt(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 2)
	cfg.DelayMin = 5 * time.Millisecond
	cfg.DelayMax = 10 * time.Millisecond
	fetcher := newScriptedFetcher()
	acceptIDs(cfg, fetcher, 100, 98) // 99 is rejected in between

	w, _ := newTestWalker(t, cfg, fetcher)
	var delays []time.Duration
	w.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	result, err := w.Walk(context.Background())
	require.NoError(t, err)
	require.Len(t, delays, result.Attempts, "rate limiting applies to every attempt, accepted or not")
	for _, d := range delays {
		require.GreaterOrEqual(t, d, cfg.DelayMin)
		require.LessOrEqual(t, d, cfg.DelayMax)
	}
}

type failingArtifactStore struct{}

func (failingArtifactStore) SaveRaw(string, int64, []byte) (string, error) {
	return "", errors.New("disk full")
}

func (failingArtifactStore) SaveText(string, int64, string) (string, error) {
	return "", errors.New("disk full")
}

func TestWalkerAbortsOnPersistFailure(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 1)
	fetcher := newScriptedFetcher()
	acceptIDs(cfg, fetcher, 100)

	ledger, err := NewFileLedger(cfg.OutputDir)
	require.NoError(t, err)
	w, err := NewSiteWalker(
		testSiteKey, cfg, uuid.New(),
		fetcher,
		NewKeywordClassifier(10, 5000, []string{"рецепт"}),
		NewHTMLExtractor(),
		ledger, failingArtifactStore{}, nil, zap.NewNop(),
	)
	require.NoError(t, err)

	_, err = w.Walk(context.Background())
	require.Error(t, err, "losing an accepted document must abort the walk")
	require.Contains(t, err.Error(), testSiteKey)
	require.Contains(t, err.Error(), "disk full")
}

func TestWalkerFailsFastOnCorruptLedger(t *testing.T) {
	cfg := walkerConfig(t.TempDir(), 1)
	ledger, err := NewFileLedger(cfg.OutputDir)
	require.NoError(t, err)
	require.NoError(t, ledger.Append(testSiteKey, testRecord(100)))
	require.NoError(t, ledger.Append(testSiteKey, testRecord(100))) // duplicate ⇒ corrupt

	artifacts, err := NewFileArtifactStore(cfg.OutputDir)
	require.NoError(t, err)
	_, err = NewSiteWalker(
		testSiteKey, cfg, uuid.New(),
		newScriptedFetcher(),
		NewKeywordClassifier(10, 5000, []string{"рецепт"}),
		NewHTMLExtractor(),
		ledger, artifacts, nil, zap.NewNop(),
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "load ledger")
}

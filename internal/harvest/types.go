// Package harvest implements the resumable corpus acquisition engine: the
// per-site identifier walk that fetches candidate pages, classifies them,
// extracts text, and persists accepted documents to a crash-safe ledger.
package harvest

import (
	"fmt"
	"strconv"
	"strings"
)

// IDPlaceholder is the token in a site URL pattern replaced by the candidate
// identifier.
const IDPlaceholder = "{id}"

// SiteConfig describes one site's identifier walk. It is immutable after
// startup; the sign of Step determines the walk direction.
type SiteConfig struct {
	// Pattern is the URL template containing exactly one IDPlaceholder.
	Pattern string `mapstructure:"pattern"`
	// StartID is the first candidate identifier.
	StartID int64 `mapstructure:"start_id"`
	// Step is added to the identifier after every candidate. Must be nonzero.
	Step int64 `mapstructure:"step"`
}

// Validate checks the site configuration for obviously bad values.
func (s SiteConfig) Validate() error {
	if !strings.Contains(s.Pattern, IDPlaceholder) {
		return fmt.Errorf("pattern %q must contain the %s placeholder", s.Pattern, IDPlaceholder)
	}
	if strings.Count(s.Pattern, IDPlaceholder) != 1 {
		return fmt.Errorf("pattern %q must contain exactly one %s placeholder", s.Pattern, IDPlaceholder)
	}
	if s.Step == 0 {
		return fmt.Errorf("step must be nonzero")
	}
	if s.StartID <= 0 {
		return fmt.Errorf("start_id must be > 0")
	}
	return nil
}

// URLFor substitutes the identifier into the site's URL pattern.
func (s SiteConfig) URLFor(id int64) string {
	return strings.Replace(s.Pattern, IDPlaceholder, strconv.FormatInt(id, 10), 1)
}

// FetchResult is the outcome of a reachable HTTP exchange. Non-2xx statuses
// are delivered here as-is; transport-level failure is reported as an error
// by the Fetcher instead.
type FetchResult struct {
	StatusCode int
	Body       []byte
}

// DocumentRecord is the ledger entry for one accepted document. Records are
// created exactly once and never mutated; the identifier is unique within a
// site. Field names match the on-disk JSONL ledger format.
type DocumentRecord struct {
	ID            int64  `json:"id"`
	URL           string `json:"url"`
	RawPath       string `json:"raw_path"`
	TextPath      string `json:"text_path"`
	RawSizeBytes  int64  `json:"raw_size_bytes"`
	TextSizeBytes int64  `json:"text_size_bytes"`
	WordCount     int    `json:"word_count"`
	StatusCode    int    `json:"status_code"`
}

// SiteState is the in-memory view of a site's ledger, rebuilt on every run
// by replaying the persisted records. It is owned by a single SiteWalker.
type SiteState struct {
	Seen    map[int64]struct{}
	Records []DocumentRecord
}

// NewSiteState returns an empty state ready for replay.
func NewSiteState() SiteState {
	return SiteState{Seen: make(map[int64]struct{})}
}

// Add appends a record and marks its identifier as seen.
func (s *SiteState) Add(rec DocumentRecord) {
	s.Seen[rec.ID] = struct{}{}
	s.Records = append(s.Records, rec)
}

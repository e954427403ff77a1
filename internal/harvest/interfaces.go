package harvest

import "context"

// Fetcher retrieves a URL with retry and backoff. A returned error means the
// transport failed on every attempt; HTTP error statuses are not errors and
// come back inside the FetchResult.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// Classifier decides whether a fetched body is likely a genuine recipe page.
// Implementations must be pure and tolerate arbitrary malformed markup.
type Classifier interface {
	IsLikelyRecipe(body []byte, siteKey string) bool
}

// Extractor converts raw markup into normalized plain text. Extraction is
// best-effort; an empty string is a valid, non-error outcome.
type Extractor interface {
	ExtractText(raw []byte) string
}

// MetadataStore is the append-only, crash-resumable ledger of accepted
// documents for a site.
type MetadataStore interface {
	// Load replays the site's ledger. A missing ledger yields an empty state;
	// a malformed line is an error, never silently skipped.
	Load(siteKey string) (SiteState, error)
	// Append durably writes one record before returning.
	Append(siteKey string, rec DocumentRecord) error
}

// ArtifactStore persists the raw and extracted-text artifacts for an
// accepted identifier and reports where they landed.
type ArtifactStore interface {
	SaveRaw(siteKey string, id int64, body []byte) (string, error)
	SaveText(siteKey string, id int64, text string) (string, error)
}

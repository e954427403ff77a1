package harvest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ledgerFile is the per-site ledger name, one JSON record per line.
const ledgerFile = "meta.jsonl"

// FileLedger implements MetadataStore on the local filesystem. Each site's
// ledger lives at <root>/<site>/meta/meta.jsonl and is both the run's output
// and its crash-recovery source of truth.
type FileLedger struct {
	root string
}

// NewFileLedger returns a ledger rooted at dir.
func NewFileLedger(root string) (*FileLedger, error) {
	if root == "" {
		return nil, fmt.Errorf("ledger root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create ledger root %s: %w", root, err)
	}
	return &FileLedger{root: root}, nil
}

// Load replays the site's ledger into a fresh SiteState. A missing ledger is
// an empty state. A line that fails to parse is a data-integrity error: the
// seen-set gates re-fetching, so a silently truncated replay could produce
// duplicate records.
func (l *FileLedger) Load(siteKey string) (SiteState, error) {
	state := NewSiteState()
	path := l.path(siteKey)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		return SiteState{}, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec DocumentRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return SiteState{}, fmt.Errorf("ledger %s corrupt at line %d: %w", path, lineNo, err)
		}
		if _, dup := state.Seen[rec.ID]; dup {
			return SiteState{}, fmt.Errorf("ledger %s corrupt at line %d: duplicate identifier %d", path, lineNo, rec.ID)
		}
		state.Add(rec)
	}
	if err := scanner.Err(); err != nil {
		return SiteState{}, fmt.Errorf("read ledger %s: %w", path, err)
	}
	return state, nil
}

// Append durably writes one record to the site's ledger. The file is synced
// before returning so a crash immediately afterward never loses the record.
func (l *FileLedger) Append(siteKey string, rec DocumentRecord) error {
	path := l.path(siteKey)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create ledger dir for %s: %w", path, err)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %d: %w", rec.ID, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", path, err)
	}
	if _, err := f.Write(append(payload, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append ledger %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger %s: %w", path, err)
	}
	return nil
}

func (l *FileLedger) path(siteKey string) string {
	return filepath.Join(l.root, siteKey, "meta", ledgerFile)
}

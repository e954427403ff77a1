package harvest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SiteSummary is one site's entry in the cross-site summary object.
type SiteSummary struct {
	MetaCount int          `json:"meta_count"`
	Stats     SummaryStats `json:"stats"`
}

// overallSummaryFile maps site key to SiteSummary at the output root.
const overallSummaryFile = "overall_summary.json"

// csvHeader matches the ledger's JSON field names so the tabular export and
// the ledger stay column-compatible.
var csvHeader = []string{
	"id", "url", "raw_path", "text_path",
	"raw_size_bytes", "text_size_bytes", "word_count", "status_code",
}

// WriteSiteSummary exports a site's records as <site>_meta.csv and its stats
// as <site>_stats.json under the site directory.
func WriteSiteSummary(root, siteKey string, records []DocumentRecord, stats SummaryStats) error {
	siteDir := filepath.Join(root, siteKey)
	if err := os.MkdirAll(siteDir, 0o750); err != nil {
		return fmt.Errorf("create site dir %s: %w", siteDir, err)
	}
	if err := writeCSV(filepath.Join(siteDir, siteKey+"_meta.csv"), records); err != nil {
		return err
	}
	statsPath := filepath.Join(siteDir, siteKey+"_stats.json")
	payload, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats for %s: %w", siteKey, err)
	}
	if err := os.WriteFile(statsPath, payload, 0o600); err != nil {
		return fmt.Errorf("write stats %s: %w", statsPath, err)
	}
	return nil
}

// WriteOverallSummary writes the cross-site summary object at the output
// root.
func WriteOverallSummary(root string, overall map[string]SiteSummary) error {
	payload, err := json.MarshalIndent(overall, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal overall summary: %w", err)
	}
	path := filepath.Join(root, overallSummaryFile)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write overall summary %s: %w", path, err)
	}
	return nil
}

// RenderStatsTable writes a human-readable stats table for one site.
func RenderStatsTable(w io.Writer, siteKey string, stats SummaryStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(siteKey)
	t.AppendHeader(table.Row{"metric", "raw bytes", "text bytes", "words"})
	t.AppendRows([]table.Row{
		{"total", stats.TotalRawBytes, stats.TotalTextBytes, stats.TotalWords},
		{"average", fmtFloat(stats.AvgRawBytes), fmtFloat(stats.AvgTextBytes), fmtFloat(stats.AvgWords)},
		{"median", fmtFloat(stats.MedianRawBytes), fmtFloat(stats.MedianTextBytes), fmtFloat(stats.MedianWords)},
	})
	t.AppendFooter(table.Row{"documents", stats.NumDocuments, "", ""})
	t.Render()
}

func writeCSV(path string, records []DocumentRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.URL,
			rec.RawPath,
			rec.TextPath,
			strconv.FormatInt(rec.RawSizeBytes, 10),
			strconv.FormatInt(rec.TextSizeBytes, 10),
			strconv.Itoa(rec.WordCount),
			strconv.Itoa(rec.StatusCode),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row for id %d: %w", rec.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv %s: %w", path, err)
	}
	return f.Sync()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

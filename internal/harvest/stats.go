package harvest

import "sort"

// SummaryStats is derived from the full record sequence of a site. It is
// never persisted incrementally: every computation is a full recompute, so
// it self-heals from partial runs.
type SummaryStats struct {
	NumDocuments    int     `json:"num_documents"`
	TotalRawBytes   int64   `json:"total_raw_bytes"`
	TotalTextBytes  int64   `json:"total_text_bytes"`
	TotalWords      int64   `json:"total_words"`
	AvgRawBytes     float64 `json:"avg_raw_bytes"`
	AvgTextBytes    float64 `json:"avg_text_bytes"`
	AvgWords        float64 `json:"avg_words"`
	MedianRawBytes  float64 `json:"median_raw_bytes"`
	MedianTextBytes float64 `json:"median_text_bytes"`
	MedianWords     float64 `json:"median_words"`
}

// ComputeStats derives summary statistics from records. An empty slice
// yields all-zero stats.
func ComputeStats(records []DocumentRecord) SummaryStats {
	rawSizes := make([]int64, len(records))
	textSizes := make([]int64, len(records))
	words := make([]int64, len(records))
	for i, rec := range records {
		rawSizes[i] = rec.RawSizeBytes
		textSizes[i] = rec.TextSizeBytes
		words[i] = int64(rec.WordCount)
	}
	return SummaryStats{
		NumDocuments:    len(records),
		TotalRawBytes:   sum(rawSizes),
		TotalTextBytes:  sum(textSizes),
		TotalWords:      sum(words),
		AvgRawBytes:     avg(rawSizes),
		AvgTextBytes:    avg(textSizes),
		AvgWords:        avg(words),
		MedianRawBytes:  median(rawSizes),
		MedianTextBytes: median(textSizes),
		MedianWords:     median(words),
	}
}

func sum(values []int64) int64 {
	var total int64
	for _, v := range values {
		total += v
	}
	return total
}

func avg(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	return float64(sum(values)) / float64(len(values))
}

// median returns the middle value, averaging the two middle values for
// even-length input.
func median(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// Package cli provides CLI output helpers for Omoide.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
	for rank, result := range response.Results {
		fmt.Fprintf(w, "%2d. %s\n", rank+1, result.FilePath)
		fmt.Fprintf(w, "    %s | similarity %.3f | added %s\n",
			result.FileType, result.Similarity, result.AddedAt.Format("2006-01-02 15:04"))
	}
	if len(response.Results) > 0 {
		fmt.Fprintln(w)
	}
}

// WriteStats writes index statistics to w in the given format.
func WriteStats(w io.Writer, stats map[string]interface{}, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintln(w, "Index statistics:")
	for _, key := range []string{"total", "images", "videos", "dimensions", "cataloged_files", "organized_files"} {
		if v, ok := stats[key]; ok {
			fmt.Fprintf(w, "  %-16s %v\n", key, v)
		}
	}
	if v, ok := stats["disk_usage_bytes"]; ok {
		fmt.Fprintf(w, "  %-16s %s\n", "disk usage", formatStatBytes(v))
	}
	return nil
}

// formatStatBytes renders a byte count that may arrive as int64 (direct mode)
// or float64 (decoded JSON from the server).
func formatStatBytes(v interface{}) string {
	var n int64
	switch b := v.(type) {
	case int64:
		n = b
	case float64:
		n = int64(b)
	case int:
		n = int64(b)
	default:
		return fmt.Sprintf("%v", v)
	}
	return utils.FormatBytes(n)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

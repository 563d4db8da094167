package orchestrator

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/ouchmyfoot/legopile/internal/config"
	"github.com/ouchmyfoot/legopile/internal/pipeline"
	"github.com/ouchmyfoot/legopile/internal/source"
	"github.com/ouchmyfoot/legopile/internal/util"
)

// RunResult is the machine-readable outcome of a reduce run.
type RunResult struct {
	RunID           string        `json:"run_id"`
	Status          string        `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     time.Time     `json:"completed_at"`
	DurationSeconds float64       `json:"duration_seconds"`
	RawDir          string        `json:"raw_dir"`
	OutputPath      string        `json:"output_path"`
	Catalog         CatalogCounts `json:"catalog"`
	RowsRead        int64         `json:"rows_read"`
	RowsWritten     int64         `json:"rows_written"`
	RowsExcluded    int64         `json:"rows_excluded"`
	RowsDropped     DroppedCounts `json:"rows_dropped"`
	Truncated       bool          `json:"truncated"`
	RowsPerSecond   float64       `json:"rows_per_second"`
}

// CatalogCounts reports dimension table sizes.
type CatalogCounts struct {
	Colors     int `json:"colors"`
	Parts      int `json:"parts"`
	Categories int `json:"categories"`
}

// DroppedCounts reports dropped fact rows by reason.
type DroppedCounts struct {
	Total           int64 `json:"total"`
	Malformed       int64 `json:"malformed"`
	UnknownPart     int64 `json:"unknown_part"`
	UnknownColor    int64 `json:"unknown_color"`
	UnknownCategory int64 `json:"unknown_category"`
	Incomplete      int64 `json:"incomplete"`
}

func newRunResult(runID string, cfg *config.Config, outputPath string,
	cat *source.Catalog, stats *pipeline.Stats, started, completed time.Time) *RunResult {

	secs := completed.Sub(started).Seconds()
	var rate float64
	if secs > 0 {
		rate = float64(stats.RowsWritten) / secs
	}

	return &RunResult{
		RunID:           runID,
		Status:          "complete",
		StartedAt:       started,
		CompletedAt:     completed,
		DurationSeconds: secs,
		RawDir:          cfg.RawDir,
		OutputPath:      outputPath,
		Catalog: CatalogCounts{
			Colors:     len(cat.Colors),
			Parts:      len(cat.Parts),
			Categories: len(cat.Categories),
		},
		RowsRead:     stats.RowsRead,
		RowsWritten:  stats.RowsWritten,
		RowsExcluded: stats.Excluded,
		RowsDropped: DroppedCounts{
			Total:           stats.Drops.Total(),
			Malformed:       stats.Drops.Malformed,
			UnknownPart:     stats.Drops.UnknownPart,
			UnknownColor:    stats.Drops.UnknownColor,
			UnknownCategory: stats.Drops.UnknownCategory,
			Incomplete:      stats.Drops.Incomplete,
		},
		Truncated:     stats.Truncated,
		RowsPerSecond: rate,
	}
}

// PrintSummary writes a human-readable run summary to stdout.
func PrintSummary(r *RunResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	bold.Println("Run summary")
	fmt.Printf("  run id:        %s\n", r.RunID)
	fmt.Printf("  output:        %s\n", r.OutputPath)
	fmt.Printf("  catalog:       %s colors, %s parts, %s categories\n",
		util.FormatCount(int64(r.Catalog.Colors)),
		util.FormatCount(int64(r.Catalog.Parts)),
		util.FormatCount(int64(r.Catalog.Categories)))
	fmt.Printf("  rows read:     %s\n", util.FormatCount(r.RowsRead))
	fmt.Printf("  rows written:  %s\n", util.FormatCount(r.RowsWritten))
	fmt.Printf("  rows excluded: %s\n", util.FormatCount(r.RowsExcluded))
	if r.RowsDropped.Total > 0 {
		yellow.Printf("  rows dropped:  %s (malformed %s, unknown part %s, unknown color %s, unknown category %s, incomplete %s)\n",
			util.FormatCount(r.RowsDropped.Total),
			util.FormatCount(r.RowsDropped.Malformed),
			util.FormatCount(r.RowsDropped.UnknownPart),
			util.FormatCount(r.RowsDropped.UnknownColor),
			util.FormatCount(r.RowsDropped.UnknownCategory),
			util.FormatCount(r.RowsDropped.Incomplete))
	} else {
		fmt.Printf("  rows dropped:  0\n")
	}
	if r.Truncated {
		yellow.Printf("  truncated:     yes (row cap reached)\n")
	}
	fmt.Printf("  duration:      %.1fs (%.0f rows/sec)\n", r.DurationSeconds, r.RowsPerSecond)
	green.Printf("\nWrote %s rows to %s\n", util.FormatCount(r.RowsWritten), r.OutputPath)
}

// Package orchestrator wires the raw tables, reduce pipeline and output
// writer into complete runs, and validates previously produced output.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ouchmyfoot/legopile/internal/config"
	"github.com/ouchmyfoot/legopile/internal/logging"
	"github.com/ouchmyfoot/legopile/internal/pipeline"
	"github.com/ouchmyfoot/legopile/internal/progress"
	"github.com/ouchmyfoot/legopile/internal/source"
	"github.com/ouchmyfoot/legopile/internal/target"
	"github.com/ouchmyfoot/legopile/internal/util"
)

// Orchestrator executes reduce and validation runs for one configuration.
type Orchestrator struct {
	cfg *config.Config
}

// New creates an Orchestrator.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

func (o *Orchestrator) tablePaths() source.TablePaths {
	return source.TablePaths{
		Colors:     filepath.Join(o.cfg.RawDir, o.cfg.Files.Colors),
		Parts:      filepath.Join(o.cfg.RawDir, o.cfg.Files.Parts),
		Categories: filepath.Join(o.cfg.RawDir, o.cfg.Files.PartCategories),
	}
}

// Run executes one reduce: load the catalog, stream the facts through
// the pipeline into a temp file, and rename it over the output path.
// The output is replaced only on success.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*RunResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	started := time.Now()

	logging.Info("run %s: reducing %s -> %s", runID, o.cfg.RawDir, o.cfg.Output)

	cat, err := source.LoadCatalog(o.tablePaths())
	if err != nil {
		return nil, err
	}
	logging.Info("catalog loaded: %s colors, %s parts, %s categories",
		util.FormatCount(int64(len(cat.Colors))),
		util.FormatCount(int64(len(cat.Parts))),
		util.FormatCount(int64(len(cat.Categories))))

	facts, err := source.OpenFacts(filepath.Join(o.cfg.RawDir, o.cfg.Files.InventoryParts))
	if err != nil {
		return nil, fmt.Errorf("opening inventory parts table: %w", err)
	}
	defer facts.Close()

	w, err := target.NewWriter(o.cfg.Output)
	if err != nil {
		return nil, err
	}

	tracker := progress.New(o.cfg.ShowProgress())
	tracker.Start()

	p := pipeline.New(pipeline.Config{
		MaxRows:           o.cfg.RowCap(),
		ExcludeCategories: o.cfg.ExcludeCategories,
		Explode:           o.cfg.Explode,
	})
	stats, err := p.Run(ctx, cat, facts, w, tracker)
	if err != nil {
		tracker.Stop()
		w.Abort()
		return nil, err
	}
	if err := w.Commit(); err != nil {
		tracker.Stop()
		return nil, err
	}
	tracker.Finish()

	logging.Info("run %s complete: %s", runID, stats)
	if stats.Truncated {
		logging.Warn("output truncated at %s rows", util.FormatCount(stats.RowsWritten))
	}

	return newRunResult(runID, o.cfg, w.Path(), cat, stats, started, time.Now()), nil
}

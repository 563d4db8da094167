package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ouchmyfoot/legopile/internal/logging"
	"github.com/ouchmyfoot/legopile/internal/progress"
	"github.com/ouchmyfoot/legopile/internal/source"
	"github.com/ouchmyfoot/legopile/internal/target"
)

// Config contains reduce loop configuration.
type Config struct {
	// MaxRows caps the number of output rows. 0 means no cap.
	MaxRows int64

	// ExcludeCategories names part categories whose rows are skipped.
	ExcludeCategories []string

	// Explode writes quantity rows of one piece each instead of a
	// single row carrying the quantity.
	Explode bool
}

// Writer receives resolved output rows.
type Writer interface {
	Write(target.Record) error
}

// Pipeline runs the reduce loop: stream facts, resolve each against the
// catalog, write what resolves, count what does not.
type Pipeline struct {
	cfg      Config
	excluded map[string]bool
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	excluded := make(map[string]bool, len(cfg.ExcludeCategories))
	for _, name := range cfg.ExcludeCategories {
		excluded[name] = true
	}
	return &Pipeline{cfg: cfg, excluded: excluded}
}

// Run consumes the fact stream until EOF or the row cap. Bad fact rows
// are dropped and counted; reader errors other than source.ErrBadRow
// abort the run. The returned stats are valid even on error.
func (p *Pipeline) Run(ctx context.Context, cat *source.Catalog, facts *source.FactReader, w Writer, tracker *progress.Tracker) (*Stats, error) {
	stats := &Stats{}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		row, err := facts.Next()
		if err == io.EOF {
			return stats, nil
		}
		if errors.Is(err, source.ErrBadRow) {
			stats.RowsRead++
			stats.Drops.Malformed++
			logging.Debug("dropping row: %v", err)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("reading inventory: %w", err)
		}
		stats.RowsRead++

		part, ok := cat.Part(row.PartNum)
		if !ok {
			stats.Drops.UnknownPart++
			logging.Debug("line %d: unknown part %q", facts.Line(), row.PartNum)
			continue
		}
		color, ok := cat.Color(row.ColorID)
		if !ok {
			stats.Drops.UnknownColor++
			logging.Debug("line %d: unknown color %d", facts.Line(), row.ColorID)
			continue
		}
		category, ok := cat.Category(part.CategoryID)
		if !ok {
			stats.Drops.UnknownCategory++
			logging.Debug("line %d: part %q references unknown category %d",
				facts.Line(), row.PartNum, part.CategoryID)
			continue
		}

		if p.excluded[category.Name] {
			stats.Excluded++
			continue
		}

		if part.Name == "" || category.Name == "" || color.Name == "" || color.RGB == "" {
			stats.Drops.Incomplete++
			logging.Debug("line %d: part %q resolves to empty display values",
				facts.Line(), row.PartNum)
			continue
		}

		rec := target.Record{
			PartNum:      part.Num,
			PartName:     part.Name,
			CategoryName: category.Name,
			ColorName:    color.Name,
			RGB:          color.RGB,
			Quantity:     row.Quantity,
			ImgURL:       row.ImgURL,
		}

		if p.cfg.Explode {
			rec.Quantity = 1
			for i := 0; i < row.Quantity; i++ {
				if p.capReached(stats.RowsWritten) {
					stats.Truncated = true
					return stats, nil
				}
				if err := p.write(w, rec, stats, tracker); err != nil {
					return stats, err
				}
			}
			continue
		}

		if p.capReached(stats.RowsWritten) {
			stats.Truncated = true
			return stats, nil
		}
		if err := p.write(w, rec, stats, tracker); err != nil {
			return stats, err
		}
	}
}

func (p *Pipeline) write(w Writer, rec target.Record, stats *Stats, tracker *progress.Tracker) error {
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("writing output row: %w", err)
	}
	stats.RowsWritten++
	if tracker != nil {
		tracker.Add(1)
	}
	return nil
}

func (p *Pipeline) capReached(written int64) bool {
	return p.cfg.MaxRows > 0 && written >= p.cfg.MaxRows
}

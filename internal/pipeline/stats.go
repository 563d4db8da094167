// Package pipeline implements the reduce loop: it joins streamed fact
// rows against the catalog and hands resolved rows to a writer.
package pipeline

import "fmt"

// DropCounts breaks down fact rows left out of the output, by reason.
type DropCounts struct {
	// Malformed counts rows the reader could not parse.
	Malformed int64

	// UnknownPart counts rows whose part_num is not in the parts table.
	UnknownPart int64

	// UnknownColor counts rows whose color_id is not in the colors table.
	UnknownColor int64

	// UnknownCategory counts rows whose part references a missing category.
	UnknownCategory int64

	// Incomplete counts rows that resolved to empty display values.
	Incomplete int64
}

// Total returns the number of dropped rows across all reasons.
func (d DropCounts) Total() int64 {
	return d.Malformed + d.UnknownPart + d.UnknownColor + d.UnknownCategory + d.Incomplete
}

// Stats summarizes one reduce run.
type Stats struct {
	// RowsRead is the number of fact rows consumed, dropped ones included.
	RowsRead int64

	// RowsWritten is the number of output rows written.
	RowsWritten int64

	// Excluded counts rows skipped because their category is excluded.
	Excluded int64

	// Truncated reports whether the row cap cut the output short.
	Truncated bool

	Drops DropCounts
}

// String returns a one-line summary of the stats.
func (s *Stats) String() string {
	out := fmt.Sprintf("read=%d written=%d excluded=%d dropped=%d (malformed=%d, unknown_part=%d, unknown_color=%d, unknown_category=%d, incomplete=%d)",
		s.RowsRead, s.RowsWritten, s.Excluded, s.Drops.Total(),
		s.Drops.Malformed, s.Drops.UnknownPart, s.Drops.UnknownColor,
		s.Drops.UnknownCategory, s.Drops.Incomplete)
	if s.Truncated {
		out += " truncated"
	}
	return out
}

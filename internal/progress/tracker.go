// Package progress renders a progress spinner for the reduce run.
package progress

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ouchmyfoot/legopile/internal/util"
)

// Tracker tracks rows written to the output. The fact table is streamed
// without a pre-count, so the bar is a spinner rather than a percentage.
// Everything renders on stderr; stdout stays free for JSON results.
type Tracker struct {
	bar       *progressbar.ProgressBar
	enabled   bool
	current   atomic.Int64
	startTime time.Time
}

// New creates a tracker. A disabled tracker still counts rows but
// renders nothing.
func New(enabled bool) *Tracker {
	return &Tracker{
		enabled:   enabled,
		startTime: time.Now(),
	}
}

// Start begins rendering the spinner.
func (t *Tracker) Start() {
	if !t.enabled {
		return
	}
	t.bar = progressbar.NewOptions64(
		-1,
		progressbar.OptionSetDescription("Reducing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Add increments the written-row counter.
func (t *Tracker) Add(n int64) {
	t.current.Add(n)
	if t.bar != nil {
		t.bar.Add64(n)
	}
}

// Current returns the current count.
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Stop halts spinner rendering without the rate summary, terminating
// the spinner line.
func (t *Tracker) Stop() {
	if t.bar == nil {
		return
	}
	t.bar.Exit()
	fmt.Fprintln(os.Stderr)
}

// Finish stops the spinner and prints a rate summary.
func (t *Tracker) Finish() {
	if t.bar != nil {
		t.bar.Finish()
	}
	if !t.enabled {
		return
	}

	elapsed := time.Since(t.startTime)
	rowsPerSec := float64(t.current.Load()) / elapsed.Seconds()

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Wrote %s rows in %s (%.0f rows/sec)\n",
		util.FormatCount(t.current.Load()), elapsed.Round(time.Second), rowsPerSec)
}

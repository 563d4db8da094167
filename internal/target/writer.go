package target

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Writer accumulates output rows in a temp file next to the final path
// and renames it into place on Commit. The destination is never left
// half-written: readers see either the previous file or the complete
// new one.
type Writer struct {
	path      string
	tmp       *os.File
	csvw      *csv.Writer
	committed bool
}

// NewWriter creates the destination directory if needed, opens a temp
// file beside the final path, and writes the header row.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-")
	if err != nil {
		return nil, fmt.Errorf("creating temp output file: %w", err)
	}

	w := &Writer{path: path, tmp: tmp, csvw: csv.NewWriter(tmp)}
	if err := w.csvw.Write(Columns); err != nil {
		w.Abort()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return w, nil
}

// Write appends one row.
func (w *Writer) Write(r Record) error {
	return w.csvw.Write([]string{
		r.PartNum,
		r.PartName,
		r.CategoryName,
		r.ColorName,
		r.RGB,
		strconv.Itoa(r.Quantity),
		r.ImgURL,
	})
}

// Commit flushes, syncs and renames the temp file onto the final path.
func (w *Writer) Commit() error {
	w.csvw.Flush()
	if err := w.csvw.Error(); err != nil {
		w.Abort()
		return fmt.Errorf("flushing output: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("syncing output: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		os.Remove(w.tmp.Name())
		return fmt.Errorf("replacing %s: %w", w.path, err)
	}
	w.committed = true
	return nil
}

// Abort discards the temp file. Safe to call after Commit, where it
// does nothing.
func (w *Writer) Abort() {
	if w.committed {
		return
	}
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}

// Path returns the final output path.
func (w *Writer) Path() string {
	return w.path
}

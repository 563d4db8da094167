package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ErrBadRow marks a fact row that cannot be used. Callers check for it
// with errors.Is and drop the row; any other error from Next is fatal.
var ErrBadRow = errors.New("malformed inventory row")

// FactReader streams inventory_parts rows one at a time.
type FactReader struct {
	r *csv.Reader
	f *os.File

	partIdx  int
	colorIdx int
	qtyIdx   int
	imgIdx   int

	line int64
}

// OpenFacts opens the fact table at path for streaming.
func OpenFacts(path string) (*FactReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fr, err := NewFactReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	fr.f = f
	return fr, nil
}

// NewFactReader reads the header from r and prepares the stream. The
// img_url column is optional; all other columns are required.
func NewFactReader(r io.Reader) (*FactReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h := newHeader(hdr)

	fr := &FactReader{r: cr, line: 1}
	if fr.partIdx, err = h.require("inventory_parts", "part_num"); err != nil {
		return nil, err
	}
	if fr.colorIdx, err = h.require("inventory_parts", "color_id"); err != nil {
		return nil, err
	}
	if fr.qtyIdx, err = h.require("inventory_parts", "quantity"); err != nil {
		return nil, err
	}
	fr.imgIdx, _ = h.column("img_url")
	return fr, nil
}

// Next returns the next fact row. It returns io.EOF at the end of the
// stream and an error wrapping ErrBadRow for rows that should be
// dropped rather than aborting the run.
func (fr *FactReader) Next() (*InventoryPart, error) {
	rec, err := fr.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	fr.line++
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("%w: %v", ErrBadRow, err)
		}
		return nil, err
	}

	part := field(rec, fr.partIdx)
	if part == "" {
		return nil, fmt.Errorf("line %d: %w: empty part_num", fr.line, ErrBadRow)
	}

	rawColor := field(rec, fr.colorIdx)
	if rawColor == "" {
		return nil, fmt.Errorf("line %d: %w: empty color_id", fr.line, ErrBadRow)
	}
	colorID, err := strconv.Atoi(rawColor)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w: bad color_id %q", fr.line, ErrBadRow, rawColor)
	}

	rawQty := field(rec, fr.qtyIdx)
	qty, err := strconv.Atoi(rawQty)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w: bad quantity %q", fr.line, ErrBadRow, rawQty)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("line %d: %w: quantity %d not positive", fr.line, ErrBadRow, qty)
	}

	return &InventoryPart{
		PartNum:  part,
		ColorID:  colorID,
		Quantity: qty,
		ImgURL:   field(rec, fr.imgIdx),
	}, nil
}

// Line returns the current 1-based line number in the fact file,
// counting the header.
func (fr *FactReader) Line() int64 {
	return fr.line
}

// Close releases the underlying file, if any.
func (fr *FactReader) Close() error {
	if fr.f == nil {
		return nil
	}
	return fr.f.Close()
}

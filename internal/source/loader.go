package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// header resolves column positions from a CSV header row. Matching is
// case-insensitive and tolerates a UTF-8 BOM on the first field.
type header map[string]int

func newHeader(fields []string) header {
	h := make(header, len(fields))
	for i, f := range fields {
		f = strings.TrimPrefix(f, "\uFEFF")
		h[strings.ToLower(strings.TrimSpace(f))] = i
	}
	return h
}

// column returns the position of the first candidate present. Snapshot
// generations disagree on key column names (id vs color_id and so on),
// so each caller tries its known aliases in order.
func (h header) column(candidates ...string) (int, bool) {
	for _, c := range candidates {
		if i, ok := h[c]; ok {
			return i, true
		}
	}
	return -1, false
}

func (h header) require(table string, candidates ...string) (int, error) {
	i, ok := h.column(candidates...)
	if !ok {
		return -1, fmt.Errorf("%s header has no %s column", table, strings.Join(candidates, " or "))
	}
	return i, nil
}

// LoadCatalog reads the three dimension tables into memory. Any problem
// in a dimension table is fatal, unlike fact rows which are dropped
// individually.
func LoadCatalog(paths TablePaths) (*Catalog, error) {
	cat := &Catalog{
		Colors:     make(map[int]Color),
		Parts:      make(map[string]Part),
		Categories: make(map[int]Category),
	}

	if err := cat.loadColors(paths.Colors); err != nil {
		return nil, fmt.Errorf("loading colors table: %w", err)
	}
	if err := cat.loadCategories(paths.Categories); err != nil {
		return nil, fmt.Errorf("loading part categories table: %w", err)
	}
	if err := cat.loadParts(paths.Parts); err != nil {
		return nil, fmt.Errorf("loading parts table: %w", err)
	}
	return cat, nil
}

func openTable(path string) (*os.File, *csv.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return f, r, nil
}

func (c *Catalog) loadColors(path string) error {
	f, r, err := openTable(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", path, err)
	}
	h := newHeader(hdr)

	idIdx, err := h.require(path, "id", "color_id")
	if err != nil {
		return err
	}
	nameIdx, err := h.require(path, "name", "color_name")
	if err != nil {
		return err
	}
	rgbIdx, err := h.require(path, "rgb")
	if err != nil {
		return err
	}

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		line++

		raw := field(rec, idIdx)
		if raw == "" {
			return fmt.Errorf("%s line %d: empty color id", path, line)
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s line %d: bad color id %q", path, line, raw)
		}
		if _, dup := c.Colors[id]; dup {
			return fmt.Errorf("%s line %d: duplicate color id %d", path, line, id)
		}
		c.Colors[id] = Color{
			ID:   id,
			Name: field(rec, nameIdx),
			RGB:  field(rec, rgbIdx),
		}
	}
}

func (c *Catalog) loadCategories(path string) error {
	f, r, err := openTable(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", path, err)
	}
	h := newHeader(hdr)

	idIdx, err := h.require(path, "id", "part_cat_id")
	if err != nil {
		return err
	}
	nameIdx, err := h.require(path, "name", "part_cat_name")
	if err != nil {
		return err
	}

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		line++

		raw := field(rec, idIdx)
		if raw == "" {
			return fmt.Errorf("%s line %d: empty category id", path, line)
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s line %d: bad category id %q", path, line, raw)
		}
		if _, dup := c.Categories[id]; dup {
			return fmt.Errorf("%s line %d: duplicate category id %d", path, line, id)
		}
		c.Categories[id] = Category{ID: id, Name: field(rec, nameIdx)}
	}
}

func (c *Catalog) loadParts(path string) error {
	f, r, err := openTable(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", path, err)
	}
	h := newHeader(hdr)

	numIdx, err := h.require(path, "part_num")
	if err != nil {
		return err
	}
	nameIdx, err := h.require(path, "name", "part_name")
	if err != nil {
		return err
	}
	catIdx, err := h.require(path, "part_cat_id")
	if err != nil {
		return err
	}

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		line++

		num := field(rec, numIdx)
		if num == "" {
			return fmt.Errorf("%s line %d: empty part_num", path, line)
		}
		if _, dup := c.Parts[num]; dup {
			return fmt.Errorf("%s line %d: duplicate part_num %q", path, line, num)
		}
		raw := field(rec, catIdx)
		catID, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s line %d: bad part_cat_id %q", path, line, raw)
		}
		c.Parts[num] = Part{
			Num:        num,
			Name:       field(rec, nameIdx),
			CategoryID: catID,
		}
	}
}

// field returns the trimmed value at index i, or "" when the record is
// short. Short dimension records surface later as empty required values.
func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

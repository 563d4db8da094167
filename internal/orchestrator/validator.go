package orchestrator

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"

	"github.com/ouchmyfoot/legopile/internal/logging"
	"github.com/ouchmyfoot/legopile/internal/source"
	"github.com/ouchmyfoot/legopile/internal/target"
	"github.com/ouchmyfoot/legopile/internal/util"
)

var rgbPattern = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// check accumulates per-row failures for one validation rule.
type check struct {
	name    string
	bad     int64
	example string
}

func (c *check) fail(line int64, detail string) {
	c.bad++
	if c.example == "" {
		c.example = fmt.Sprintf("line %d: %s", line, detail)
	}
}

// report logs the check outcome and returns whether it passed.
func (c *check) report() bool {
	if c.bad == 0 {
		logging.Info("%-24s OK", c.name)
		return true
	}
	logging.Error("%-24s FAIL %d rows (first: %s)", c.name, c.bad, c.example)
	return false
}

// Validate checks a produced pile file: exact header, row shape,
// required values, quantity and rgb formats, and the row cap. With
// crossCheck set it also verifies every row against the raw tables.
func (o *Orchestrator) Validate(ctx context.Context, path string, crossCheck bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var cat *source.Catalog
	colorSet := map[string]bool{}
	if crossCheck {
		if cat, err = source.LoadCatalog(o.tablePaths()); err != nil {
			return err
		}
		for _, c := range cat.Colors {
			colorSet[c.Name+"\x00"+c.RGB] = true
		}
	}

	logging.Info("validating %s", path)

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	failed := false
	hdr, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", path, err)
	}
	if slices.Equal(hdr, target.Columns) {
		logging.Info("%-24s OK", "header")
	} else {
		logging.Error("%-24s FAIL got %v", "header", hdr)
		failed = true
	}

	shape := &check{name: "row shape"}
	required := &check{name: "required values"}
	quantity := &check{name: "quantity"}
	rgb := &check{name: "rgb format"}
	catalogCheck := &check{name: "catalog cross-check"}

	var rows int64
	line := int64(1)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			shape.fail(line, err.Error())
			continue
		}
		rows++

		if len(rec) != len(target.Columns) {
			shape.fail(line, fmt.Sprintf("%d fields", len(rec)))
			continue
		}

		partNum, partName, catName := rec[0], rec[1], rec[2]
		colorName, rgbVal, qty := rec[3], rec[4], rec[5]

		if partNum == "" || partName == "" || catName == "" || colorName == "" || rgbVal == "" {
			required.fail(line, "empty required value")
		}
		if q, err := strconv.Atoi(qty); err != nil || q <= 0 {
			quantity.fail(line, fmt.Sprintf("quantity %q", qty))
		}
		if !rgbPattern.MatchString(rgbVal) {
			rgb.fail(line, fmt.Sprintf("rgb %q", rgbVal))
		}

		if crossCheck {
			p, ok := cat.Part(partNum)
			switch {
			case !ok:
				catalogCheck.fail(line, fmt.Sprintf("part %q not in parts table", partNum))
			case p.Name != partName:
				catalogCheck.fail(line, fmt.Sprintf("part %q named %q, raw table says %q",
					partNum, partName, p.Name))
			default:
				if g, ok := cat.Category(p.CategoryID); !ok || g.Name != catName {
					catalogCheck.fail(line, fmt.Sprintf("part %q category %q does not match raw tables",
						partNum, catName))
				}
			}
			if !colorSet[colorName+"\x00"+rgbVal] {
				catalogCheck.fail(line, fmt.Sprintf("color %q rgb %s not in colors table",
					colorName, rgbVal))
			}
		}
	}

	for _, c := range []*check{shape, required, quantity, rgb} {
		if !c.report() {
			failed = true
		}
	}
	if crossCheck && !catalogCheck.report() {
		failed = true
	}

	if limit := o.cfg.RowCap(); limit > 0 && rows > limit {
		logging.Error("%-24s FAIL %s rows exceeds cap %s", "row count",
			util.FormatCount(rows), util.FormatCount(limit))
		failed = true
	} else {
		logging.Info("%-24s OK %s rows", "row count", util.FormatCount(rows))
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

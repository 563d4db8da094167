package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ouchmyfoot/legopile/internal/config"
)

const (
	rawColors = "id,name,rgb,is_trans\n" +
		"-1,Unknown,0033B2,f\n" +
		"4,Red,C91A09,f\n" +
		"9,Ghost,,f\n"
	rawCategories = "id,name\n11,Bricks\n14,Plates\n58,Stickers\n"
	rawParts      = "part_num,name,part_cat_id\n" +
		"3001,Brick 2 x 4,11\n" +
		"3024,Plate 1 x 1,14\n" +
		"stk0001,Sticker Sheet,58\n"
	rawInventory = "inventory_id,part_num,color_id,quantity,is_spare,img_url\n" +
		"1,3001,4,2,f,https://img/3001.jpg\n" +
		"1,3024,-1,10,f,\n" +
		"1,stk0001,4,1,f,\n" + // excluded category
		"2,9999,4,1,f,\n" + // unknown part
		"2,3001,9,1,f,\n" + // resolves to empty rgb
		"2,3001,4,zero,f,\n" // malformed quantity
)

func writeRaw(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	raw := t.TempDir()
	writeRaw(t, raw, "colors.csv", rawColors)
	writeRaw(t, raw, "part_categories.csv", rawCategories)
	writeRaw(t, raw, "parts.csv", rawParts)
	writeRaw(t, raw, "inventory_parts.csv", rawInventory)

	cfg := config.Default()
	cfg.RawDir = raw
	cfg.Output = filepath.Join(t.TempDir(), "data", "lego_pile.csv")
	off := false
	cfg.Progress = &off
	return cfg
}

const wantPile = "part_num,part_name,part_cat_name,color_name,rgb,quantity,img_url\n" +
	"3001,Brick 2 x 4,Bricks,Red,C91A09,2,https://img/3001.jpg\n" +
	"3024,Plate 1 x 1,Plates,Unknown,0033B2,10,\n"

func TestRunProducesPile(t *testing.T) {
	cfg := testConfig(t)

	result, err := New(cfg).Run(context.Background(), "test-run")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != wantPile {
		t.Errorf("output = %q, want %q", data, wantPile)
	}

	if result.RunID != "test-run" {
		t.Errorf("RunID = %q, want test-run", result.RunID)
	}
	if result.Status != "complete" {
		t.Errorf("Status = %q, want complete", result.Status)
	}
	if result.OutputPath != cfg.Output {
		t.Errorf("OutputPath = %q, want %q", result.OutputPath, cfg.Output)
	}
	if result.RowsRead != 6 || result.RowsWritten != 2 {
		t.Errorf("rows read/written = %d/%d, want 6/2", result.RowsRead, result.RowsWritten)
	}
	if result.RowsExcluded != 1 {
		t.Errorf("RowsExcluded = %d, want 1", result.RowsExcluded)
	}
	if result.RowsDropped.Total != 3 {
		t.Errorf("RowsDropped.Total = %d, want 3", result.RowsDropped.Total)
	}
	if result.RowsDropped.UnknownPart != 1 || result.RowsDropped.Incomplete != 1 ||
		result.RowsDropped.Malformed != 1 {
		t.Errorf("RowsDropped = %+v, want 1 each of unknown_part/incomplete/malformed",
			result.RowsDropped)
	}
	if result.Catalog.Colors != 3 || result.Catalog.Parts != 3 || result.Catalog.Categories != 3 {
		t.Errorf("Catalog = %+v, want 3/3/3", result.Catalog)
	}
	if result.Truncated {
		t.Error("Truncated = true, want false")
	}
}

func TestRunGeneratesRunID(t *testing.T) {
	cfg := testConfig(t)

	result, err := New(cfg).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.RunID == "" {
		t.Error("RunID is empty, want generated id")
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg)

	if _, err := o.Run(context.Background(), "first"); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	first, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("reading first output: %v", err)
	}

	if _, err := o.Run(context.Background(), "second"); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	second, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("reading second output: %v", err)
	}

	if string(first) != string(second) {
		t.Error("reruns produced different bytes")
	}
}

func TestRunTruncatesAtCap(t *testing.T) {
	cfg := testConfig(t)
	one := int64(1)
	cfg.MaxRows = &one

	result, err := New(cfg).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.Truncated {
		t.Error("Truncated = false, want true")
	}
	if result.RowsWritten != 1 {
		t.Errorf("RowsWritten = %d, want 1", result.RowsWritten)
	}

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("output has %d lines, want 2 (header + 1 row)", got)
	}
}

func TestRunHeaderOnlyOutput(t *testing.T) {
	cfg := testConfig(t)
	writeRaw(t, cfg.RawDir, "inventory_parts.csv",
		"inventory_id,part_num,color_id,quantity,is_spare,img_url\n1,stk0001,4,1,f,\n")

	result, err := New(cfg).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.RowsWritten != 0 || result.RowsExcluded != 1 {
		t.Errorf("written/excluded = %d/%d, want 0/1", result.RowsWritten, result.RowsExcluded)
	}

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "part_num,part_name,part_cat_name,color_name,rgb,quantity,img_url\n" {
		t.Errorf("output = %q, want header only", data)
	}
}

func TestRunMissingTables(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"colors", "colors.csv", "colors"},
		{"parts", "parts.csv", "parts"},
		{"categories", "part_categories.csv", "part categories"},
		{"inventory", "inventory_parts.csv", "inventory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if err := os.Remove(filepath.Join(cfg.RawDir, tt.file)); err != nil {
				t.Fatalf("removing %s: %v", tt.file, err)
			}

			_, err := New(cfg).Run(context.Background(), "")
			if err == nil {
				t.Fatal("Run() = nil error, want failure")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}

			if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
				t.Errorf("output exists after failed run, stat err = %v", statErr)
			}
		})
	}
}

func TestRunKeepsOldOutputOnFailure(t *testing.T) {
	cfg := testConfig(t)

	if _, err := New(cfg).Run(context.Background(), ""); err != nil {
		t.Fatalf("seed Run() error: %v", err)
	}

	// Break the raw data, then confirm a failed rerun leaves the
	// previous output untouched.
	writeRaw(t, cfg.RawDir, "colors.csv", "id,name,rgb\nnope,Red,C91A09\n")

	if _, err := New(cfg).Run(context.Background(), ""); err == nil {
		t.Fatal("Run() on broken raw data = nil error, want failure")
	}

	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != wantPile {
		t.Errorf("previous output was disturbed: %q", data)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(cfg).Run(ctx, ""); err == nil {
		t.Error("Run() with cancelled context = nil error, want failure")
	}
	if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
		t.Errorf("output exists after cancelled run, stat err = %v", err)
	}
}

func TestRunRateSummaryOnlyOnSuccess(t *testing.T) {
	capture := func(t *testing.T, ctx context.Context, cfg *config.Config, wantErr bool) string {
		t.Helper()
		oldStderr := os.Stderr
		r, w, _ := os.Pipe()
		os.Stderr = w

		_, err := New(cfg).Run(ctx, "")
		w.Close()
		os.Stderr = oldStderr

		if wantErr && err == nil {
			t.Fatal("Run() = nil error, want failure")
		}
		if !wantErr && err != nil {
			t.Fatalf("Run() error: %v", err)
		}

		var buf bytes.Buffer
		buf.ReadFrom(r)
		return buf.String()
	}

	t.Run("success prints rate line", func(t *testing.T) {
		cfg := testConfig(t)
		on := true
		cfg.Progress = &on

		out := capture(t, context.Background(), cfg, false)
		if !strings.Contains(out, "rows/sec") {
			t.Errorf("stderr %q missing rate line", out)
		}
	})

	t.Run("cancelled run prints no rate line", func(t *testing.T) {
		cfg := testConfig(t)
		on := true
		cfg.Progress = &on
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := capture(t, ctx, cfg, true)
		if strings.Contains(out, "rows/sec") {
			t.Errorf("stderr %q has rate line for a discarded run", out)
		}
	})
}

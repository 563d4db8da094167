package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writePile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pile.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing pile: %v", err)
	}
	return path
}

func TestValidateAcceptsGoodFile(t *testing.T) {
	cfg := testConfig(t)
	path := writePile(t, wantPile)

	if err := New(cfg).Validate(context.Background(), path, false); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestValidateHeaderOnlyFile(t *testing.T) {
	cfg := testConfig(t)
	path := writePile(t, "part_num,part_name,part_cat_name,color_name,rgb,quantity,img_url\n")

	if err := New(cfg).Validate(context.Background(), path, false); err != nil {
		t.Errorf("Validate() on header-only file error: %v", err)
	}
}

func TestValidateRejectsBadFiles(t *testing.T) {
	header := "part_num,part_name,part_cat_name,color_name,rgb,quantity,img_url\n"

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "wrong header",
			content: "part,name,category,color,rgb,qty,img\n",
		},
		{
			name:    "short row",
			content: header + "3001,Brick,Bricks,Red,C91A09,2\n",
		},
		{
			name:    "long row",
			content: header + "3001,Brick,Bricks,Red,C91A09,2,,extra\n",
		},
		{
			name:    "empty part_name",
			content: header + "3001,,Bricks,Red,C91A09,2,\n",
		},
		{
			name:    "empty rgb",
			content: header + "3001,Brick,Bricks,Red,,2,\n",
		},
		{
			name:    "zero quantity",
			content: header + "3001,Brick,Bricks,Red,C91A09,0,\n",
		},
		{
			name:    "non-numeric quantity",
			content: header + "3001,Brick,Bricks,Red,C91A09,two,\n",
		},
		{
			name:    "short rgb",
			content: header + "3001,Brick,Bricks,Red,C91A0,2,\n",
		},
		{
			name:    "non-hex rgb",
			content: header + "3001,Brick,Bricks,Red,GGGGGG,2,\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			path := writePile(t, tt.content)

			if err := New(cfg).Validate(context.Background(), path, false); err == nil {
				t.Error("Validate() = nil error, want failure")
			}
		})
	}
}

func TestValidateRowCap(t *testing.T) {
	cfg := testConfig(t)
	one := int64(1)
	cfg.MaxRows = &one

	path := writePile(t, wantPile) // two data rows
	if err := New(cfg).Validate(context.Background(), path, false); err == nil {
		t.Error("Validate() = nil error, want row cap failure")
	}
}

func TestValidateCrossCheck(t *testing.T) {
	header := "part_num,part_name,part_cat_name,color_name,rgb,quantity,img_url\n"

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "matches raw tables",
			content: wantPile,
			wantErr: false,
		},
		{
			name:    "part not in parts table",
			content: header + "9999,Brick 2 x 4,Bricks,Red,C91A09,2,\n",
			wantErr: true,
		},
		{
			name:    "part name mismatch",
			content: header + "3001,Brick 2 x 2,Bricks,Red,C91A09,2,\n",
			wantErr: true,
		},
		{
			name:    "category mismatch",
			content: header + "3001,Brick 2 x 4,Plates,Red,C91A09,2,\n",
			wantErr: true,
		},
		{
			name:    "color pair not in colors table",
			content: header + "3001,Brick 2 x 4,Bricks,Red,C91A00,2,\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			path := writePile(t, tt.content)

			err := New(cfg).Validate(context.Background(), path, true)
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil error, want cross-check failure")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}

func TestValidateRunOutput(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg)

	if _, err := o.Run(context.Background(), ""); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := o.Validate(context.Background(), cfg.Output, true); err != nil {
		t.Errorf("Validate() on fresh run output error: %v", err)
	}
}

func TestValidateMissingFile(t *testing.T) {
	cfg := testConfig(t)
	err := New(cfg).Validate(context.Background(), filepath.Join(t.TempDir(), "absent.csv"), false)
	if err == nil {
		t.Error("Validate() on missing file = nil error, want failure")
	}
}

// Package source reads the raw Rebrickable CSV tables: the three small
// dimension tables (colors, parts, part categories) loaded whole into a
// Catalog, and the large inventory_parts fact table streamed row by row.
package source

// Color is one row of the colors table.
type Color struct {
	ID   int
	Name string
	RGB  string
}

// Part is one row of the parts table.
type Part struct {
	Num        string
	Name       string
	CategoryID int
}

// Category is one row of the part_categories table.
type Category struct {
	ID   int
	Name string
}

// InventoryPart is one row of the inventory_parts fact table.
type InventoryPart struct {
	PartNum  string
	ColorID  int
	Quantity int
	ImgURL   string
}

// TablePaths locates the three dimension table files.
type TablePaths struct {
	Colors     string
	Parts      string
	Categories string
}

// Catalog holds the dimension tables keyed for joining against the
// fact stream.
type Catalog struct {
	Colors     map[int]Color
	Parts      map[string]Part
	Categories map[int]Category
}

// Color looks up a color by id.
func (c *Catalog) Color(id int) (Color, bool) {
	col, ok := c.Colors[id]
	return col, ok
}

// Part looks up a part by part number.
func (c *Catalog) Part(num string) (Part, bool) {
	p, ok := c.Parts[num]
	return p, ok
}

// Category looks up a part category by id.
func (c *Catalog) Category(id int) (Category, bool) {
	cat, ok := c.Categories[id]
	return cat, ok
}

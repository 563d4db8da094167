// Package target writes the reduced lego_pile CSV. The output schema is
// fixed: downstream consumers read it positionally.
package target

// Columns is the output header, in order.
var Columns = []string{
	"part_num",
	"part_name",
	"part_cat_name",
	"color_name",
	"rgb",
	"quantity",
	"img_url",
}

// Record is one fully resolved output row.
type Record struct {
	PartNum      string
	PartName     string
	CategoryName string
	ColorName    string
	RGB          string
	Quantity     int
	ImgURL       string
}

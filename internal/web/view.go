package web

import (
	"html/template"

	"github.com/Sternrassler/artwork-table/pkg/table"
)

// Columns are the data columns after the selection column.
var Columns = []string{"Title", "Place of origin", "Artist", "Inscriptions", "Start date", "End date"}

// pageLinks is how many page buttons are shown on either side of the
// current page.
const pageLinks = 3

type pageData struct {
	table.View
	Notice  string
	Columns []string
	Pages   []int
}

func newPageData(v table.View, notice string) pageData {
	return pageData{
		View:    v,
		Notice:  notice,
		Columns: Columns,
		Pages:   pageIndices(v.Summary),
	}
}

// pageIndices returns the zero-based page indices to render as buttons.
func pageIndices(s table.Summary) []int {
	if s.PageCount == 0 {
		return nil
	}
	from := max(0, s.PageIndex-pageLinks)
	to := min(s.LastIndex, s.PageIndex+pageLinks)

	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}

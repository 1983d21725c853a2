package models

// Dataset is an ordered table of string cells. An empty cell is the missing
// marker.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

func NewDataset(columns ...string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{
		Columns: cols,
		Rows:    make([][]string, 0),
	}
}

func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i for column name, "" when either is missing.
func (d *Dataset) Value(i int, name string) string {
	idx := d.ColumnIndex(name)
	if idx < 0 || i < 0 || i >= len(d.Rows) || idx >= len(d.Rows[i]) {
		return ""
	}
	return d.Rows[i][idx]
}

func (d *Dataset) Clone() *Dataset {
	out := NewDataset(d.Columns...)
	out.Rows = make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		r := make([]string, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Concat appends datasets. The result schema is the union of the input
// schemas in first-seen order; cells for absent columns are empty.
func Concat(datasets ...*Dataset) *Dataset {
	out := NewDataset()
	index := make(map[string]int)

	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		for _, c := range ds.Columns {
			if _, ok := index[c]; !ok {
				index[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}

	for _, ds := range datasets {
		if ds == nil {
			continue
		}
		for _, row := range ds.Rows {
			r := make([]string, len(out.Columns))
			for j, c := range ds.Columns {
				if j < len(row) {
					r[index[c]] = row[j]
				}
			}
			out.Rows = append(out.Rows, r)
		}
	}

	return out
}

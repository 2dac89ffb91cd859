package engine

// Cell is one raw CSV field as handed over by the loader.
type Cell struct {
	Value   string
	Missing bool
}

// Column stores the values of one header column.
// Null[i] is true when row i has no value in this column; Values[i] is then "".
type Column struct {
	Name   string
	Values []string
	Null   []bool
}

func newColumn(name string, capacity int) *Column {
	return &Column{
		Name:   name,
		Values: make([]string, 0, capacity),
		Null:   make([]bool, 0, capacity),
	}
}

func (c *Column) append(cell Cell) {
	if cell.Missing {
		c.Values = append(c.Values, "")
		c.Null = append(c.Null, true)
		return
	}
	c.Values = append(c.Values, cell.Value)
	c.Null = append(c.Null, false)
}

// Get returns the value at row i and whether it is present.
func (c *Column) Get(i int) (string, bool) {
	if i < 0 || i >= len(c.Values) || c.Null[i] {
		return "", false
	}
	return c.Values[i], true
}

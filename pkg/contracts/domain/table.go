package domain

// ColumnKind tells the report sink how to format a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindMoney
	KindPercent
	KindInteger
)

// Column describes one table column.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Table is an ordered, typed set of rows handed to the report sink.
// Cells hold string, int, float64 or decimal.Decimal values.
type Table struct {
	Columns    []Column `json:"columns"`
	Rows       [][]any  `json:"rows"`
	HideHeader bool     `json:"hide_header,omitempty"`
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{Columns: columns}
}

// Text, Money, Percent and Integer are column constructors.
func Text(name string) Column    { return Column{Name: name, Kind: KindText} }
func Money(name string) Column   { return Column{Name: name, Kind: KindMoney} }
func Percent(name string) Column { return Column{Name: name, Kind: KindPercent} }
func Integer(name string) Column { return Column{Name: name, Kind: KindInteger} }

// Append adds a row. Missing trailing cells are left nil.
func (t *Table) Append(cells ...any) {
	row := make([]any, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// ColumnNames returns the header labels in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row, column name; nil when either is unknown.
func (t *Table) Cell(row int, name string) any {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][idx]
}

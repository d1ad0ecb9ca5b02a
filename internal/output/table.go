package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Alignment controls how a cell is padded to its column width.
type Alignment int

// Column alignments.
const (
	AlignLeft Alignment = iota
	AlignRight
)

// columnGap separates adjacent columns.
const columnGap = "  "

// Table renders rows of cells as aligned text columns.
type Table struct {
	headers  []string
	rows     [][]string
	align    map[int]Alignment
	noHeader bool
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
		align:   make(map[int]Alignment),
	}
}

// AddRow appends a row. Rows may be shorter or longer than the header.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// SetNoHeader suppresses the header and its underline.
func (t *Table) SetNoHeader(noHeader bool) {
	t.noHeader = noHeader
}

// SetAlignment sets the alignment of column col.
func (t *Table) SetAlignment(col int, a Alignment) {
	t.align[col] = a
}

// Render writes the table to w. An empty table writes nothing.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return nil
	}

	widths := t.widths()

	if !t.noHeader && len(t.headers) > 0 {
		if err := t.renderRow(w, t.headers, widths); err != nil {
			return err
		}
		if err := t.renderUnderline(w, widths); err != nil {
			return err
		}
	}

	for _, row := range t.rows {
		if err := t.renderRow(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

// widths returns the display width of each column, counting runes.
func (t *Table) widths() []int {
	cols := len(t.headers)
	for _, row := range t.rows {
		cols = max(cols, len(row))
	}

	widths := make([]int, cols)
	measure := func(cells []string) {
		for i, cell := range cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

func (t *Table) renderRow(w io.Writer, cells []string, widths []int) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(cell))
		if t.align[i] == AlignRight {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, columnGap), " "))
	return err
}

func (t *Table) renderUnderline(w io.Writer, widths []int) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, columnGap))
	return err
}

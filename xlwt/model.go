package xlwt

import "sort"

// Font describes one font by structure; two fonts with equal fields
// share one FONT record and one font index.
type Font struct {
	// Name is the font name, e.g. "Arial".
	Name string

	// Height is the font height in twips (1/20 of a point).
	Height int

	// Weight is the font weight; 400 is normal, 700 bold. Values are
	// clamped to [100, 1000] on output.
	Weight int

	// Italic indicates an italic face.
	Italic bool

	// Strikeout indicates struck-out text.
	Strikeout bool

	// Outline indicates an outlined face.
	Outline bool

	// Shadow indicates a shadowed face.
	Shadow bool

	// Underline is the underline style code; 0 means none.
	Underline int

	// Escapement is the escapement code: 0 none, 1 superscript,
	// 2 subscript.
	Escapement int

	// ColourIndex is the palette index of the font colour.
	ColourIndex int

	// Family is the font family code.
	Family int

	// CharacterSet is the character set code.
	CharacterSet int
}

// DefaultFont is the font used by the default cell format.
var DefaultFont = Font{
	Name:        "Arial",
	Height:      200,
	Weight:      400,
	ColourIndex: 0x7FFF,
}

// Style is one cell format: a font plus a number-format pattern.
// An empty NumFormat means "General" (no formatting).
type Style struct {
	Font      Font
	NumFormat string
}

// DefaultStyle is the format cells fall back to.
var DefaultStyle = Style{Font: DefaultFont}

// Cell value type codes, matching the reader's classification.
const (
	XL_CELL_EMPTY   = 0
	XL_CELL_TEXT    = 1
	XL_CELL_NUMBER  = 2
	XL_CELL_BOOLEAN = 4
	XL_CELL_ERROR   = 5
	XL_CELL_BLANK   = 6
)

// Cell is one cell value with its format.
type Cell struct {
	CType int
	Value interface{} // string, float64, bool or byte error code
	Style Style
}

// Sheet holds the cells of one worksheet.
type Sheet struct {
	// Name is the sheet name shown on the tab.
	Name string

	// Visibility is the BOUNDSHEET visibility code.
	Visibility int

	rows map[int]map[int]Cell
}

// Workbook is the in-memory model consumed by the writer.
type Workbook struct {
	// Encoding names the 8-bit encoding for compressed strings and
	// the CODEPAGE record. Empty selects latin_1.
	Encoding string

	// Mode1904 selects the 1904 date epoch.
	Mode1904 bool

	sheets []*Sheet
	styles []Style
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{}
}

// AddSheet appends a worksheet with the given tab name.
func (w *Workbook) AddSheet(name string) *Sheet {
	s := &Sheet{Name: name, rows: make(map[int]map[int]Cell)}
	w.sheets = append(w.sheets, s)
	return s
}

// Sheets returns the worksheets in declaration order.
func (w *Workbook) Sheets() []*Sheet {
	return w.sheets
}

// AddStyle declares a cell format. Declaration order fixes the style
// table order; declaring the same structure twice is harmless.
func (w *Workbook) AddStyle(s Style) {
	w.styles = append(w.styles, s)
}

// Styles returns the declared cell formats in declaration order.
func (w *Workbook) Styles() []Style {
	return w.styles
}

// WriteStr puts a text cell.
func (s *Sheet) WriteStr(row, col int, value string, style Style) {
	s.put(row, col, Cell{CType: XL_CELL_TEXT, Value: value, Style: style})
}

// WriteNumber puts a numeric cell.
func (s *Sheet) WriteNumber(row, col int, value float64, style Style) {
	s.put(row, col, Cell{CType: XL_CELL_NUMBER, Value: value, Style: style})
}

// WriteBool puts a boolean cell.
func (s *Sheet) WriteBool(row, col int, value bool, style Style) {
	s.put(row, col, Cell{CType: XL_CELL_BOOLEAN, Value: value, Style: style})
}

// WriteBlank puts a formatted but empty cell.
func (s *Sheet) WriteBlank(row, col int, style Style) {
	s.put(row, col, Cell{CType: XL_CELL_BLANK, Style: style})
}

func (s *Sheet) put(row, col int, c Cell) {
	r, ok := s.rows[row]
	if !ok {
		r = make(map[int]Cell)
		s.rows[row] = r
	}
	r[col] = c
}

// Cell returns the cell at row, col if one was written.
func (s *Sheet) Cell(row, col int) (Cell, bool) {
	c, ok := s.rows[row][col]
	return c, ok
}

// rowIndexes returns the populated row numbers in ascending order.
func (s *Sheet) rowIndexes() []int {
	rows := make([]int, 0, len(s.rows))
	for r := range s.rows {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	return rows
}

// colIndexes returns the populated column numbers of one row ascending.
func (s *Sheet) colIndexes(row int) []int {
	cols := make([]int, 0, len(s.rows[row]))
	for c := range s.rows[row] {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}

package xlwt

import "encoding/binary"

// builtinFormats seeds the number-format table with the reserved
// built-in patterns at their fixed ids. Ids 0-163 belong to this
// range; id 0 ("General", no formatting) is deliberately absent so it
// is never re-registered as a custom entry.
var builtinFormats = map[string]int{
	"0":                                1,
	"0.00":                             2,
	"#,##0":                            3,
	"#,##0.00":                         4,
	`"$"#,##0_);("$"#,##0)`:            5,
	`"$"#,##0_);[Red]("$"#,##0)`:       6,
	`"$"#,##0.00_);("$"#,##0.00)`:      7,
	`"$"#,##0.00_);[Red]("$"#,##0.00)`: 8,
	"0%":                               9,
	"0.00%":                            10,
	"0.00E+00":                         11,
	"# ?/?":                            12,
	"# ??/??":                          13,
	"M/D/YY":                           14,
	"D-MMM-YY":                         15,
	"D-MMM":                            16,
	"MMM-YY":                           17,
	"h:mm AM/PM":                       18,
	"h:mm:ss AM/PM":                    19,
	"h:mm":                             20,
	"h:mm:ss":                          21,
	"M/D/YY h:mm":                      22,
	"_(#,##0_);(#,##0)":                37,
	"_(#,##0_);[Red](#,##0)":           38,
	"_(#,##0.00_);(#,##0.00)":          39,
	"_(#,##0.00_);[Red](#,##0.00)":     40,
	`_("$"* #,##0_);_("$"* (#,##0);_("$"* "-"_);_(@_)`:         41,
	`_(* #,##0_);_(* (#,##0);_(* "-"_);_(@_)`:                  42,
	`_("$"* #,##0.00_);_("$"* (#,##0.00);_("$"* "-"??_);_(@_)`: 43,
	`_(* #,##0.00_);_(* (#,##0.00);_(* "-"??_);_(@_)`:          44,
	"mm:ss":     45,
	"[h]:mm:ss": 46,
	"mm:ss.0":   47,
	"##0.0E+0":  48,
	"@":         49,
}

// Number of fixed placeholder slots before the default cell format.
// Slots 0-14 reference the workbook's base style; slot 15 is the true
// default; declared formats follow from 16.
const xfFirstUserIndex = 16

// Styles collects the distinct fonts, number formats and cell formats
// of one workbook and assigns their table indices. One instance lives
// inside a write context.
type Styles struct {
	enc *StringEncoder

	fonts       []Font
	fontIndexes map[Font]int

	customFormats []string
	formatIndexes map[string]int

	xfs       []Style
	xfIndexes map[Style]int
}

// NewStyles builds the tables for the given workbook: the default
// format first, then every declared format in declaration order.
func NewStyles(enc *StringEncoder, wb *Workbook) *Styles {
	st := &Styles{
		enc:           enc,
		fontIndexes:   make(map[Font]int),
		formatIndexes: make(map[string]int),
		xfIndexes:     make(map[Style]int),
	}
	for pat, id := range builtinFormats {
		st.formatIndexes[pat] = id
	}

	st.registerParts(DefaultStyle)
	st.xfIndexes[DefaultStyle] = DefaultXFIndex
	for _, s := range wb.Styles() {
		st.register(s)
	}
	return st
}

// registerParts collects the font and number format of a cell format
// without giving it an XF slot of its own.
func (st *Styles) registerParts(s Style) {
	if _, ok := st.fontIndexes[s.Font]; !ok {
		st.fontIndexes[s.Font] = len(st.fonts)
		st.fonts = append(st.fonts, s.Font)
	}
	if s.NumFormat != "" {
		if _, ok := st.formatIndexes[s.NumFormat]; !ok {
			id := FirstCustomFormatID + len(st.customFormats)
			st.formatIndexes[s.NumFormat] = id
			st.customFormats = append(st.customFormats, s.NumFormat)
		}
	}
}

func (st *Styles) register(s Style) {
	st.registerParts(s)
	if _, ok := st.xfIndexes[s]; !ok {
		st.xfIndexes[s] = xfFirstUserIndex + len(st.xfs)
		st.xfs = append(st.xfs, s)
	}
}

// FontIndex returns the on-disk index of a font. Raw table positions
// above 3 are shifted up by one; slot 4 is reserved by the format and
// never referenced.
func (st *Styles) FontIndex(f Font) int {
	raw, ok := st.fontIndexes[f]
	if !ok {
		raw = 0
	}
	if raw > 3 {
		return raw + 1
	}
	return raw
}

// FormatIndex returns the number-format id of a pattern. The empty
// pattern means General and maps to id 0.
func (st *Styles) FormatIndex(pattern string) int {
	if pattern == "" {
		return 0
	}
	if id, ok := st.formatIndexes[pattern]; ok {
		return id
	}
	return 0
}

// XFIndex looks a cell format up by structural equality. A format
// that was never declared silently degrades to index 0; a lookup miss
// is not an error.
func (st *Styles) XFIndex(s Style) int {
	if idx, ok := st.xfIndexes[s]; ok {
		return idx
	}
	return 0
}

// DefaultXFIndex is the index of the true default cell format.
const DefaultXFIndex = 15

// writeFonts emits one FONT record per distinct font in table order.
func (st *Styles) writeFonts(buf *RecordBuffer) error {
	for _, f := range st.fonts {
		rec, err := st.fontRecord(f)
		if err != nil {
			return err
		}
		buf.PutRecord(XL_FONT, rec)
	}
	return nil
}

func (st *Styles) fontRecord(f Font) ([]byte, error) {
	var options uint16
	if f.Weight > 600 {
		options |= 0x0001
	}
	if f.Italic {
		options |= 0x0002
	}
	if f.Underline != 0 {
		options |= 0x0004
	}
	if f.Strikeout {
		options |= 0x0008
	}
	if f.Outline {
		options |= 0x0010
	}
	if f.Shadow {
		options |= 0x0020
	}
	weight := f.Weight
	if weight < 100 {
		weight = 100
	}
	if weight > 1000 {
		weight = 1000
	}

	data := make([]byte, 13)
	binary.LittleEndian.PutUint16(data[0:2], uint16(f.Height))
	binary.LittleEndian.PutUint16(data[2:4], options)
	binary.LittleEndian.PutUint16(data[4:6], uint16(f.ColourIndex))
	binary.LittleEndian.PutUint16(data[6:8], uint16(weight))
	binary.LittleEndian.PutUint16(data[8:10], uint16(f.Escapement))
	data[10] = byte(f.Underline)
	data[11] = byte(f.Family)
	data[12] = byte(f.CharacterSet)

	h, payload, _, err := st.enc.Pack(f.Name, 1)
	if err != nil {
		return nil, err
	}
	data = append(data, h...)
	return append(data, payload...), nil
}

// writeFormats emits one FORMAT record per custom pattern, ids
// contiguous from FirstCustomFormatID in first-seen order.
func (st *Styles) writeFormats(buf *RecordBuffer) error {
	for i, pattern := range st.customFormats {
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, uint16(FirstCustomFormatID+i))
		h, payload, _, err := st.enc.Pack(pattern, 2)
		if err != nil {
			return err
		}
		data = append(data, h...)
		buf.PutRecord(XL_FORMAT, append(data, payload...))
	}
	return nil
}

// writeXFs emits the cell-format table: 15 placeholder entries
// referencing the base style, the default cell format at slot 15, then
// every declared format. The final index of an entry is its position.
func (st *Styles) writeXFs(buf *RecordBuffer) {
	for i := 0; i < 15; i++ {
		buf.PutRecord(XL_XF, st.xfRecord(DefaultStyle, true))
	}
	buf.PutRecord(XL_XF, st.xfRecord(DefaultStyle, false))
	for _, s := range st.xfs {
		buf.PutRecord(XL_XF, st.xfRecord(s, false))
	}
}

// xfRecord builds the 20-byte BIFF8 XF body.
func (st *Styles) xfRecord(s Style, styleXF bool) []byte {
	data := make([]byte, 20)
	binary.LittleEndian.PutUint16(data[0:2], uint16(st.FontIndex(s.Font)))
	binary.LittleEndian.PutUint16(data[2:4], uint16(st.FormatIndex(s.NumFormat)))
	// cell locked + parent style; style XFs have no parent (0xFFF)
	prot := uint16(0x0001)
	if styleXF {
		prot |= 0x0004 | 0xFFF0
	}
	binary.LittleEndian.PutUint16(data[4:6], prot)
	data[9] = 0xFF // all attributes taken from this XF
	binary.LittleEndian.PutUint16(data[18:20], 0x20C0)
	return data
}

// writeStyle emits the single hard-coded built-in STYLE record.
func (st *Styles) writeStyle(buf *RecordBuffer) {
	buf.PutRecord(XL_STYLE, []byte{0x10, 0x80, 0x00, 0xFF})
}

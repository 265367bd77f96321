package xlwt

import (
	"encoding/binary"
	"testing"
)

func newTestStyles(t *testing.T, wb *Workbook) *Styles {
	t.Helper()
	enc, err := NewStringEncoder(wb.Encoding)
	if err != nil {
		t.Fatalf("NewStringEncoder: %v", err)
	}
	return NewStyles(enc, wb)
}

func boldFont() Font {
	f := DefaultFont
	f.Weight = 700
	return f
}

func TestStylesDefaultSlots(t *testing.T) {
	wb := NewWorkbook()
	st := newTestStyles(t, wb)

	if got := st.XFIndex(DefaultStyle); got != DefaultXFIndex {
		t.Errorf("XFIndex(DefaultStyle) = %d, want %d", got, DefaultXFIndex)
	}
	if got := st.FontIndex(DefaultFont); got != 0 {
		t.Errorf("FontIndex(DefaultFont) = %d, want 0", got)
	}
	if got := st.FormatIndex(""); got != 0 {
		t.Errorf("FormatIndex(General) = %d, want 0", got)
	}
}

func TestStylesDeclaredIndexes(t *testing.T) {
	wb := NewWorkbook()
	s1 := Style{Font: boldFont()}
	s2 := Style{Font: DefaultFont, NumFormat: "0.00%"}
	wb.AddStyle(s1)
	wb.AddStyle(s2)
	wb.AddStyle(s1) // re-declaration is a no-op
	st := newTestStyles(t, wb)

	if got := st.XFIndex(s1); got != xfFirstUserIndex {
		t.Errorf("XFIndex(s1) = %d, want %d", got, xfFirstUserIndex)
	}
	if got := st.XFIndex(s2); got != xfFirstUserIndex+1 {
		t.Errorf("XFIndex(s2) = %d, want %d", got, xfFirstUserIndex+1)
	}
	undeclared := Style{Font: boldFont(), NumFormat: "0%"}
	if got := st.XFIndex(undeclared); got != 0 {
		t.Errorf("XFIndex(undeclared) = %d, want 0", got)
	}
}

func TestStylesFontIndexShift(t *testing.T) {
	wb := NewWorkbook()
	heights := []int{220, 240, 260, 280}
	for _, h := range heights {
		f := DefaultFont
		f.Height = h
		wb.AddStyle(Style{Font: f})
	}
	st := newTestStyles(t, wb)

	// raw slots 0-3 pass through, raw slot 4 and later skip the
	// reserved on-disk index 4
	if got := st.FontIndex(DefaultFont); got != 0 {
		t.Errorf("FontIndex(default) = %d, want 0", got)
	}
	wantDisk := []int{1, 2, 3, 5}
	for i, h := range heights {
		f := DefaultFont
		f.Height = h
		if got := st.FontIndex(f); got != wantDisk[i] {
			t.Errorf("FontIndex(height %d) = %d, want %d", h, got, wantDisk[i])
		}
	}
	if got := st.FontIndex(Font{Name: "nope"}); got != 0 {
		t.Errorf("FontIndex(unknown) = %d, want 0", got)
	}
}

func TestStylesBuiltinFormatNeverCustom(t *testing.T) {
	wb := NewWorkbook()
	wb.AddStyle(Style{Font: DefaultFont, NumFormat: "0.00%"})
	wb.AddStyle(Style{Font: DefaultFont, NumFormat: "YYYY-MM-DD"})
	wb.AddStyle(Style{Font: DefaultFont, NumFormat: "0.000"})
	st := newTestStyles(t, wb)

	if got := st.FormatIndex("0.00%"); got != 10 {
		t.Errorf("FormatIndex(0.00%%) = %d, want builtin id 10", got)
	}
	if got := st.FormatIndex("YYYY-MM-DD"); got != FirstCustomFormatID {
		t.Errorf("FormatIndex(YYYY-MM-DD) = %d, want %d", got, FirstCustomFormatID)
	}
	if got := st.FormatIndex("0.000"); got != FirstCustomFormatID+1 {
		t.Errorf("FormatIndex(0.000) = %d, want %d", got, FirstCustomFormatID+1)
	}

	var buf RecordBuffer
	if err := st.writeFormats(&buf); err != nil {
		t.Fatalf("writeFormats: %v", err)
	}
	recs := parseRecords(t, buf.Bytes())
	if len(recs) != 2 {
		t.Fatalf("%d FORMAT records, want 2 (builtins are never emitted)", len(recs))
	}
	for i, r := range recs {
		if r.opcode != XL_FORMAT {
			t.Fatalf("record %d opcode = 0x%04x, want FORMAT", i, r.opcode)
		}
		if id := binary.LittleEndian.Uint16(r.data[0:2]); id != uint16(FirstCustomFormatID+i) {
			t.Errorf("record %d id = 0x%04x, want 0x%04x", i, id, FirstCustomFormatID+i)
		}
	}
}

func TestStylesXFTableLayout(t *testing.T) {
	wb := NewWorkbook()
	s1 := Style{Font: boldFont(), NumFormat: "0.00%"}
	wb.AddStyle(s1)
	st := newTestStyles(t, wb)

	var buf RecordBuffer
	st.writeXFs(&buf)
	recs := parseRecords(t, buf.Bytes())
	if len(recs) != xfFirstUserIndex+1 {
		t.Fatalf("%d XF records, want %d", len(recs), xfFirstUserIndex+1)
	}
	for i, r := range recs {
		if r.opcode != XL_XF {
			t.Fatalf("record %d opcode = 0x%04x, want XF", i, r.opcode)
		}
		if len(r.data) != 20 {
			t.Fatalf("record %d body = %d bytes, want 20", i, len(r.data))
		}
		prot := binary.LittleEndian.Uint16(r.data[4:6])
		styleXF := prot&0x0004 != 0
		if want := i < 15; styleXF != want {
			t.Errorf("record %d: style flag = %v, want %v", i, styleXF, want)
		}
	}

	// the declared entry at slot 16 references its own font and format
	user := recs[xfFirstUserIndex].data
	if got := binary.LittleEndian.Uint16(user[0:2]); got != uint16(st.FontIndex(s1.Font)) {
		t.Errorf("user XF font index = %d, want %d", got, st.FontIndex(s1.Font))
	}
	if got := binary.LittleEndian.Uint16(user[2:4]); got != 10 {
		t.Errorf("user XF format id = %d, want 10", got)
	}
	// the default at slot 15 references font 0, format 0
	def := recs[DefaultXFIndex].data
	if got := binary.LittleEndian.Uint16(def[0:2]); got != 0 {
		t.Errorf("default XF font index = %d, want 0", got)
	}
	if got := binary.LittleEndian.Uint16(def[2:4]); got != 0 {
		t.Errorf("default XF format id = %d, want 0", got)
	}
}

func TestFontRecordBytes(t *testing.T) {
	wb := NewWorkbook()
	f := Font{
		Name:        "Arial",
		Height:      240,
		Weight:      700,
		Italic:      true,
		Strikeout:   true,
		ColourIndex: 0x7FFF,
	}
	wb.AddStyle(Style{Font: f})
	st := newTestStyles(t, wb)

	data, err := st.fontRecord(f)
	if err != nil {
		t.Fatalf("fontRecord: %v", err)
	}
	if got := binary.LittleEndian.Uint16(data[0:2]); got != 240 {
		t.Errorf("height = %d, want 240", got)
	}
	if got := binary.LittleEndian.Uint16(data[2:4]); got != 0x0001|0x0002|0x0008 {
		t.Errorf("options = 0x%04x, want bold|italic|struck", got)
	}
	if got := binary.LittleEndian.Uint16(data[6:8]); got != 700 {
		t.Errorf("weight = %d, want 700", got)
	}
	// name is a 1-byte-length unicode string after the fixed part
	if got, want := data[13], byte(5); got != want {
		t.Errorf("name length = %d, want %d", got, want)
	}
	if got := string(data[15:]); got != "Arial" {
		t.Errorf("name = %q, want Arial", got)
	}
}

func TestFontRecordWeightClamp(t *testing.T) {
	wb := NewWorkbook()
	st := newTestStyles(t, wb)

	low := DefaultFont
	low.Weight = 1
	rec, err := st.fontRecord(low)
	if err != nil {
		t.Fatalf("fontRecord: %v", err)
	}
	if got := binary.LittleEndian.Uint16(rec[6:8]); got != 100 {
		t.Errorf("clamped weight = %d, want 100", got)
	}
	high := DefaultFont
	high.Weight = 4000
	rec, err = st.fontRecord(high)
	if err != nil {
		t.Fatalf("fontRecord: %v", err)
	}
	if got := binary.LittleEndian.Uint16(rec[6:8]); got != 1000 {
		t.Errorf("clamped weight = %d, want 1000", got)
	}
}

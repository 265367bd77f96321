package xlwt

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"strings"
	"testing"
)

func sampleWorkbook() *Workbook {
	wb := NewWorkbook()
	bold := Style{Font: boldFont()}
	pct := Style{Font: DefaultFont, NumFormat: "0.00%"}
	wb.AddStyle(bold)
	wb.AddStyle(pct)

	sh := wb.AddSheet("Sheet1")
	sh.WriteStr(0, 0, "A", bold)
	sh.WriteStr(0, 1, "B", DefaultStyle)
	sh.WriteStr(1, 0, "A", DefaultStyle)
	sh.WriteNumber(1, 1, 0.25, pct)
	return wb
}

func buildTestStream(t *testing.T, wb *Workbook) ([]byte, StreamMap) {
	t.Helper()
	c := mustContext(t, wb)
	defer c.release()
	stream, extents, err := c.buildStream()
	if err != nil {
		t.Fatalf("buildStream: %v", err)
	}
	return stream, extents
}

func TestBuildStreamRoundTrip(t *testing.T) {
	wb := sampleWorkbook()
	stream, extents := buildTestStream(t, wb)
	recs := parseRecords(t, stream)

	if recs[0].opcode != XL_BOF {
		t.Fatalf("first opcode = 0x%04x, want BOF", recs[0].opcode)
	}
	if st := binary.LittleEndian.Uint16(recs[0].data[2:4]); st != XL_WORKBOOK_GLOBALS {
		t.Errorf("globals BOF stream type = 0x%04x, want 0x%04x", st, XL_WORKBOOK_GLOBALS)
	}

	cp := filterRecords(recs, XL_CODEPAGE)
	if len(cp) != 1 || binary.LittleEndian.Uint16(cp[0].data) != 1252 {
		t.Errorf("CODEPAGE records = %v, want one with value 1252", cp)
	}

	sst := filterRecords(recs, XL_SST)
	if len(sst) != 1 {
		t.Fatalf("%d SST records, want 1", len(sst))
	}
	if total := binary.LittleEndian.Uint32(sst[0].data[0:4]); total != 3 {
		t.Errorf("SST total = %d, want 3", total)
	}
	if distinct := binary.LittleEndian.Uint32(sst[0].data[4:8]); distinct != 2 {
		t.Errorf("SST distinct = %d, want 2", distinct)
	}

	// A appears twice but is stored once; both cells point at index 0
	labels := filterRecords(recs, XL_LABELSST)
	if len(labels) != 3 {
		t.Fatalf("%d LABELSST records, want 3", len(labels))
	}
	var indices []uint32
	for _, r := range labels {
		indices = append(indices, binary.LittleEndian.Uint32(r.data[6:10]))
	}
	if want := []uint32{0, 1, 0}; !reflect.DeepEqual(indices, want) {
		t.Errorf("LABELSST indices = %v, want %v", indices, want)
	}
	// the bold cell references the declared XF, the plain ones slot 15
	if got := binary.LittleEndian.Uint16(labels[0].data[4:6]); got != xfFirstUserIndex {
		t.Errorf("bold cell XF = %d, want %d", got, xfFirstUserIndex)
	}
	if got := binary.LittleEndian.Uint16(labels[1].data[4:6]); got != DefaultXFIndex {
		t.Errorf("plain cell XF = %d, want %d", got, DefaultXFIndex)
	}

	if num := filterRecords(recs, XL_NUMBER); len(num) != 1 {
		t.Errorf("%d NUMBER records, want 1", len(num))
	} else if got := binary.LittleEndian.Uint16(num[0].data[4:6]); got != xfFirstUserIndex+1 {
		t.Errorf("number cell XF = %d, want %d", got, xfFirstUserIndex+1)
	}

	// globals carry 2 fonts, no custom formats, 16 fixed + 2 user XFs
	if got := len(filterRecords(recs, XL_FONT)); got != 2 {
		t.Errorf("%d FONT records, want 2", got)
	}
	if got := len(filterRecords(recs, XL_FORMAT)); got != 0 {
		t.Errorf("%d FORMAT records, want 0 (0.00%% is builtin)", got)
	}
	if got := len(filterRecords(recs, XL_XF)); got != 18 {
		t.Errorf("%d XF records, want 18", got)
	}

	checkBoundsheets(t, stream, extents)
}

// checkBoundsheets verifies that every BOUNDSHEET offset and every
// worksheet extent lands on a worksheet BOF record.
func checkBoundsheets(t *testing.T, stream []byte, extents StreamMap) {
	t.Helper()
	isSheetBOF := func(off int) bool {
		if off+8 > len(stream) {
			return false
		}
		return binary.LittleEndian.Uint16(stream[off:]) == XL_BOF &&
			binary.LittleEndian.Uint16(stream[off+6:]) == XL_WORKSHEET
	}

	n := 0
	for _, r := range parseRecords(t, stream) {
		if r.opcode != XL_BOUNDSHEET {
			continue
		}
		n++
		off := int(binary.LittleEndian.Uint32(r.data[0:4]))
		if !isSheetBOF(off) {
			t.Errorf("BOUNDSHEET offset %d does not point at a worksheet BOF", off)
		}
	}
	if n == 0 {
		t.Fatal("no BOUNDSHEET records")
	}

	sheets := 0
	for key, ext := range extents {
		if wk, ok := key.(WorksheetKey); ok {
			sheets++
			if !isSheetBOF(ext.Offset) {
				t.Errorf("worksheet %d extent offset %d does not point at a worksheet BOF", wk.Index, ext.Offset)
			}
			if tail := parseRecords(t, stream[ext.Offset:ext.Offset+ext.Length]); tail[len(tail)-1].opcode != XL_EOF {
				t.Errorf("worksheet %d extent does not end with EOF", wk.Index)
			}
		}
	}
	if sheets != n {
		t.Errorf("%d worksheet extents for %d BOUNDSHEET records", sheets, n)
	}
}

func TestBuildStreamExtents(t *testing.T) {
	wb := sampleWorkbook()
	wb.AddSheet("Empty")
	stream, extents := buildTestStream(t, wb)

	comp, ok := extents[SSTAndBoundsheetsKey{}]
	if !ok {
		t.Fatal("no SSTAndBoundsheetsKey extent")
	}
	region := parseRecords(t, stream[comp.Offset:comp.Offset+comp.Length])
	if got := len(filterRecords(region, XL_BOUNDSHEET)); got != 2 {
		t.Errorf("%d BOUNDSHEET records in composite region, want 2", got)
	}
	if got := len(filterRecords(region, XL_SST)); got != 1 {
		t.Errorf("%d SST records in composite region, want 1", got)
	}
	if got := len(filterRecords(region, XL_EXTSST)); got != 1 {
		t.Errorf("%d EXTSST records in composite region, want 1", got)
	}

	for _, kind := range []GlobalKind{GlobalWindow1, GlobalDatemode} {
		ext, ok := extents[GlobalRecordKey{Kind: kind}]
		if !ok {
			t.Fatalf("no extent for global kind %d", kind)
		}
		recs := parseRecords(t, stream[ext.Offset:ext.Offset+ext.Length])
		if len(recs) != 1 {
			t.Fatalf("global kind %d extent covers %d records, want 1", kind, len(recs))
		}
	}
	wext := extents[GlobalRecordKey{Kind: GlobalWindow1}]
	if op := binary.LittleEndian.Uint16(stream[wext.Offset:]); op != XL_WINDOW1 {
		t.Errorf("WINDOW1 extent points at opcode 0x%04x", op)
	}
	dext := extents[GlobalRecordKey{Kind: GlobalDatemode}]
	if op := binary.LittleEndian.Uint16(stream[dext.Offset:]); op != XL_DATEMODE {
		t.Errorf("DATEMODE extent points at opcode 0x%04x", op)
	}
}

func TestBuildStreamEXTSSTOffsets(t *testing.T) {
	wb := NewWorkbook()
	sh := wb.AddSheet("Sheet1")
	for i := 0; i < 20; i++ {
		sh.WriteStr(i, 0, "value-"+string(rune('a'+i)), DefaultStyle)
	}
	stream, _ := buildTestStream(t, wb)
	recs := parseRecords(t, stream)

	ext := filterRecords(recs, XL_EXTSST)
	if len(ext) != 1 {
		t.Fatalf("%d EXTSST records, want 1", len(ext))
	}
	data := ext[0].data
	for i := 0; i < (len(data)-2)/8; i++ {
		entry := data[2+8*i:]
		abs := int(binary.LittleEndian.Uint32(entry[0:4]))
		inRec := int(binary.LittleEndian.Uint16(entry[4:6]))
		op := binary.LittleEndian.Uint16(stream[abs:])
		if op != XL_SST && op != XL_CONTINUE {
			t.Fatalf("bucket %d record offset %d points at opcode 0x%04x", i, abs, op)
		}
		// the bucket's first string starts with its 2-byte header:
		// length byte then a zero option byte
		s := stream[abs+inRec:]
		if s[1] != 0 {
			t.Errorf("bucket %d: option byte = 0x%02x, want 0", i, s[1])
		}
		if int(s[0]) != len("value-x") {
			t.Errorf("bucket %d: length byte = %d, want %d", i, s[0], len("value-x"))
		}
	}
}

func TestSaveWritesCompoundDocument(t *testing.T) {
	var out bytes.Buffer
	extents, err := Save(sampleWorkbook(), &out, &SaveOptions{Logfile: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(extents) == 0 {
		t.Fatal("Save returned an empty extent map")
	}
	var sig [8]byte
	binary.LittleEndian.PutUint64(sig[:], cdSignature)
	if !bytes.HasPrefix(out.Bytes(), sig[:]) {
		t.Errorf("output does not start with the compound document signature")
	}
	if out.Len()%cdSectorSize != 0 {
		t.Errorf("output length %d is not sector aligned", out.Len())
	}
}

func TestSaveEncodingOverride(t *testing.T) {
	wb := NewWorkbook()
	sh := wb.AddSheet("Sheet1")
	sh.WriteStr(0, 0, "Ж", DefaultStyle)

	c, err := newWriteContext(wb, &SaveOptions{EncodingOverride: "cp1251"})
	if err != nil {
		t.Fatalf("newWriteContext: %v", err)
	}
	defer c.release()
	stream, _, err := c.buildStream()
	if err != nil {
		t.Fatalf("buildStream: %v", err)
	}
	recs := parseRecords(t, stream)
	cp := filterRecords(recs, XL_CODEPAGE)
	if len(cp) != 1 || binary.LittleEndian.Uint16(cp[0].data) != 1251 {
		t.Errorf("CODEPAGE = %v, want one record with value 1251", cp)
	}
	// the cyrillic string packs narrow under cp1251
	sst := filterRecords(recs, XL_SST)
	if opt := sst[0].data[9]; opt&strWide != 0 {
		t.Errorf("SST entry option byte = 0x%02x, want narrow", opt)
	}
}

func TestSaveVerboseLog(t *testing.T) {
	var log bytes.Buffer
	var out bytes.Buffer
	if _, err := Save(sampleWorkbook(), &out, &SaveOptions{Logfile: &log, Verbosity: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	msg := log.String()
	if !strings.Contains(msg, "1 sheet(s)") || !strings.Contains(msg, "total=3 distinct=2") {
		t.Errorf("log = %q, want sheet count and sst summary", msg)
	}
}

func TestSaveUnknownEncoding(t *testing.T) {
	wb := NewWorkbook()
	wb.Encoding = "klingon"
	wb.AddSheet("Sheet1")
	if _, err := Save(wb, &bytes.Buffer{}, nil); err == nil {
		t.Fatal("Save with unknown encoding did not fail")
	} else if !strings.Contains(err.Error(), "klingon") {
		t.Errorf("error %q does not name the encoding", err)
	}
}

func TestSaveOverlongStrings(t *testing.T) {
	long := strings.Repeat("q", 300)

	wb := NewWorkbook()
	wb.AddSheet("Sheet1").WriteStr(0, 0, long, DefaultStyle)
	if _, err := Save(wb, &bytes.Buffer{}, nil); err == nil {
		t.Error("Save accepted a 300-character cell string")
	}

	wb = NewWorkbook()
	wb.AddSheet(long)
	if _, err := Save(wb, &bytes.Buffer{}, nil); err == nil {
		t.Error("Save accepted a 300-character sheet name")
	}

	wb = NewWorkbook()
	f := DefaultFont
	f.Name = long
	wb.AddStyle(Style{Font: f})
	wb.AddSheet("Sheet1")
	if _, err := Save(wb, &bytes.Buffer{}, nil); err == nil {
		t.Error("Save accepted a 300-character font name")
	}
}

func TestWriteCellUnsupportedType(t *testing.T) {
	wb := NewWorkbook()
	sh := wb.AddSheet("Sheet1")
	sh.put(0, 0, Cell{CType: 99})
	c := mustContext(t, wb)
	defer c.release()
	if _, _, err := c.buildStream(); err == nil {
		t.Fatal("buildStream accepted an unsupported cell type")
	}
}

package xlwt

import (
	"encoding/binary"
	"io"
	"math"
)

// sheetWriter wraps one model sheet for the duration of a write call.
// It renders the sheet's BIFF body and reports the string values its
// cells reference, in cell order, so the shared string table can be
// built before any body bytes are fixed.
type sheetWriter struct {
	sheet  *Sheet
	styles *Styles
	sst    *SharedStringTable
	enc    *StringEncoder

	body RecordBuffer
}

func newSheetWriter(sheet *Sheet, styles *Styles, sst *SharedStringTable, enc *StringEncoder) *sheetWriter {
	return &sheetWriter{sheet: sheet, styles: styles, sst: sst, enc: enc}
}

// stringValues returns the ordered, possibly repeating sequence of
// string values referenced by the sheet's cells.
func (w *sheetWriter) stringValues() []string {
	var out []string
	for _, r := range w.sheet.rowIndexes() {
		for _, c := range w.sheet.colIndexes(r) {
			cell := w.sheet.rows[r][c]
			if cell.CType == XL_CELL_TEXT {
				out = append(out, cell.Value.(string))
			}
		}
	}
	return out
}

// boundsheetSize is the framed size of this sheet's BOUNDSHEET record.
func (w *sheetWriter) boundsheetSize() (int, error) {
	h, payload, _, err := w.enc.Pack(w.sheet.Name, 1)
	if err != nil {
		return 0, err
	}
	return 4 + 6 + len(h) + len(payload), nil
}

// writeBoundsheet emits the sheet-location record pointing at offset.
func (w *sheetWriter) writeBoundsheet(buf *RecordBuffer, offset int) error {
	data := make([]byte, 6)
	binary.LittleEndian.PutUint32(data[0:4], uint32(offset))
	data[4] = byte(w.sheet.Visibility)
	data[5] = XL_BOUNDSHEET_WORKSHEET
	h, payload, _, err := w.enc.Pack(w.sheet.Name, 1)
	if err != nil {
		return err
	}
	data = append(data, h...)
	buf.PutRecord(XL_BOUNDSHEET, append(data, payload...))
	return nil
}

// render builds the sheet body from scratch. The shared string table
// must be final before this runs: LABELSST records embed shared
// indices that must not change afterwards.
func (w *sheetWriter) render() error {
	w.body = RecordBuffer{}
	b := &w.body
	b.putBOF(XL_WORKSHEET)

	rows := w.sheet.rowIndexes()
	minRow, maxRow, minCol, maxCol := w.extent(rows)

	dim := make([]byte, 14)
	binary.LittleEndian.PutUint32(dim[0:4], uint32(minRow))
	binary.LittleEndian.PutUint32(dim[4:8], uint32(maxRow+1))
	binary.LittleEndian.PutUint16(dim[8:10], uint16(minCol))
	binary.LittleEndian.PutUint16(dim[10:12], uint16(maxCol+1))
	b.PutRecord(XL_DIMENSION, dim)

	for _, r := range rows {
		cols := w.sheet.colIndexes(r)
		w.writeRow(b, r, cols)
		for _, c := range cols {
			if err := w.writeCell(b, r, c, w.sheet.rows[r][c]); err != nil {
				return err
			}
		}
	}

	b.PutRecord(XL_EOF, nil)
	return nil
}

// renderPatch re-renders the body for patch mode. The body depends on
// the stored stream only through the shared indices, which the update
// mode has already fixed, so the base cursor and target offset are
// part of the contract but not consulted here.
func (w *sheetWriter) renderPatch(src io.ReadSeeker, target int, mode SSTUpdateMode) error {
	return w.render()
}

// renderedSize returns the byte size of the rendered body.
func (w *sheetWriter) renderedSize() int {
	return w.body.Len()
}

// bytes returns the finished body.
func (w *sheetWriter) bytes() []byte {
	return w.body.Bytes()
}

func (w *sheetWriter) extent(rows []int) (minRow, maxRow, minCol, maxCol int) {
	first := true
	for _, r := range rows {
		if first || r < minRow {
			minRow = r
		}
		if first || r > maxRow {
			maxRow = r
		}
		for _, c := range w.sheet.colIndexes(r) {
			if first || c < minCol {
				minCol = c
			}
			if first || c > maxCol {
				maxCol = c
			}
			first = false
		}
	}
	return
}

func (w *sheetWriter) writeRow(b *RecordBuffer, r int, cols []int) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint16(data[0:2], uint16(r))
	if len(cols) > 0 {
		binary.LittleEndian.PutUint16(data[2:4], uint16(cols[0]))
		binary.LittleEndian.PutUint16(data[4:6], uint16(cols[len(cols)-1]+1))
	}
	binary.LittleEndian.PutUint16(data[6:8], 0x00FF)   // default height
	binary.LittleEndian.PutUint16(data[12:14], 0x0100) // option flags
	binary.LittleEndian.PutUint16(data[14:16], DefaultXFIndex)
	b.PutRecord(XL_ROW, data)
}

func (w *sheetWriter) writeCell(b *RecordBuffer, r, c int, cell Cell) error {
	head := make([]byte, 6)
	binary.LittleEndian.PutUint16(head[0:2], uint16(r))
	binary.LittleEndian.PutUint16(head[2:4], uint16(c))
	binary.LittleEndian.PutUint16(head[4:6], uint16(w.styles.XFIndex(cell.Style)))

	switch cell.CType {
	case XL_CELL_TEXT:
		s := cell.Value.(string)
		idx, ok := w.sst.Index(s)
		if !ok {
			// empty strings have no SST entry
			b.PutRecord(XL_BLANK, head)
			return nil
		}
		data := append(head, 0, 0, 0, 0)
		binary.LittleEndian.PutUint32(data[6:10], uint32(idx))
		b.PutRecord(XL_LABELSST, data)
	case XL_CELL_NUMBER:
		data := append(head, make([]byte, 8)...)
		binary.LittleEndian.PutUint64(data[6:14], math.Float64bits(cell.Value.(float64)))
		b.PutRecord(XL_NUMBER, data)
	case XL_CELL_BOOLEAN:
		v := byte(0)
		if cell.Value.(bool) {
			v = 1
		}
		b.PutRecord(XL_BOOLERR, append(head, v, 0))
	case XL_CELL_ERROR:
		b.PutRecord(XL_BOOLERR, append(head, cell.Value.(byte), 1))
	case XL_CELL_BLANK, XL_CELL_EMPTY:
		b.PutRecord(XL_BLANK, head)
	default:
		return NewXLWTError("cell (%d,%d): unsupported cell type %d", r, c, cell.CType)
	}
	return nil
}

package xlwt

import (
	"fmt"
	"io"
	"os"
)

// SaveOptions contains options for writing a workbook.
type SaveOptions struct {
	// Logfile is an open file to which messages and diagnostics are
	// written.
	Logfile io.Writer

	// Verbosity increases the volume of trace material written to
	// the logfile.
	Verbosity int

	// EncodingOverride selects the 8-bit encoding instead of the
	// workbook's own Encoding field.
	EncodingOverride string
}

// writeContext is the transient state of one write call. Everything
// mutable during a write (string, font and format tables, worksheet
// wrappers) lives here, so independent calls against different
// workbooks never share state. It is created at call start and
// released on every exit path.
type writeContext struct {
	wb        *Workbook
	enc       *StringEncoder
	styles    *Styles
	sst       *SharedStringTable
	sheets    []*sheetWriter
	logfile   io.Writer
	verbosity int
}

func newWriteContext(wb *Workbook, opts *SaveOptions) (*writeContext, error) {
	if opts == nil {
		opts = &SaveOptions{}
	}
	encoding := wb.Encoding
	if opts.EncodingOverride != "" {
		encoding = opts.EncodingOverride
	}
	enc, err := NewStringEncoder(encoding)
	if err != nil {
		return nil, err
	}

	c := &writeContext{
		wb:        wb,
		enc:       enc,
		styles:    NewStyles(enc, wb),
		sst:       NewSharedStringTable(enc),
		logfile:   opts.Logfile,
		verbosity: opts.Verbosity,
	}
	if c.logfile == nil {
		c.logfile = os.Stdout
	}
	for _, s := range wb.Sheets() {
		c.sheets = append(c.sheets, newSheetWriter(s, c.styles, c.sst, enc))
	}
	return c, nil
}

// release drops the per-call tables. Runs deferred on every exit path
// of Save and Patch.
func (c *writeContext) release() {
	c.styles = nil
	c.sst = nil
	c.sheets = nil
}

// Save writes the workbook as a fresh BIFF stream inside a new
// compound document. It returns the map from semantic key to stream
// extent that a later incremental patch of this file needs.
func Save(wb *Workbook, w io.Writer, opts *SaveOptions) (StreamMap, error) {
	c, err := newWriteContext(wb, opts)
	if err != nil {
		return nil, err
	}
	defer c.release()

	stream, extents, err := c.buildStream()
	if err != nil {
		return nil, err
	}
	if err := writeContainer(w, stream); err != nil {
		return nil, err
	}
	return extents, nil
}

// writeContainer stores the finished BIFF stream as the named
// workbook stream of a new compound document over w.
func writeContainer(w io.Writer, stream []byte) error {
	doc := NewCompDocWriter(w)
	sw, err := doc.OpenStream("Workbook")
	if err != nil {
		return err
	}
	if _, err := sw.Write(stream); err != nil {
		return err
	}
	return doc.Close()
}

// buildStream produces the whole workbook stream and the extent map
// describing it. Output order: globals region, one BOUNDSHEET record
// per sheet, post-globals region (SST, EXTSST, EOF), then each
// sheet's body in declaration order.
func (c *writeContext) buildStream() ([]byte, StreamMap, error) {
	for _, sw := range c.sheets {
		for _, s := range sw.stringValues() {
			c.sst.Add(s)
		}
	}

	extents := make(StreamMap)
	globals := &RecordBuffer{}
	if err := c.writeGlobals(globals, extents); err != nil {
		return nil, nil, err
	}

	// A BOUNDSHEET's stored offset depends on the total size of all
	// BOUNDSHEET records, so sizes are summed before any offset is
	// assigned.
	bsTotal := 0
	for _, sw := range c.sheets {
		n, err := sw.boundsheetSize()
		if err != nil {
			return nil, nil, err
		}
		bsTotal += n
	}
	postStart := globals.Len() + bsTotal

	post := &RecordBuffer{}
	if err := c.sst.WriteTo(post, postStart); err != nil {
		return nil, nil, err
	}
	sstLen := post.Len()
	post.PutRecord(XL_EOF, nil)

	// Sheet bodies render only now: the SST is final, so the shared
	// indices embedded in cell records cannot change anymore.
	bodyStart := postStart + post.Len()
	offset := bodyStart
	bounds := &RecordBuffer{}
	for i, sw := range c.sheets {
		if err := sw.render(); err != nil {
			return nil, nil, err
		}
		if err := sw.writeBoundsheet(bounds, offset); err != nil {
			return nil, nil, err
		}
		extents[WorksheetKey{Index: i}] = StreamExtent{Offset: offset, Length: sw.renderedSize()}
		offset += sw.renderedSize()
	}
	extents[SSTAndBoundsheetsKey{}] = StreamExtent{Offset: globals.Len(), Length: bsTotal + sstLen}

	out := make([]byte, 0, offset)
	out = append(out, globals.Bytes()...)
	out = append(out, bounds.Bytes()...)
	out = append(out, post.Bytes()...)
	for _, sw := range c.sheets {
		out = append(out, sw.bytes()...)
	}

	if c.verbosity > 0 {
		fmt.Fprintf(c.logfile, "wrote %d sheet(s), %d bytes, sst total=%d distinct=%d\n",
			len(c.sheets), len(out), c.sst.Total(), len(c.sst.Strings()))
	}
	return out, extents, nil
}

// writeGlobals emits the workbook globals region and records the
// extents of the globals that patch mode can re-render individually.
func (c *writeContext) writeGlobals(b *RecordBuffer, extents StreamMap) error {
	b.putBOF(XL_WORKBOOK_GLOBALS)
	b.PutUint16Record(XL_CODEPAGE, uint16(c.enc.Codepage()))
	b.PutUint16Record(XL_DSF, 0)

	tabs := make([]byte, 0, 2*len(c.sheets))
	for i := range c.sheets {
		tabs = append(tabs, byte(i+1), byte((i+1)>>8))
	}
	b.PutRecord(XL_TABID, tabs)

	b.PutUint16Record(XL_WINDOWPROT, 0)
	b.PutUint16Record(XL_PROTECT, 0)
	b.PutUint16Record(XL_PASSWORD, 0)
	b.PutUint16Record(XL_PRECISION, 1)
	b.PutUint16Record(XL_REFRESHALL, 0)
	b.PutUint16Record(XL_BOOKBOOL, 0)
	b.PutUint16Record(XL_HIDEOBJ, 0)

	extents[GlobalRecordKey{Kind: GlobalWindow1}] = StreamExtent{Offset: b.Len(), Length: 4 + 18}
	b.PutRecord(XL_WINDOW1, c.window1Record())

	extents[GlobalRecordKey{Kind: GlobalDatemode}] = StreamExtent{Offset: b.Len(), Length: 4 + 2}
	b.PutRecord(XL_DATEMODE, c.datemodeRecord())

	if err := c.styles.writeFonts(b); err != nil {
		return err
	}
	if err := c.styles.writeFormats(b); err != nil {
		return err
	}
	c.styles.writeXFs(b)
	c.styles.writeStyle(b)
	return nil
}

func (c *writeContext) window1Record() []byte {
	data := make([]byte, 18)
	put := func(off int, v uint16) {
		data[off] = byte(v)
		data[off+1] = byte(v >> 8)
	}
	put(0, 0x01E0)  // horizontal position
	put(2, 0x005A)  // vertical position
	put(4, 0x3FCF)  // width
	put(6, 0x2A4E)  // height
	put(8, 0x0038)  // option flags
	put(10, 0)      // active tab
	put(12, 0)      // first visible tab
	put(14, 1)      // selected tab count
	put(16, 0x0258) // tab bar width ratio
	return data
}

func (c *writeContext) datemodeRecord() []byte {
	if c.wb.Mode1904 {
		return []byte{1, 0}
	}
	return []byte{0, 0}
}

// renderGlobal re-renders one individually patchable global record.
func (c *writeContext) renderGlobal(kind GlobalKind) ([]byte, error) {
	b := &RecordBuffer{}
	switch kind {
	case GlobalWindow1:
		b.PutRecord(XL_WINDOW1, c.window1Record())
	case GlobalDatemode:
		b.PutRecord(XL_DATEMODE, c.datemodeRecord())
	default:
		return nil, NewXLWTError("unknown global record kind %d", kind)
	}
	return b.Bytes(), nil
}

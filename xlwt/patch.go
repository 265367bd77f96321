package xlwt

import (
	"bytes"
	"io"
	"sort"
)

// ChangeKey names one patchable region of a stored workbook stream.
// The variant is closed: a worksheet body, an individually re-rendered
// global record, or the coupled BOUNDSHEET/SST region that must move
// together because SST size changes shift every sheet offset.
type ChangeKey interface {
	isChangeKey()
}

// WorksheetKey addresses the body of the worksheet at Index in
// declaration order.
type WorksheetKey struct {
	Index int
}

// GlobalRecordKey addresses one re-renderable global record.
type GlobalRecordKey struct {
	Kind GlobalKind
}

// SSTAndBoundsheetsKey addresses the composite region holding every
// BOUNDSHEET record plus the SST and EXTSST records.
type SSTAndBoundsheetsKey struct{}

func (WorksheetKey) isChangeKey()         {}
func (GlobalRecordKey) isChangeKey()      {}
func (SSTAndBoundsheetsKey) isChangeKey() {}

// GlobalKind enumerates the global records patch mode can re-render.
type GlobalKind int

const (
	GlobalWindow1 GlobalKind = iota
	GlobalDatemode
)

// StreamExtent is the position of one region in a stored stream.
type StreamExtent struct {
	Offset int
	Length int
}

// StreamMap locates every patchable region of a stored stream. Save
// produces it; Patch consumes and reproduces it. The writer does not
// re-validate it against the stream: a stale or corrupt map produces
// undefined output.
type StreamMap map[ChangeKey]StreamExtent

// PatchSpec describes an incremental patch of a stored stream.
type PatchSpec struct {
	// Source reads the existing workbook stream. A single cursor is
	// repositioned sequentially; concurrent readers are not supported.
	Source io.ReadSeeker

	// Extents locates every patchable region in Source.
	Extents StreamMap

	// Changed lists the regions the caller modified.
	Changed []ChangeKey

	// PrevStrings holds the distinct shared strings as previously
	// stored, in index order. It decides between a partial and a
	// complete SST update.
	PrevStrings []string
}

type substitution struct {
	key    ChangeKey
	old    StreamExtent
	data   []byte
	newLen int
}

// Patch rewrites only the changed regions of a previously stored
// workbook stream, copying every unaffected byte verbatim, and stores
// the result in a new compound document over w. It returns the extent
// map of the new stream. The source is never written: a mid-write
// failure leaves it untouched.
func Patch(wb *Workbook, p *PatchSpec, w io.Writer, opts *SaveOptions) (StreamMap, error) {
	c, err := newWriteContext(wb, opts)
	if err != nil {
		return nil, err
	}
	defer c.release()

	stream, newMap, err := c.patchStream(p)
	if err != nil {
		return nil, err
	}
	if err := writeContainer(w, stream); err != nil {
		return nil, err
	}
	return newMap, nil
}

func (c *writeContext) patchStream(p *PatchSpec) ([]byte, StreamMap, error) {
	// Re-scan all worksheets for the currently required string set;
	// the update mode depends on comparing it against the stored one.
	for _, sw := range c.sheets {
		for _, s := range sw.stringValues() {
			c.sst.Add(s)
		}
	}
	mode := c.sst.PlanUpdate(p.PrevStrings)

	changed := make(map[ChangeKey]bool)
	for _, k := range p.Changed {
		changed[k] = true
	}
	if mode == SSTComplete {
		// Every previously assigned index is discarded, so any sheet
		// holding string cells now carries stale indices.
		for i, sw := range c.sheets {
			if len(sw.stringValues()) > 0 {
				changed[WorksheetKey{Index: i}] = true
			}
		}
	}

	sstDirty := changed[SSTAndBoundsheetsKey{}] ||
		mode == SSTComplete ||
		len(c.sst.Strings()) != len(p.PrevStrings)
	for k := range changed {
		if _, ok := k.(WorksheetKey); ok {
			// a resized body shifts every following sheet, which
			// invalidates the stored BOUNDSHEET offsets
			sstDirty = true
		}
	}
	if sstDirty {
		changed[SSTAndBoundsheetsKey{}] = true
	}

	subs, err := c.renderSubstitutions(p, changed, mode)
	if err != nil {
		return nil, nil, err
	}

	stream, err := spliceStream(p.Source, subs)
	if err != nil {
		return nil, nil, err
	}

	newMap := make(StreamMap, len(p.Extents))
	for k, ext := range p.Extents {
		n := StreamExtent{Offset: ext.Offset + deltaBefore(subs, ext.Offset), Length: ext.Length}
		for _, s := range subs {
			if s.key == k {
				n.Length = s.newLen
			}
		}
		newMap[k] = n
	}
	return stream, newMap, nil
}

// renderSubstitutions produces the replacement bytes for every changed
// key, dispatching exhaustively over the change-key variant.
func (c *writeContext) renderSubstitutions(p *PatchSpec, changed map[ChangeKey]bool, mode SSTUpdateMode) ([]substitution, error) {
	subs := make([]substitution, 0, len(changed))
	for k := range changed {
		ext, ok := p.Extents[k]
		if !ok {
			return nil, NewXLWTError("change key %v is missing from the stream map", k)
		}
		subs = append(subs, substitution{key: k, old: ext})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].old.Offset < subs[j].old.Offset })

	bsTotal := 0
	for _, sw := range c.sheets {
		n, err := sw.boundsheetSize()
		if err != nil {
			return nil, err
		}
		bsTotal += n
	}

	// First pass fixes every substitution's size; the composite
	// region needs all deltas known before its bytes exist.
	for i := range subs {
		switch k := subs[i].key.(type) {
		case WorksheetKey:
			if k.Index < 0 || k.Index >= len(c.sheets) {
				return nil, NewXLWTError("worksheet index %d out of range", k.Index)
			}
			sw := c.sheets[k.Index]
			if err := sw.renderPatch(p.Source, subs[i].old.Offset, mode); err != nil {
				return nil, err
			}
			subs[i].data = sw.bytes()
			subs[i].newLen = sw.renderedSize()
		case GlobalRecordKey:
			data, err := c.renderGlobal(k.Kind)
			if err != nil {
				return nil, err
			}
			subs[i].data = data
			subs[i].newLen = len(data)
		case SSTAndBoundsheetsKey:
			size, err := c.sst.EncodedSize()
			if err != nil {
				return nil, err
			}
			subs[i].newLen = bsTotal + size
		default:
			return nil, NewXLWTError("unhandled change key type %T", k)
		}
	}

	for i := range subs {
		if _, ok := subs[i].key.(SSTAndBoundsheetsKey); !ok {
			continue
		}
		regionStart := subs[i].old.Offset + deltaBefore(subs, subs[i].old.Offset)
		bounds := &RecordBuffer{}
		for j, sw := range c.sheets {
			oldExt, ok := p.Extents[WorksheetKey{Index: j}]
			if !ok {
				return nil, NewXLWTError("worksheet %d is missing from the stream map", j)
			}
			if err := sw.writeBoundsheet(bounds, oldExt.Offset+deltaBefore(subs, oldExt.Offset)); err != nil {
				return nil, err
			}
		}
		post := &RecordBuffer{}
		if err := c.sst.WriteTo(post, regionStart+bsTotal); err != nil {
			return nil, err
		}
		subs[i].data = append(bounds.Bytes(), post.Bytes()...)
	}
	return subs, nil
}

// deltaBefore sums the size deltas of every substitution located
// strictly before off in the source stream.
func deltaBefore(subs []substitution, off int) int {
	d := 0
	for _, s := range subs {
		if s.old.Offset < off {
			d += s.newLen - s.old.Length
		}
	}
	return d
}

// spliceStream assembles the patched stream: verbatim bytes between
// substitutions, replacement bytes at each one, then the verbatim
// tail.
func spliceStream(src io.ReadSeeker, subs []substitution) ([]byte, error) {
	var out bytes.Buffer
	pos := 0
	for _, s := range subs {
		if err := copySection(src, &out, pos, s.old.Offset); err != nil {
			return nil, err
		}
		out.Write(s.data)
		pos = s.old.Offset + s.old.Length
	}
	if _, err := src.Seek(int64(pos), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.Copy(&out, src); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func copySection(src io.ReadSeeker, dst io.Writer, from, to int) error {
	if to < from {
		return NewXLWTError("overlapping substitutions at offset %d; stream map is stale", to)
	}
	if _, err := src.Seek(int64(from), io.SeekStart); err != nil {
		return err
	}
	_, err := io.Copy(dst, io.LimitReader(src, int64(to-from)))
	return err
}

package xlwt

import "encoding/binary"

// SSTUpdateMode tells patch mode how the stored shared string table is
// being rewritten.
type SSTUpdateMode int

const (
	// SSTPartial appends newly introduced strings after the stored
	// ones; every previously assigned shared index stays valid.
	SSTPartial SSTUpdateMode = iota
	// SSTComplete reassigns every index from scratch; cached indices
	// in untouched worksheets are stale and those sheets must be
	// rewritten.
	SSTComplete
)

// extSSTBucketSize is the number of distinct strings per EXTSST entry.
const extSSTBucketSize = 8

// SharedStringTable deduplicates the text values referenced by every
// worksheet of one workbook and assigns each distinct value a stable
// small integer index. One table exists per write context.
type SharedStringTable struct {
	enc     *StringEncoder
	indexes map[string]int
	order   []string
	total   int
}

// NewSharedStringTable returns an empty table using enc for entries.
func NewSharedStringTable(enc *StringEncoder) *SharedStringTable {
	return &SharedStringTable{enc: enc, indexes: make(map[string]int)}
}

// Add registers one string-bearing cell reference and returns the
// shared index of its value. Duplicates raise the total reference
// count only. The empty string is counted but never stored; it gets
// index -1 and no SST entry.
func (t *SharedStringTable) Add(s string) int {
	t.total++
	if s == "" {
		return -1
	}
	if idx, ok := t.indexes[s]; ok {
		return idx
	}
	idx := len(t.order)
	t.indexes[s] = idx
	t.order = append(t.order, s)
	return idx
}

// Index returns the shared index assigned to s. Worksheet cell
// encoders embed this value in LABELSST records.
func (t *SharedStringTable) Index(s string) (int, bool) {
	idx, ok := t.indexes[s]
	return idx, ok
}

// Total returns the count of all string-bearing references seen,
// duplicates included.
func (t *SharedStringTable) Total() int {
	return t.total
}

// Strings returns the distinct values in index order.
func (t *SharedStringTable) Strings() []string {
	return t.order
}

// PlanUpdate decides between a partial and a complete rewrite of a
// previously stored table. A partial update is valid only when every
// previously stored distinct string is still required now; the table
// is then reordered so stored strings keep their old indices and new
// ones are appended after them in first-seen order.
func (t *SharedStringTable) PlanUpdate(prev []string) SSTUpdateMode {
	for _, s := range prev {
		if _, ok := t.indexes[s]; !ok {
			return SSTComplete
		}
	}
	added := make([]string, 0, len(t.order))
	for _, s := range t.order {
		keep := true
		for _, p := range prev {
			if s == p {
				keep = false
				break
			}
		}
		if keep {
			added = append(added, s)
		}
	}
	t.order = append(append([]string(nil), prev...), added...)
	for i, s := range t.order {
		t.indexes[s] = i
	}
	return SSTPartial
}

// WriteTo emits the SST record (with continuations) followed by the
// EXTSST index record. streamPos is the absolute offset in the final
// stream at which the SST record will start; EXTSST entries store
// absolute record offsets derived from it.
func (t *SharedStringTable) WriteTo(buf *RecordBuffer, streamPos int) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(t.total))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(t.order)))

	sp := newStringPieces(header)
	type bucketPos struct{ piece, offset int }
	var buckets []bucketPos
	for i, s := range t.order {
		h, payload, wide, err := t.enc.Pack(s, 1)
		if err != nil {
			return err
		}
		piece, offset := sp.add(h, payload, wide)
		if i%extSSTBucketSize == 0 {
			buckets = append(buckets, bucketPos{piece, offset})
		}
	}
	pieces := sp.close()

	// Absolute offset of each piece's record header.
	recordPos := make([]int, len(pieces))
	pos := streamPos
	for i, p := range pieces {
		recordPos[i] = pos
		pos += 4 + len(p)
	}

	opcode := XL_SST
	for _, p := range pieces {
		buf.PutRecord(opcode, p)
		opcode = XL_CONTINUE
	}

	ext := make([]byte, 2, 2+8*len(buckets))
	binary.LittleEndian.PutUint16(ext, extSSTBucketSize)
	for _, bp := range buckets {
		var entry [8]byte
		binary.LittleEndian.PutUint32(entry[0:4], uint32(recordPos[bp.piece]))
		// in-record offset counted from the record's opcode byte
		binary.LittleEndian.PutUint16(entry[4:6], uint16(4+bp.offset))
		binary.LittleEndian.PutUint16(entry[6:8], 0)
		ext = append(ext, entry[:]...)
	}
	buf.PutRecordAll(XL_EXTSST, ext)
	return nil
}

// EncodedSize returns the byte size of the SST and EXTSST records as
// WriteTo would emit them. Patch mode uses it to compute the size
// delta that shifts every subsequent sheet offset.
func (t *SharedStringTable) EncodedSize() (int, error) {
	var tmp RecordBuffer
	if err := t.WriteTo(&tmp, 0); err != nil {
		return 0, err
	}
	return tmp.Len(), nil
}

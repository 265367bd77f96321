package xlwt

import "encoding/binary"

// RecordBuffer accumulates the byte image of one region of a BIFF stream.
// Sub-components append records to a buffer owned by the orchestrator
// instead of returning disconnected fragments.
type RecordBuffer struct {
	buf []byte
}

// Len returns the number of bytes written so far.
func (b *RecordBuffer) Len() int {
	return len(b.buf)
}

// Bytes returns the accumulated stream image.
func (b *RecordBuffer) Bytes() []byte {
	return b.buf
}

// PutRecord writes one record: a 2-byte opcode, a 2-byte payload length
// and the payload. If data exceeds MaxRecordSize only the first
// MaxRecordSize bytes are written under opcode and the remainder is
// returned; callers that know how to re-frame the overflow loop on it.
func (b *RecordBuffer) PutRecord(opcode int, data []byte) []byte {
	chunk := data
	var rest []byte
	if len(data) > MaxRecordSize {
		chunk = data[:MaxRecordSize]
		rest = data[MaxRecordSize:]
	}
	b.buf = append(b.buf, byte(opcode), byte(opcode>>8), byte(len(chunk)), byte(len(chunk)>>8))
	b.buf = append(b.buf, chunk...)
	return rest
}

// PutRecordAll writes data as one record plus as many CONTINUE records
// as its length requires. Strings need the splitter in strings.go
// instead; this loop is for payloads without an option-byte prefix.
func (b *RecordBuffer) PutRecordAll(opcode int, data []byte) {
	rest := b.PutRecord(opcode, data)
	for rest != nil {
		rest = b.PutRecord(XL_CONTINUE, rest)
	}
}

// PutUint16Record writes a fixed two-byte record. Most placeholder
// records in the globals region (protection, precision, refresh and
// the boolean flags) are written through this with a default value,
// since the writer does not make them configurable.
func (b *RecordBuffer) PutUint16Record(opcode int, value uint16) {
	b.buf = append(b.buf, byte(opcode), byte(opcode>>8), 2, 0, byte(value), byte(value>>8))
}

// putBOF writes a BOF record for the given stream type.
func (b *RecordBuffer) putBOF(streamType int) {
	var data [12]byte
	binary.LittleEndian.PutUint16(data[0:2], biffVersion)
	binary.LittleEndian.PutUint16(data[2:4], uint16(streamType))
	binary.LittleEndian.PutUint16(data[4:6], biffBuildID)
	binary.LittleEndian.PutUint16(data[6:8], biffBuildYr)
	binary.LittleEndian.PutUint16(data[8:10], biffHistory)
	binary.LittleEndian.PutUint16(data[10:12], biffLowVer)
	b.PutRecord(XL_BOF, data[:])
}

package xlwt

import (
	"encoding/binary"
	"testing"
)

type rawRecord struct {
	opcode int
	data   []byte
}

// parseRecords walks a BIFF stream image and returns its records.
func parseRecords(t *testing.T, stream []byte) []rawRecord {
	t.Helper()
	var recs []rawRecord
	pos := 0
	for pos < len(stream) {
		if pos+4 > len(stream) {
			t.Fatalf("truncated record header at offset %d", pos)
		}
		opcode := int(binary.LittleEndian.Uint16(stream[pos : pos+2]))
		length := int(binary.LittleEndian.Uint16(stream[pos+2 : pos+4]))
		pos += 4
		if pos+length > len(stream) {
			t.Fatalf("record 0x%04x at offset %d overruns the stream", opcode, pos-4)
		}
		recs = append(recs, rawRecord{opcode: opcode, data: stream[pos : pos+length]})
		pos += length
	}
	return recs
}

func filterRecords(recs []rawRecord, opcode int) []rawRecord {
	var out []rawRecord
	for _, r := range recs {
		if r.opcode == opcode {
			out = append(out, r)
		}
	}
	return out
}

func mustContext(t *testing.T, wb *Workbook) *writeContext {
	t.Helper()
	c, err := newWriteContext(wb, nil)
	if err != nil {
		t.Fatalf("newWriteContext: %v", err)
	}
	return c
}

package xlwt

import (
	"encoding/binary"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// Option flag bits of a BIFF8 unicode string header.
const (
	strWide     = 0x01 // 16 bits per character
	strPhonetic = 0x04
	strRichtext = 0x08
)

// StringEncoder packs text values into the BIFF8 unicode string layout.
// Strings whose characters all fit the configured 8-bit encoding are
// written compressed, one byte per character; everything else is
// written as UTF-16-LE.
type StringEncoder struct {
	name     string
	cm       *charmap.Charmap
	codepage int
}

// NewStringEncoder returns an encoder for the named 8-bit encoding.
// An empty name selects latin_1. An unknown name is a configuration
// error and aborts the write that requested it.
func NewStringEncoder(name string) (*StringEncoder, error) {
	if name == "" {
		name = "latin_1"
	}
	cm, ok := charmapFromEncoding[name]
	if !ok {
		return nil, NewXLWTError("unknown or unsupported encoding %q", name)
	}
	return &StringEncoder{name: name, cm: cm, codepage: codepageFromEncoding[name]}, nil
}

// Name returns the configured encoding name.
func (e *StringEncoder) Name() string {
	return e.name
}

// Codepage returns the value to store in the CODEPAGE record.
func (e *StringEncoder) Codepage() int {
	return e.codepage
}

// Pack encodes text with the chosen length-prefix width (1 or 2 bytes).
// It returns the header (length prefix plus the option byte), the
// character payload and the width flag separately so callers can
// interleave them with continuation framing. A character count that
// does not fit the chosen prefix width is an error: a truncated length
// byte would desynchronize every record that follows.
func (e *StringEncoder) Pack(text string, lenlen int) (header, payload []byte, wide bool, err error) {
	payload, ok := e.narrow(text)
	var nchars int
	if ok {
		nchars = len(payload)
	} else {
		units := utf16.Encode([]rune(text))
		nchars = len(units)
		payload = make([]byte, 2*len(units))
		for i, u := range units {
			binary.LittleEndian.PutUint16(payload[2*i:], u)
		}
		wide = true
	}

	limit := 0xFF
	if lenlen != 1 {
		limit = 0xFFFF
	}
	if nchars > limit {
		name := text
		if len(name) > 32 {
			name = name[:32] + "..."
		}
		return nil, nil, false, NewXLWTError("string %q is %d characters; at most %d fit a %d-byte length prefix",
			name, nchars, limit, lenlen)
	}

	if lenlen == 1 {
		header = make([]byte, 2)
		header[0] = byte(nchars)
	} else {
		header = make([]byte, 3)
		binary.LittleEndian.PutUint16(header, uint16(nchars))
	}
	if wide {
		header[len(header)-1] = strWide
	}
	return header, payload, wide, nil
}

// narrow attempts the compressed encoding; ok is false when any
// character falls outside the configured 8-bit repertoire.
func (e *StringEncoder) narrow(text string) ([]byte, bool) {
	out, err := e.cm.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, false
	}
	return out, true
}

// stringPieces assembles the payload of one logical record holding a
// run of unicode strings, splitting it at the record size limit.
// pieces[0] goes out under the primary opcode, every later piece under
// XL_CONTINUE. Each continuation piece starts with a single option
// byte carrying only the character-width flag; richtext and phonetic
// bits are never set in continuations.
type stringPieces struct {
	done    [][]byte
	current []byte
}

func newStringPieces(header []byte) *stringPieces {
	return &stringPieces{current: append([]byte(nil), header...)}
}

// add lays one encoded string into the pieces and reports the piece
// index and the offset of its header within that piece, which the
// EXTSST builder records for every bucket leader.
func (p *stringPieces) add(header, payload []byte, wide bool) (piece, offset int) {
	if len(p.current)+len(header) > MaxRecordSize {
		p.startContinuation(wide)
	}
	piece = len(p.done)
	offset = len(p.current)
	p.current = append(p.current, header...)

	chars := payload
	for len(chars) > 0 {
		room := MaxRecordSize - len(p.current)
		if wide {
			room &^= 1 // never split a 16-bit unit
		}
		if room <= 0 {
			chars, wide = p.continueString(chars, wide)
			continue
		}
		n := room
		if n > len(chars) {
			n = len(chars)
		}
		p.current = append(p.current, chars[:n]...)
		chars = chars[n:]
		if len(chars) > 0 {
			chars, wide = p.continueString(chars, wide)
		}
	}
	return piece, offset
}

// continueString closes the full piece and opens the continuation that
// carries the rest of the string in progress. A wide remainder whose
// characters all fit in 8 bits is re-encoded compressed to save space.
func (p *stringPieces) continueString(rest []byte, wide bool) ([]byte, bool) {
	if wide && narrowable(rest) {
		narrowed := make([]byte, len(rest)/2)
		for i := range narrowed {
			narrowed[i] = rest[2*i]
		}
		rest = narrowed
		wide = false
	}
	p.startContinuation(wide)
	return rest, wide
}

func (p *stringPieces) startContinuation(wide bool) {
	p.done = append(p.done, p.current)
	g := byte(0)
	if wide {
		g = strWide
	}
	p.current = []byte{g}
}

// currentLen reports the fill of the piece being assembled.
func (p *stringPieces) currentLen() int {
	return len(p.current)
}

// close returns the assembled piece payloads.
func (p *stringPieces) close() [][]byte {
	if p.current != nil {
		p.done = append(p.done, p.current)
		p.current = nil
	}
	return p.done
}

func narrowable(wideBytes []byte) bool {
	for i := 1; i < len(wideBytes); i += 2 {
		if wideBytes[i] != 0 {
			return false
		}
	}
	return true
}

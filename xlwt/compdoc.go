package xlwt

import (
	"encoding/binary"
	"io"
	"unicode/utf16"
)

// OLE2 compound document constants (v3: 512-byte sectors, 64-byte
// mini sectors, 4096-byte mini stream cutoff).
const (
	cdSectorSize     = 512
	cdMiniSectorSize = 64
	cdMiniCutoff     = 4096

	cdSignature = 0xe11ab1a1e011cfd0

	secFree       uint32 = 0xFFFFFFFF
	secEndOfChain uint32 = 0xFFFFFFFE
	secFAT        uint32 = 0xFFFFFFFD
	secNoStream   uint32 = 0xFFFFFFFF
)

type compDocHeader struct {
	Signature                    uint64
	ClassID                      [2]uint64
	MinorVersion                 uint16
	MajorVersion                 uint16
	ByteOrder                    uint16
	SectorShift                  uint16
	MiniSectorShift              uint16
	Reserved1                    [6]byte
	NumDirectorySectors          int32
	NumFATSectors                int32
	FirstDirectorySectorLocation uint32
	TransactionSignature         int32
	MiniStreamCutoffSize         int32
	FirstMiniFATSectorLocation   uint32
	NumMiniFATSectors            int32
	FirstDIFATSectorLocation     uint32
	NumDIFATSectors              int32
	DIFAT                        [109]uint32
}

type compDocDirEntry struct {
	Name                   [32]uint16
	NameByteLen            int16
	ObjectType             byte
	ColorFlag              byte
	LeftSiblingID          uint32
	RightSiblingID         uint32
	ChildID                uint32
	ClassID                [2]uint64
	StateBits              uint32
	CreationTime           int64
	ModifiedTime           int64
	StartingSectorLocation uint32
	StreamSize             uint64
}

// StreamWriter is the sequential writer for one named stream of a
// compound document. The current position is queryable; the worksheet
// and record writers rely on it for offset bookkeeping.
type StreamWriter struct {
	name string
	buf  []byte
}

func (s *StreamWriter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Position returns the number of bytes written to the stream so far.
func (s *StreamWriter) Position() int {
	return len(s.buf)
}

// CompDocWriter builds a new OLE2 compound document over a byte sink.
// Streams are collected in memory and the container is laid out and
// flushed on Close.
type CompDocWriter struct {
	w       io.Writer
	streams []*StreamWriter
}

// NewCompDocWriter scopes a compound document over w.
func NewCompDocWriter(w io.Writer) *CompDocWriter {
	return &CompDocWriter{w: w}
}

// OpenStream opens a named stream for sequential writing. Names are
// limited to 31 characters by the directory entry layout.
func (d *CompDocWriter) OpenStream(name string) (*StreamWriter, error) {
	if len(utf16.Encode([]rune(name))) > 31 {
		return nil, NewXLWTError("stream name %q is too long", name)
	}
	for _, s := range d.streams {
		if s.name == name {
			return nil, NewXLWTError("stream %q is already open", name)
		}
	}
	s := &StreamWriter{name: name}
	d.streams = append(d.streams, s)
	return s, nil
}

// Close lays out the container and writes it to the sink.
func (d *CompDocWriter) Close() error {
	var miniData []byte
	type placed struct {
		stream *StreamWriter
		mini   bool
		start  uint32
	}
	placement := make([]placed, len(d.streams))

	// Mini streams share the root entry's mini stream; their chains
	// live in the mini FAT.
	var miniFAT []uint32
	for i, s := range d.streams {
		if len(s.buf) >= cdMiniCutoff || len(s.buf) == 0 {
			continue
		}
		nsec := (len(s.buf) + cdMiniSectorSize - 1) / cdMiniSectorSize
		placement[i] = placed{stream: s, mini: true, start: uint32(len(miniFAT))}
		for j := 0; j < nsec-1; j++ {
			miniFAT = append(miniFAT, uint32(len(miniFAT))+1)
		}
		miniFAT = append(miniFAT, secEndOfChain)
		miniData = append(miniData, s.buf...)
		miniData = append(miniData, make([]byte, nsec*cdMiniSectorSize-len(s.buf))...)
	}

	dirSectors := padSectors(128 * (1 + len(d.streams)))
	miniFATSectors := padSectors(4 * len(miniFAT))
	miniStreamSectors := padSectors(len(miniData))
	bigSectors := 0
	for _, s := range d.streams {
		if len(s.buf) >= cdMiniCutoff {
			bigSectors += padSectors(len(s.buf))
		}
	}

	dataSectors := dirSectors + miniFATSectors + miniStreamSectors + bigSectors
	fatSectors := (dataSectors + 126) / 127
	for fatSectors*127 < dataSectors {
		fatSectors++
	}
	if fatSectors > 109 {
		return NewXLWTError("workbook too large for a single-DIFAT compound document")
	}

	dirStart := uint32(fatSectors)
	miniFATStart := dirStart + uint32(dirSectors)
	miniStreamStart := miniFATStart + uint32(miniFATSectors)
	bigStart := miniStreamStart + uint32(miniStreamSectors)

	next := bigStart
	for i, s := range d.streams {
		if len(s.buf) < cdMiniCutoff {
			continue
		}
		placement[i] = placed{stream: s, start: next}
		next += uint32(padSectors(len(s.buf)))
	}

	fat := make([]uint32, 0, fatSectors+dataSectors)
	for i := 0; i < fatSectors; i++ {
		fat = append(fat, secFAT)
	}
	chain := func(start uint32, nsec int) {
		for i := 0; i < nsec-1; i++ {
			fat = append(fat, start+uint32(i)+1)
		}
		if nsec > 0 {
			fat = append(fat, secEndOfChain)
		}
	}
	chain(dirStart, dirSectors)
	chain(miniFATStart, miniFATSectors)
	chain(miniStreamStart, miniStreamSectors)
	for i, s := range d.streams {
		if len(s.buf) >= cdMiniCutoff {
			chain(placement[i].start, padSectors(len(s.buf)))
		}
	}

	h := compDocHeader{
		Signature:                    cdSignature,
		MinorVersion:                 0x003E,
		MajorVersion:                 3,
		ByteOrder:                    0xFFFE,
		SectorShift:                  9,
		MiniSectorShift:              6,
		NumFATSectors:                int32(fatSectors),
		FirstDirectorySectorLocation: dirStart,
		MiniStreamCutoffSize:         cdMiniCutoff,
		FirstMiniFATSectorLocation:   secEndOfChain,
		NumMiniFATSectors:            int32(miniFATSectors),
		FirstDIFATSectorLocation:     secEndOfChain,
	}
	if miniFATSectors > 0 {
		h.FirstMiniFATSectorLocation = miniFATStart
	}
	for i := range h.DIFAT {
		if i < fatSectors {
			h.DIFAT[i] = uint32(i)
		} else {
			h.DIFAT[i] = secFree
		}
	}

	root := compDocDirEntry{
		ObjectType:             5, // root storage
		ColorFlag:              1,
		LeftSiblingID:          secNoStream,
		RightSiblingID:         secNoStream,
		ChildID:                secNoStream,
		StartingSectorLocation: secEndOfChain,
		StreamSize:             uint64(len(miniData)),
	}
	setDirName(&root, "Root Entry")
	if len(miniData) > 0 {
		root.StartingSectorLocation = miniStreamStart
	}
	if len(d.streams) > 0 {
		root.ChildID = 1
	}

	entries := []compDocDirEntry{root}
	for i, s := range d.streams {
		e := compDocDirEntry{
			ObjectType:             2, // stream
			ColorFlag:              1,
			LeftSiblingID:          secNoStream,
			RightSiblingID:         secNoStream,
			ChildID:                secNoStream,
			StartingSectorLocation: secEndOfChain,
			StreamSize:             uint64(len(s.buf)),
		}
		setDirName(&e, s.name)
		if len(s.buf) > 0 {
			e.StartingSectorLocation = placement[i].start
		}
		if i+1 < len(d.streams) {
			e.RightSiblingID = uint32(i + 2)
		}
		entries = append(entries, e)
	}

	return d.flush(&h, fat, entries, dirSectors, miniFAT, miniFATSectors, miniData, miniStreamSectors)
}

func (d *CompDocWriter) flush(h *compDocHeader, fat []uint32, entries []compDocDirEntry,
	dirSectors int, miniFAT []uint32, miniFATSectors int, miniData []byte, miniStreamSectors int) error {

	if err := binary.Write(d.w, binary.LittleEndian, h); err != nil {
		return err
	}
	if err := writeSectorPadded(d.w, fat, secFree, int(h.NumFATSectors)*128); err != nil {
		return err
	}
	if err := binary.Write(d.w, binary.LittleEndian, entries); err != nil {
		return err
	}
	if pad := dirSectors*cdSectorSize - 128*len(entries); pad > 0 {
		free := make([]compDocDirEntry, pad/128)
		for i := range free {
			free[i].LeftSiblingID = secNoStream
			free[i].RightSiblingID = secNoStream
			free[i].ChildID = secNoStream
		}
		if err := binary.Write(d.w, binary.LittleEndian, free); err != nil {
			return err
		}
	}
	if miniFATSectors > 0 {
		if err := writeSectorPadded(d.w, miniFAT, secFree, miniFATSectors*128); err != nil {
			return err
		}
	}
	if miniStreamSectors > 0 {
		padded := append(miniData, make([]byte, miniStreamSectors*cdSectorSize-len(miniData))...)
		if _, err := d.w.Write(padded); err != nil {
			return err
		}
	}
	for _, s := range d.streams {
		if len(s.buf) < cdMiniCutoff {
			continue
		}
		padded := append(append([]byte(nil), s.buf...),
			make([]byte, padSectors(len(s.buf))*cdSectorSize-len(s.buf))...)
		if _, err := d.w.Write(padded); err != nil {
			return err
		}
	}
	return nil
}

func writeSectorPadded(w io.Writer, entries []uint32, fill uint32, total int) error {
	out := make([]uint32, total)
	copy(out, entries)
	for i := len(entries); i < total; i++ {
		out[i] = fill
	}
	return binary.Write(w, binary.LittleEndian, out)
}

func setDirName(e *compDocDirEntry, name string) {
	units := utf16.Encode([]rune(name))
	copy(e.Name[:], units)
	e.NameByteLen = int16(2 * (len(units) + 1)) // include the terminator
}

func padSectors(n int) int {
	return (n + cdSectorSize - 1) / cdSectorSize
}

// Package xlwt writes workbooks in the legacy binary Excel format
// (BIFF8 records inside an OLE2 compound document). It is the writing
// counterpart of the xlrd-go reader.
package xlwt

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// XLWTError represents an error that occurred while writing an Excel file.
type XLWTError struct {
	Message string
}

func (e *XLWTError) Error() string {
	return e.Message
}

// NewXLWTError creates a new XLWTError with the given message.
func NewXLWTError(format string, args ...interface{}) *XLWTError {
	return &XLWTError{Message: fmt.Sprintf(format, args...)}
}

// MaxRecordSize is the maximum payload of one BIFF record. Longer logical
// payloads continue in XL_CONTINUE records.
const MaxRecordSize = 8224

// Stream types carried in the BOF record.
const (
	XL_WORKBOOK_GLOBALS = 0x5
	XL_WORKSHEET        = 0x10
	XL_CHART            = 0x20
	XL_MACROSHEET       = 0x40
	XL_WORKSPACE        = 0x100
)

// Sheet type codes for the BOUNDSHEET record.
const (
	XL_BOUNDSHEET_WORKSHEET = 0x00
	XL_BOUNDSHEET_CHART     = 0x02
	XL_BOUNDSHEET_VB_MODULE = 0x06
)

// Sheet visibility codes for the BOUNDSHEET record.
const (
	XL_SHEET_VISIBLE     = 0
	XL_SHEET_HIDDEN      = 1
	XL_SHEET_VERY_HIDDEN = 2
)

// BIFF record type constants used by the writer.
const (
	XL_BLANK       = 0x0201
	XL_BOF         = 0x809
	XL_BOOKBOOL    = 0xDA
	XL_BOOLERR     = 0x205
	XL_BOUNDSHEET  = 0x85
	XL_CODEPAGE    = 0x42
	XL_CONTINUE    = 0x3c
	XL_COUNTRY     = 0x8C
	XL_DATEMODE    = 0x22
	XL_DIMENSION   = 0x200
	XL_DSF         = 0x161
	XL_EOF         = 0x0a
	XL_EXTSST      = 0xff
	XL_FONT        = 0x31
	XL_FORMAT      = 0x41e
	XL_HIDEOBJ     = 0x8D
	XL_LABELSST    = 0xfd
	XL_NUMBER      = 0x203
	XL_PASSWORD    = 0x13
	XL_PRECISION   = 0xE
	XL_PROTECT     = 0x12
	XL_REFRESHALL  = 0x1B7
	XL_ROW         = 0x208
	XL_SST         = 0xfc
	XL_STYLE       = 0x293
	XL_TABID       = 0x13D
	XL_WINDOW1     = 0x3D
	XL_WINDOWPROT  = 0x19
	XL_WRITEACCESS = 0x5C
	XL_XF          = 0xe0
)

// BOF payload fields shared by every stream the writer emits.
const (
	biffVersion = 0x0600 // BIFF8
	biffBuildID = 0x0DBB
	biffBuildYr = 0x07CC
	biffHistory = 0x0000
	biffLowVer  = 0x0006
)

// First id available for custom number formats; 0-163 are built-ins.
const FirstCustomFormatID = 0xA4

// charmapFromEncoding maps supported 8-bit encoding names to their
// character maps. Names follow the reader's conventions.
var charmapFromEncoding = map[string]*charmap.Charmap{
	"latin_1":    charmap.ISO8859_1,
	"iso-8859-1": charmap.ISO8859_1,
	"cp874":      charmap.Windows874,
	"cp1250":     charmap.Windows1250,
	"cp1251":     charmap.Windows1251,
	"cp1252":     charmap.Windows1252,
	"cp1253":     charmap.Windows1253,
	"cp1254":     charmap.Windows1254,
	"cp1255":     charmap.Windows1255,
	"cp1256":     charmap.Windows1256,
	"cp1257":     charmap.Windows1257,
	"cp1258":     charmap.Windows1258,
	"mac_roman":  charmap.Macintosh,
	"cp866":      charmap.CodePage866,
	"cp850":      charmap.CodePage850,
	"cp437":      charmap.CodePage437,
}

// codepageFromEncoding maps encoding names to the value stored in the
// CODEPAGE record. latin_1 has no codepage of its own; 1252 is its
// closest superset and is what other writers record for it.
var codepageFromEncoding = map[string]int{
	"latin_1":    1252,
	"iso-8859-1": 1252,
	"cp874":      874,
	"cp1250":     1250,
	"cp1251":     1251,
	"cp1252":     1252,
	"cp1253":     1253,
	"cp1254":     1254,
	"cp1255":     1255,
	"cp1256":     1256,
	"cp1257":     1257,
	"cp1258":     1258,
	"mac_roman":  10000,
	"cp866":      866,
	"cp850":      850,
	"cp437":      437,
}

// Package extract converts file bytes to plain text based on the filename extension.
package extract

import (
	"strings"

	"github.com/hyperjump/doctext/internal/models"
)

// Converter names reported by Formats and used as metric labels.
const (
	ConverterSpreadsheet = "spreadsheet"
	ConverterCSV         = "csv"
	ConverterJSON        = "json"
	ConverterDocument    = "document"
	ConverterRaw         = "raw"
)

var converterByExt = map[string]string{
	"xlsx": ConverterSpreadsheet,
	"xls":  ConverterSpreadsheet,
	"csv":  ConverterCSV,
	"json": ConverterJSON,
	"docx": ConverterDocument,
}

// formatOrder fixes the order Formats reports extensions in.
var formatOrder = []string{"xlsx", "xls", "csv", "json", "docx"}

// Extractor converts document bytes to text. It holds no state and is safe for
// concurrent use.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extension returns the lowercased substring of filename after its last '.',
// or "" when filename has no '.'.
func Extension(filename string) string {
	lower := strings.ToLower(filename)
	i := strings.LastIndexByte(lower, '.')
	if i < 0 {
		return ""
	}
	return lower[i+1:]
}

// ConverterFor returns the converter name for ext. Unknown extensions, including
// the empty one, map to ConverterRaw.
func ConverterFor(ext string) string {
	if name, ok := converterByExt[strings.ToLower(ext)]; ok {
		return name
	}
	return ConverterRaw
}

// Formats lists the extensions with a dedicated converter.
func Formats() []models.Format {
	formats := make([]models.Format, 0, len(formatOrder))
	for _, ext := range formatOrder {
		formats = append(formats, models.Format{Extension: ext, Converter: converterByExt[ext]})
	}
	return formats
}

// ExtractBytes converts content according to ext, which is given without the
// leading dot (e.g. "xlsx"). Unknown extensions fall back to raw text decoding,
// which never fails.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ConverterFor(ext) {
	case ConverterSpreadsheet:
		return extractExcel(content)
	case ConverterCSV:
		return extractCSV(content)
	case ConverterJSON:
		return extractJSON(content)
	case ConverterDocument:
		return extractDOCX(content)
	default:
		return extractPlain(content)
	}
}

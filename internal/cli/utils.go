// Package cli provides CLI utilities for doctext.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/doctext/internal/models"
	"github.com/hyperjump/doctext/pkg/utils"
)

// OutputFormat is the format for conversion output.
type OutputFormat string

const (
	// OutputText prints only the extracted text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the full response object for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one line: filename, extension and a short preview, tab separated.
	OutputCompact OutputFormat = "compact"
)

const compactPreviewLen = 80

// ParseOutputFormat validates s as an OutputFormat. Empty means OutputText.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputJSON, OutputCompact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or compact)", s)
	}
}

// WriteResult writes result to w in the given format.
func WriteResult(w io.Writer, result *models.FileText, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	case OutputCompact:
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\n",
			result.Filename, result.Extension, utils.Truncate(utils.SingleLine(result.Text), compactPreviewLen))
		return err
	default:
		text := result.Text
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err := io.WriteString(w, text)
		return err
	}
}

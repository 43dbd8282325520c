package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const jsonIndent = "  "

// maxJSONDepth bounds array and object nesting. Every level indents all the
// lines beneath it, so output size grows with the square of the depth.
const maxJSONDepth = 1000

// extractJSON re-serializes a JSON document with two-space indentation. Object
// key order is preserved and non-ASCII text is written literally.
func extractJSON(content []byte) (string, error) {
	text := decodeText(content)
	if err := checkJSONDepth(text); err != nil {
		return "", err
	}
	if !gjson.Valid(text) {
		return "", fmt.Errorf("parse JSON: %w", jsonSyntaxError(text))
	}
	var b strings.Builder
	writeJSONValue(&b, gjson.Parse(text), 0)
	return b.String(), nil
}

// jsonSyntaxError describes why text is not valid JSON.
func jsonSyntaxError(text string) error {
	var v json.RawMessage
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%v (offset %d)", syntaxErr, syntaxErr.Offset)
		}
		return err
	}
	return errors.New("invalid JSON")
}

// checkJSONDepth rejects documents nested deeper than maxJSONDepth. Brackets
// inside string literals do not count.
func checkJSONDepth(text string) error {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("parse JSON: nesting exceeds %d levels", maxJSONDepth)
			}
		case ']', '}':
			depth--
		}
	}
	return nil
}

func writeJSONValue(b *strings.Builder, v gjson.Result, depth int) {
	switch v.Type {
	case gjson.Null:
		b.WriteString("null")
	case gjson.True:
		b.WriteString("true")
	case gjson.False:
		b.WriteString("false")
	case gjson.Number:
		b.WriteString(formatJSONNumber(v.Raw))
	case gjson.String:
		writeJSONString(b, v.String())
	default:
		if v.IsArray() {
			writeJSONArray(b, v, depth)
		} else {
			writeJSONObject(b, v, depth)
		}
	}
}

func writeJSONArray(b *strings.Builder, v gjson.Result, depth int) {
	var items []gjson.Result
	v.ForEach(func(_, value gjson.Result) bool {
		items = append(items, value)
		return true
	})
	if len(items) == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		newline(b, depth+1)
		writeJSONValue(b, item, depth+1)
	}
	newline(b, depth)
	b.WriteByte(']')
}

func writeJSONObject(b *strings.Builder, v gjson.Result, depth int) {
	var keys []string
	values := make(map[string]gjson.Result)
	v.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if _, dup := values[k]; !dup {
			keys = append(keys, k)
		}
		// A repeated key keeps its first position and its last value.
		values[k] = value
		return true
	})
	if len(keys) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		newline(b, depth+1)
		writeJSONString(b, k)
		b.WriteString(": ")
		writeJSONValue(b, values[k], depth+1)
	}
	newline(b, depth)
	b.WriteByte('}')
}

func newline(b *strings.Builder, depth int) {
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString(jsonIndent)
	}
}

// writeJSONString quotes s, escaping only quotes, backslashes and control characters.
func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

// formatJSONNumber keeps integers verbatim and writes other numbers in their
// shortest round-trip form: fixed notation with a ".0" suffix for integral values
// in [1e-4, 1e16), exponent notation otherwise.
func formatJSONNumber(raw string) string {
	if !strings.ContainsAny(raw, ".eE") {
		if raw == "-0" {
			return "0"
		}
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !math.IsInf(f, 0) {
		return raw
	}
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp := 0
	if i := strings.IndexByte(sci, 'e'); i >= 0 {
		exp, _ = strconv.Atoi(sci[i+1:])
	}
	if exp < -4 || exp >= 16 {
		return sci
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(fixed, ".") {
		fixed += ".0"
	}
	return fixed
}

// Package payload resolves request bodies into typed requests and decodes their
// base64 content. Everything here is pure: no I/O and no logging.
package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/doctext/internal/models"
)

const (
	keyContentBytes = "contentBytes"
	keyName         = "name"
	keyContent      = "Content"
	keyValue        = "Value"
	keyNameUpper    = "Name"
)

const (
	detailInvalidBody   = "Invalid request body"
	detailInvalidSchema = "Invalid schema. Missing contentBytes or Content/Name."
	detailInvalidBase64 = "Invalid base64 content"
)

// Body is a request body decoded one level deep, keyed by top-level field.
type Body map[string]json.RawMessage

// Parse decodes raw as a JSON object. Anything else is an InvalidBody error.
func Parse(raw []byte) (Body, error) {
	var body Body
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, models.NewError(models.InvalidBody, detailInvalidBody, err)
	}
	if body == nil {
		// JSON null decodes without error into a nil map.
		return nil, models.NewError(models.InvalidBody, detailInvalidBody, fmt.Errorf("body is null"))
	}
	return body, nil
}

// Resolve inspects the key set of body and returns the matching request shape.
// contentBytes wins over Content/Name when both are present. Payload values are
// not validated here; a missing or non-string payload surfaces from Decode.
func Resolve(body Body) (models.Request, error) {
	if raw, ok := body[keyContentBytes]; ok {
		name := models.DefaultFilename
		if rawName, ok := body[keyName]; ok && !isNull(rawName) {
			s, ok := asString(rawName)
			if !ok {
				return nil, models.NewError(models.InvalidSchema, detailInvalidSchema, fmt.Errorf("%s must be a string", keyName))
			}
			name = s
		}
		content, valid := asString(raw)
		return models.ContentBytesRequest{ContentBytes: content, Valid: valid, Name: name}, nil
	}

	rawContent, hasContent := body[keyContent]
	rawName, hasName := body[keyNameUpper]
	if !hasContent || !hasName {
		return nil, models.NewError(models.InvalidSchema, detailInvalidSchema, nil)
	}
	name, ok := asString(rawName)
	if !ok {
		return nil, models.NewError(models.InvalidSchema, detailInvalidSchema, fmt.Errorf("%s must be a string", keyNameUpper))
	}
	chosen := rawContent
	if isFalsy(rawContent) {
		chosen = body[keyValue]
	}
	content, valid := asString(chosen)
	return models.NamedContentRequest{Content: content, Valid: valid, Name: name}, nil
}

// Decode returns the decoded payload of req. Standard padded base64 is required;
// ASCII whitespace (line-wrapped payloads) is ignored.
func Decode(req models.Request) ([]byte, error) {
	encoded, ok := req.Payload()
	if !ok {
		return nil, models.NewError(models.InvalidBase64, detailInvalidBase64, fmt.Errorf("payload is missing or not a string"))
	}
	data, err := base64.StdEncoding.DecodeString(stripWhitespace(encoded))
	if err != nil {
		return nil, models.NewError(models.InvalidBase64, detailInvalidBase64, err)
	}
	return data, nil
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n\f\v") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			return -1
		}
		return r
	}, s)
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// isFalsy reports whether raw is null, false, zero, or an empty string, array or object.
func isFalsy(raw json.RawMessage) bool {
	if isNull(raw) {
		return true
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

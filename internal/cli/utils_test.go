package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/doctext/internal/models"
)

func TestWriteResult_JSON(t *testing.T) {
	result := &models.FileText{Filename: "a.csv", Extension: "csv", Text: "a,b\n<c>,d"}
	var buf bytes.Buffer
	if err := WriteResult(&buf, result, OutputJSON); err != nil {
		t.Fatalf("WriteResult(json): %v", err)
	}
	out := buf.String()
	if strings.Contains(out, `<`) {
		t.Errorf("HTML characters should not be escaped: %s", out)
	}
	var decoded models.FileText
	if err := json.NewDecoder(strings.NewReader(out)).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if decoded != *result {
		t.Errorf("decoded %+v, want %+v", decoded, *result)
	}
}

func TestWriteResult_Text(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"hello", "hello\n"},
		{"a,b\nc,d\n", "a,b\nc,d\n"},
		{"", "\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := WriteResult(&buf, &models.FileText{Text: tt.text}, OutputText); err != nil {
			t.Fatal(err)
		}
		if buf.String() != tt.want {
			t.Errorf("WriteResult(text %q) = %q, want %q", tt.text, buf.String(), tt.want)
		}
	}
}

func TestWriteResult_Compact(t *testing.T) {
	result := &models.FileText{
		Filename:  "report.xlsx",
		Extension: "xlsx",
		Text:      "Title,Notes\n" + strings.Repeat("x", 200),
	}
	var buf bytes.Buffer
	if err := WriteResult(&buf, result, OutputCompact); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("compact output should be one line: %q", out)
	}
	fields := strings.Split(strings.TrimSuffix(out, "\n"), "\t")
	if len(fields) != 3 || fields[0] != "report.xlsx" || fields[1] != "xlsx" {
		t.Fatalf("fields = %q", fields)
	}
	if !strings.HasPrefix(fields[2], "Title,Notes xxx") || !strings.HasSuffix(fields[2], "...") {
		t.Errorf("preview = %q", fields[2])
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

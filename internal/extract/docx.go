package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return ""
		}
		content := string(data)
		if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		return ""
	}
	return ""
}

// extractDOCX returns the text of the body paragraphs of a .docx file in
// document order, one paragraph per line. Paragraphs nested in tables, text
// boxes or tracked insertions are not part of the body and are skipped.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		docXML, err = readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("extract DOCX: read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	paragraphs, err := docxParagraphs(docXML)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: parse %s: %w", docPath, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxParagraphs walks document.xml and collects the text of each w:p that is a
// direct child of w:body. Run content counts only for runs directly inside the
// paragraph or inside one of its hyperlinks.
func docxParagraphs(docXML []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))
	var (
		stack      []string
		paragraphs []string
		para       strings.Builder
		inPara     bool
		paraDepth  int
		runDepth   = -1
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			depth := len(stack)
			stack = append(stack, name)
			switch {
			case name == "p" && depth >= 2 && stack[depth-1] == "body" && !inPara:
				inPara = true
				paraDepth = depth
				para.Reset()
			case inPara && name == "r" && runDepth < 0 && isRunParent(stack, paraDepth, depth):
				runDepth = depth
			case runDepth >= 0 && depth == runDepth+1:
				switch name {
				case "t":
					inText = true
				case "tab", "ptab":
					para.WriteByte('\t')
				case "cr":
					para.WriteByte('\n')
				case "br":
					if breakType(t) == "" || breakType(t) == "textWrapping" {
						para.WriteByte('\n')
					}
				case "noBreakHyphen":
					para.WriteByte('-')
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			depth := len(stack) - 1
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced element </%s>", t.Name.Local)
			}
			stack = stack[:depth]
			switch {
			case inText && depth == runDepth+1:
				inText = false
			case depth == runDepth:
				runDepth = -1
			case inPara && depth == paraDepth:
				inPara = false
				paragraphs = append(paragraphs, para.String())
			}
		}
	}
	return paragraphs, nil
}

// isRunParent reports whether a run opened at depth belongs to the paragraph at
// paraDepth, either directly or through a hyperlink.
func isRunParent(stack []string, paraDepth, depth int) bool {
	if depth == paraDepth+1 {
		return true
	}
	return depth == paraDepth+2 && stack[paraDepth+1] == "hyperlink"
}

func breakType(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Local == "type" {
			return a.Value
		}
	}
	return ""
}

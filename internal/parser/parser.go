package parser

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrInvalidDocument marks bytes that cannot be opened as the declared format.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrUnsupportedFormat is returned for file extensions with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Extraction is the plain text of an uploaded document.
type Extraction struct {
	Text  string
	Pages int
	// SkippedPages lists 1-based page numbers that produced no text.
	SkippedPages []int
}

// SupportedExtensions lists the extensions ExtractText understands.
var SupportedExtensions = []string{".pdf", ".docx", ".xlsx", ".xlsm", ".pptx", ".txt", ".md"}

// ExtractText picks an extractor from the filename extension and returns
// the document's text.
func ExtractText(filename string, data []byte) (*Extraction, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".xlsx":
		return extractXLSX(data)
	case ".xlsm":
		return extractXLSM(data)
	case ".pptx":
		return extractPPTX(data)
	case ".txt", ".md":
		return extractText(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func extractDOCX(data []byte) (*Extraction, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer r.Close()

	var text strings.Builder
	for _, p := range strings.Split(r.Editable().GetContent(), "</w:p>") {
		line := strings.TrimSpace(extractTextFromXML(p, "w:t"))
		if line == "" {
			continue
		}
		text.WriteString(line)
		text.WriteString("\n")
	}
	return &Extraction{Text: text.String(), Pages: 1}, nil
}

func extractXLSX(data []byte) (*Extraction, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			var cells []string
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		writeSheet(&text, sheet.Name, rows)
	}
	return &Extraction{Text: text.String(), Pages: len(f.Sheets)}, nil
}

func extractXLSM(data []byte) (*Extraction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer f.Close()

	var text strings.Builder
	sheets := f.GetSheetList()
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		writeSheet(&text, name, rows)
	}
	return &Extraction{Text: text.String(), Pages: len(sheets)}, nil
}

func extractText(data []byte) (*Extraction, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidDocument)
	}
	return &Extraction{Text: string(data), Pages: 1}, nil
}

// writeSheet renders one sheet as a heading followed by tab separated rows.
func writeSheet(text *strings.Builder, name string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	text.WriteString(fmt.Sprintf("## Sheet: %s\n", name))
	for _, row := range rows {
		text.WriteString(strings.TrimRight(strings.Join(row, "\t"), "\t"))
		text.WriteString("\n")
	}
}

// extractTextFromXML concatenates the bodies of every <tag>...</tag> element.
func extractTextFromXML(xmlContent, tag string) string {
	var text strings.Builder
	open, closing := "<"+tag, "</"+tag+">"
	rest := xmlContent
	for {
		start := strings.Index(rest, open)
		if start < 0 {
			break
		}
		rest = rest[start+len(open):]
		// skip <w:tbl>, <w:tab/> and friends that share the prefix
		if len(rest) == 0 || (rest[0] != '>' && rest[0] != ' ') {
			continue
		}
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		if gt > 0 && rest[gt-1] == '/' {
			rest = rest[gt+1:]
			continue
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, closing)
		if end < 0 {
			break
		}
		text.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len(closing):]
	}
	return text.String()
}

var xmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}

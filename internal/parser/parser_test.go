package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractText_UnsupportedFormat(t *testing.T) {
	_, err := ExtractText("image.png", []byte{0x89, 'P', 'N', 'G'})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractText_PlainText(t *testing.T) {
	ext, err := ExtractText("notes.md", []byte("# Title\nbody"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if ext.Text != "# Title\nbody" {
		t.Errorf("unexpected text %q", ext.Text)
	}

	if _, err := ExtractText("bad.txt", []byte{0xff, 0xfe, 0xfd}); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument for invalid utf-8, got %v", err)
	}
}

func TestExtractText_Spreadsheets(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "name"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "price"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "A2", "apple"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B2", "3"); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	for _, name := range []string{"book.xlsx", "book.xlsm"} {
		t.Run(name, func(t *testing.T) {
			ext, err := ExtractText(name, buf.Bytes())
			if err != nil {
				t.Fatalf("ExtractText: %v", err)
			}
			if !strings.Contains(ext.Text, "## Sheet: Sheet1") {
				t.Errorf("missing sheet heading in %q", ext.Text)
			}
			if !strings.Contains(ext.Text, "apple\t3") {
				t.Errorf("missing row in %q", ext.Text)
			}
		})
	}
}

func TestExtractText_InvalidDOCX(t *testing.T) {
	_, err := ExtractText("letter.docx", []byte("plain bytes"))
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

// buildZip packs name -> body pairs into an in-memory zip archive.
func buildZip(t *testing.T, files [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f[0])
		if err != nil {
			t.Fatalf("create %s: %v", f[0], err)
		}
		if _, err := w.Write([]byte(f[1])); err != nil {
			t.Fatalf("write %s: %v", f[0], err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractText_DOCX(t *testing.T) {
	data := buildZip(t, [][2]string{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Hello</w:t></w:r></w:p><w:p><w:r><w:t>World &amp; more</w:t></w:r></w:p></w:body></w:document>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	})

	ext, err := ExtractText("letter.docx", data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if ext.Text != "Hello\nWorld & more\n" {
		t.Errorf("unexpected text %q", ext.Text)
	}
	if ext.Pages != 1 {
		t.Errorf("expected 1 page, got %d", ext.Pages)
	}
}

func TestExtractText_PPTX(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
			text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	// zip order differs from slide order on purpose
	data := buildZip(t, [][2]string{
		{"ppt/slides/slide10.xml", slide("Ten")},
		{"ppt/slides/slide2.xml", slide("Q&amp;A")},
		{"ppt/slides/_rels/slide2.xml.rels", `<Relationships/>`},
		{"ppt/slides/slide1.xml", slide("Intro")},
		{"ppt/slides/slide3.xml", `<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`},
	})

	ext, err := ExtractText("deck.pptx", data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if ext.Text != "Intro\nQ&A\nTen\n" {
		t.Errorf("unexpected text %q", ext.Text)
	}
	if ext.Pages != 4 {
		t.Errorf("expected 4 slides, got %d", ext.Pages)
	}
	if len(ext.SkippedPages) != 1 || ext.SkippedPages[0] != 3 {
		t.Errorf("expected slide 3 skipped, got %v", ext.SkippedPages)
	}

	if _, err := ExtractText("deck.pptx", []byte("not a zip")); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
	if _, err := ExtractText("deck.pptx", buildZip(t, [][2]string{{"docProps/app.xml", "<x/>"}})); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument for a zip without slides, got %v", err)
	}
}

func TestExtractTextFromXML(t *testing.T) {
	xml := `<w:p><w:r><w:t>Fish &amp; chips</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> today</w:t></w:r><w:tbl></w:tbl></w:p>`

	got := extractTextFromXML(xml, "w:t")
	if got != "Fish & chips today" {
		t.Errorf("got %q", got)
	}
}

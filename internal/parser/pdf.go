package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// extractPDF concatenates the plain text of every page in page order.
// Pages that yield no text, such as scanned images, are skipped and
// reported in SkippedPages. Only a broken PDF structure is an error.
func extractPDF(data []byte) (ext *Extraction, err error) {
	// the pdf reader panics on some malformed cross reference tables
	defer func() {
		if r := recover(); r != nil {
			ext = nil
			err = fmt.Errorf("%w: %v", ErrInvalidDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	ext = &Extraction{Pages: reader.NumPage()}
	var text strings.Builder
	for i := 1; i <= ext.Pages; i++ {
		body, err := pageText(reader.Page(i))
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Skipping unreadable page")
		}
		if strings.TrimSpace(body) == "" {
			ext.SkippedPages = append(ext.SkippedPages, i)
			continue
		}
		if text.Len() > 0 && !strings.HasSuffix(text.String(), "\n") {
			text.WriteString("\n")
		}
		text.WriteString(body)
	}
	ext.Text = text.String()
	return ext, nil
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page text: %v", r)
		}
	}()
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

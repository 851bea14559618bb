package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const slidePrefix = "ppt/slides/slide"

// extractPPTX reads the text runs of every slide in slide order. Slides
// without text are reported in SkippedPages like blank PDF pages.
func extractPPTX(data []byte) (*Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		// ppt/slides/_rels/... shares the directory but not the prefix
		if !strings.HasPrefix(f.Name, slidePrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, slidePrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, file: f})
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slides found", ErrInvalidDocument)
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	ext := &Extraction{Pages: len(slides)}
	var text strings.Builder
	for i, s := range slides {
		body, err := readZipFile(s.file)
		if err != nil {
			ext.SkippedPages = append(ext.SkippedPages, i+1)
			continue
		}
		line := strings.TrimSpace(extractTextFromXML(body, "a:t"))
		if line == "" {
			ext.SkippedPages = append(ext.SkippedPages, i+1)
			continue
		}
		text.WriteString(line)
		text.WriteString("\n")
	}
	ext.Text = text.String()
	return ext, nil
}

func readZipFile(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

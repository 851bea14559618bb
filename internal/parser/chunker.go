package parser

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"pdf-explorer/internal/models"
)

const (
	defaultChunkSize    = 800 // characters
	defaultChunkOverlap = 200 // characters
	defaultSeparator    = "\n"
)

type ChunkOptions struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// DefaultChunkOptions returns 800/200 split on newlines.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    defaultChunkSize,
		ChunkOverlap: defaultChunkOverlap,
		Separator:    defaultSeparator,
	}
}

func (o ChunkOptions) normalized() ChunkOptions {
	// an unset size takes the default overlap with it
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
		if o.ChunkOverlap == 0 {
			o.ChunkOverlap = defaultChunkOverlap
		}
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 2
	}
	if o.Separator == "" {
		o.Separator = defaultSeparator
	}
	return o
}

// SplitText cuts text into chunks of at most ChunkSize characters along
// Separator, carrying up to ChunkOverlap characters of the previous chunk
// into the next one. A run without a separator longer than ChunkSize is
// kept whole.
func SplitText(text, source string, opts ChunkOptions) ([]models.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	opts = opts.normalized()

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
		textsplitter.WithSeparators([]string{opts.Separator}),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Content: part,
			ChunkID: len(chunks) + 1,
			Source:  source,
		})
	}
	return chunks, nil
}

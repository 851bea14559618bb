package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"pdf-explorer/internal/chromemdb"
	"pdf-explorer/internal/config"
	"pdf-explorer/internal/embedding"
	"pdf-explorer/internal/llmservice"
	"pdf-explorer/internal/models"
	"pdf-explorer/internal/parser"
)

var (
	// ErrNoDocument is returned when a question arrives before any upload.
	ErrNoDocument = errors.New("no document has been uploaded")
	// ErrNoText is returned when the upload contains no extractable text.
	ErrNoText = errors.New("document contains no extractable text")
)

// Document is the result of processing one upload.
type Document struct {
	Name         string
	Pages        int
	SkippedPages []int
	ChunkCount   int
	Index        *chromemdb.Index
}

type RAG struct {
	embedder embeddings.Embedder
	llm      llms.Model
	cfg      *config.Config
}

func NewRAG(embedder embeddings.Embedder, llm llms.Model, cfg *config.Config) *RAG {
	return &RAG{embedder: embedder, llm: llm, cfg: cfg}
}

func (r *RAG) chunkOptions() parser.ChunkOptions {
	return parser.ChunkOptions{
		ChunkSize:    r.cfg.RAG.ChunkSize,
		ChunkOverlap: r.cfg.RAG.ChunkOverlap,
		Separator:    r.cfg.RAG.Separator,
	}
}

// Chunks extracts and splits a document without touching any remote service.
func (r *RAG) Chunks(filename string, data []byte) (*parser.Extraction, []models.Chunk, error) {
	ext, err := parser.ExtractText(filename, data)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := parser.SplitText(ext.Text, filename, r.chunkOptions())
	if err != nil {
		return nil, nil, err
	}
	return ext, chunks, nil
}

// Ingest turns an uploaded file into a searchable index: extract, split,
// embed, index. Nothing is returned unless every step succeeds.
func (r *RAG) Ingest(ctx context.Context, filename string, data []byte) (*Document, error) {
	ext, chunks, err := r.Chunks(filename, data)
	if err != nil {
		return nil, err
	}
	if len(ext.SkippedPages) > 0 {
		log.Info().Str("file", filename).Ints("pages", ext.SkippedPages).Msg("Pages without extractable text")
	}
	if len(chunks) == 0 {
		return nil, ErrNoText
	}
	log.Info().Str("file", filename).Int("chunks", len(chunks)).Msg("Split document")

	chunkEmbeddings, err := embedding.EmbedChunks(ctx, r.embedder, chunks)
	if err != nil {
		return nil, err
	}
	index, err := chromemdb.BuildIndex(ctx, r.embedder, chunkEmbeddings, r.cfg.RAG.TopK)
	if err != nil {
		return nil, err
	}

	return &Document{
		Name:         filename,
		Pages:        ext.Pages,
		SkippedPages: ext.SkippedPages,
		ChunkCount:   len(chunks),
		Index:        index,
	}, nil
}

// Query retrieves the top chunks for query from index and asks the model.
func (r *RAG) Query(ctx context.Context, index *chromemdb.Index, query string) (*models.PromptResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, llmservice.ErrNoQuestion
	}
	if index == nil {
		return nil, ErrNoDocument
	}

	sources, err := index.Search(ctx, query, r.cfg.RAG.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	answer, err := llmservice.GenerateAnswer(ctx, r.llm, sources, query)
	if err != nil {
		return nil, err
	}

	return &models.PromptResponse{
		Query:   query,
		Sources: sources,
		Content: answer,
	}, nil
}

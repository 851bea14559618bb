package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-explorer/internal/models"
)

const (
	metaChunkID = "chunk_id"
	metaSource  = "source"
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("query must not be empty")

// Index is an in-memory vector index over the chunks of one document.
// It is built once and never modified; a new upload builds a new Index.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	topK       int
}

// BuildIndex embeds chunks with embedder and loads them into a fresh
// in-memory collection. Queries are embedded through the same embedder.
// On any error no index is returned.
func BuildIndex(ctx context.Context, embedder embeddings.Embedder, chunks []models.ChunkEmbedding, topK int) (*Index, error) {
	db := chromem.NewDB()
	name := "doc-" + uuid.NewString()
	collection, err := db.CreateCollection(name, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ce := range chunks {
		docs = append(docs, chromem.Document{
			ID:      strconv.Itoa(ce.ChunkID),
			Content: ce.Content,
			Metadata: map[string]string{
				metaChunkID: strconv.Itoa(ce.ChunkID),
				metaSource:  ce.Source,
			},
			Embedding: ce.Embedding,
		})
	}
	if len(docs) > 0 {
		if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to add documents: %w", err)
		}
	}

	log.Debug().Str("collection", name).Int("documents", collection.Count()).Msg("Built index")
	return &Index{db: db, collection: collection, topK: topK}, nil
}

// Count is the number of chunks in the index.
func (ix *Index) Count() int {
	if ix == nil || ix.collection == nil {
		return 0
	}
	return ix.collection.Count()
}

// Search returns up to k chunks most similar to query, best match first.
// k <= 0 uses the index default. An empty index yields no results.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	n := ix.Count()
	if n == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = ix.topK
	}
	k = min(max(k, 1), n)

	results, err := ix.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryText: query,
		NResults:  k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.Chunk, 0, len(results))
	for _, r := range results {
		id, _ := strconv.Atoi(r.Metadata[metaChunkID])
		out = append(out, models.Chunk{
			Content: r.Content,
			ChunkID: id,
			Source:  r.Metadata[metaSource],
		})
	}
	return out, nil
}

// embeddingFunc adapts a langchaingo embedder to chromem's query embedding hook.
func embeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

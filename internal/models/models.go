package models

// Chunk is one bounded slice of the extracted document text.
type Chunk struct {
	Content string
	ChunkID int
	Source  string
}

// ChunkEmbedding pairs a chunk with its vector.
type ChunkEmbedding struct {
	Chunk
	Embedding []float32
}

// QAEntry is one answered question. Entries are never modified once stored.
type QAEntry struct {
	Question string
	Answer   string
}

type PromptResponse struct {
	Query   string
	Sources []Chunk
	Content string
}

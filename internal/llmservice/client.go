package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"pdf-explorer/internal/config"
	"pdf-explorer/internal/models"
)

var (
	// ErrEmptyAnswer is returned when the model produced no text.
	ErrEmptyAnswer = errors.New("model returned an empty answer")
	ErrNoQuestion  = errors.New("question must not be empty")
)

// NewModel builds the chat model for the configured provider.
func NewModel(ctx context.Context, llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Interface("llmConfig", map[string]string{
		"provider": llmConfig.Provider,
		"base_url": llmConfig.BaseURL,
		"model":    llmConfig.Model,
	}).Msg("Creating chat model")

	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case config.ProviderGoogleAI:
		llm, err = googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultModel(llmConfig.Model),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err = openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q", llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", llmConfig.Provider, err)
	}
	return llm, nil
}

// GenerateAnswer stuffs the retrieved chunks into a single QA prompt
// together with the question and returns the model's reply verbatim.
func GenerateAnswer(ctx context.Context, llm llms.Model, chunks []models.Chunk, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrNoQuestion
	}

	docs := make([]schema.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = schema.Document{
			PageContent: c.Content,
			Metadata:    map[string]any{"chunk_id": c.ChunkID, "source": c.Source},
		}
	}

	chain := chains.LoadStuffQA(llm)
	result, err := chains.Call(ctx, chain, map[string]any{
		"input_documents": docs,
		"question":        question,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	answer, _ := result[chain.GetOutputKeys()[0]].(string)
	if strings.TrimSpace(answer) == "" {
		return "", ErrEmptyAnswer
	}
	log.Debug().Int("context_chunks", len(chunks)).Int("answer_len", len(answer)).Msg("Generated answer")
	return answer, nil
}

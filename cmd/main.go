package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf-explorer/internal/config"
	"pdf-explorer/internal/embedding"
	"pdf-explorer/internal/helper"
	"pdf-explorer/internal/llmservice"
	"pdf-explorer/internal/rag"
	"pdf-explorer/internal/session"
	"pdf-explorer/internal/web"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	cfgPath := flag.String("config", configFilePath, "Path to the YAML config file")
	filePath := flag.String("file", "", "Path to a document to answer from instead of starting the server")
	query := flag.String("query", "", "Question to answer about -file")
	dryRun := flag.Bool("dry-run", false, "Print the chunks of -file without calling any service")
	flag.Parse()

	if *dryRun {
		if *filePath == "" {
			log.Fatal().Msg("Please provide a document with the -file flag")
		}
		printChunks(*cfgPath, *filePath)
		return
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	zerolog.SetGlobalLevel(helper.ParseLevel(cfg.LogLevel))
	log.Debug().Interface("rag", cfg.RAG).Interface("server", cfg.Server).Msg("Loaded config")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM, cfg.RAG.EmbedBatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	llm, err := llmservice.NewModel(ctx, &cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM")
	}
	pipeline := rag.NewRAG(embedder, llm, cfg)

	switch {
	case *filePath != "" && *query != "":
		answerOnce(ctx, pipeline, *filePath, *query)
	case *filePath != "" || *query != "":
		log.Fatal().Msg("Please provide both -file and -query, or neither to start the server")
	default:
		serve(ctx, pipeline, cfg)
	}
}

func serve(ctx context.Context, pipeline *rag.RAG, cfg *config.Config) {
	srv := web.NewServer(pipeline, session.NewStore(cfg.Server.SessionTTL), cfg)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting PDF explorer")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}
}

func answerOnce(ctx context.Context, pipeline *rag.RAG, filePath, query string) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document")
	}
	doc, err := pipeline.Ingest(ctx, filepath.Base(filePath), data)
	if err != nil {
		log.Fatal().Err(err).Msg("Error processing document")
	}
	response, err := pipeline.Query(ctx, doc.Index, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, src := range response.Sources {
		fmt.Printf("[chunk %d]\n%s\n\n", src.ChunkID, src.Content)
	}

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

// printChunks shows how a document would be split, using the chunk
// settings from the config file when one exists. No API key is needed.
func printChunks(cfgPath, filePath string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Warn().Err(err).Str("config", cfgPath).Msg("Error loading config, using defaults")
		cfg = config.Default()
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document")
	}

	ext, chunks, err := rag.NewRAG(nil, nil, cfg).Chunks(filepath.Base(filePath), data)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	log.Info().Int("pages", ext.Pages).Ints("skipped_pages", ext.SkippedPages).Int("chunks", len(chunks)).Msg("Parsed document")
	helper.PrettyPrint(os.Stdout, chunks)
}

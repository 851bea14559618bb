package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when no provider key can be found in the environment.
var ErrMissingAPIKey = errors.New("api key is not set")

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"

	defaultAPIKeyEnv      = "gemini_key"
	fallbackAPIKeyEnv     = "GOOGLE_API_KEY"
	defaultChatModel      = "gemini-2.5-flash"
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultAddr           = ":8501"
	defaultSessionTTL     = 12 * time.Hour
	defaultMaxUploadBytes = 64 << 20

	DefaultChunkSize      = 800
	DefaultChunkOverlap   = 200
	DefaultSeparator      = "\n"
	DefaultTopK           = 4
	DefaultEmbedBatchSize = 32
)

type Config struct {
	LogLevel string       `yaml:"log_level"`
	Server   ServerConfig `yaml:"server"`
	LLM      LLMConfig    `yaml:"llm"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	RAG      RAGConfig    `yaml:"rag"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

// LLMConfig describes one remote model endpoint. Key is never read from
// the file; it is filled from the environment variable named by KeyEnv.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	KeyEnv   string `yaml:"api_key_env"`
	Key      string `yaml:"-"`
}

type RAGConfig struct {
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	Separator      string `yaml:"separator"`
	TopK           int    `yaml:"top_k"`
	EmbedBatchSize int    `yaml:"embed_batch_size"`
}

// LoadConfig reads the yaml file at path (a missing file yields defaults),
// loads .env if present and resolves API keys from the environment.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.resolveKeys(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the yaml file and .env like LoadConfig but leaves API keys
// unresolved, for modes that never call a model.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = defaultSessionTTL
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(cfg.Server.AllowedExtensions) == 0 {
		cfg.Server.AllowedExtensions = []string{".pdf", ".docx", ".xlsx", ".xlsm", ".pptx", ".txt", ".md"}
	}
	for i, ext := range cfg.Server.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Server.AllowedExtensions[i] = ext
	}

	applyLLMDefaults(&cfg.LLM, defaultChatModel)
	applyLLMDefaults(&cfg.EmbedLLM, defaultEmbeddingModel)

	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = DefaultChunkSize
	}
	// a negative overlap in the file disables overlap, zero means unset
	switch {
	case cfg.RAG.ChunkOverlap == 0:
		cfg.RAG.ChunkOverlap = DefaultChunkOverlap
	case cfg.RAG.ChunkOverlap < 0:
		cfg.RAG.ChunkOverlap = 0
	}
	if cfg.RAG.Separator == "" {
		cfg.RAG.Separator = DefaultSeparator
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = DefaultTopK
	}
	if cfg.RAG.EmbedBatchSize <= 0 {
		cfg.RAG.EmbedBatchSize = DefaultEmbedBatchSize
	}
}

func applyLLMDefaults(c *LLMConfig, model string) {
	if c.Provider == "" {
		c.Provider = ProviderGoogleAI
	}
	c.Provider = strings.ToLower(c.Provider)
	if c.Model == "" {
		c.Model = model
	}
	if c.KeyEnv == "" {
		switch c.Provider {
		case ProviderGoogleAI:
			c.KeyEnv = defaultAPIKeyEnv
		case ProviderOpenAI:
			c.KeyEnv = "OPENAI_API_KEY"
		}
	}
}

func (cfg *Config) resolveKeys() error {
	for _, c := range []*LLMConfig{&cfg.LLM, &cfg.EmbedLLM} {
		// ollama runs locally without a key
		if c.Provider == ProviderOllama {
			continue
		}
		c.Key = lookupKey(c.Provider, c.KeyEnv)
		if c.Key == "" {
			return fmt.Errorf("%w: set %s in the environment or .env", ErrMissingAPIKey, keyEnvName(c.Provider, c.KeyEnv))
		}
	}
	return nil
}

// lookupKey reads the key from name. Only googleai falls back to GOOGLE_API_KEY.
func lookupKey(provider, name string) string {
	if name != "" {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	if provider != ProviderGoogleAI {
		return ""
	}
	return strings.TrimSpace(os.Getenv(fallbackAPIKeyEnv))
}

func keyEnvName(provider, name string) string {
	if name == "" && provider == ProviderGoogleAI {
		return fallbackAPIKeyEnv
	}
	if name == "" {
		return "api_key_env"
	}
	return name
}

package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Qdrant      QdrantConfig    `toml:"qdrant"`
	Ingestion   IngestionConfig `toml:"ingestion"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Grounding   GroundingConfig `toml:"grounding"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for the metadata store.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// QdrantConfig configures the external vector index.
type QdrantConfig struct {
	URL            string `toml:"url"`             // Base URL, e.g. https://xyz.cloud.qdrant.io:6333
	APIKey         string `toml:"api_key"`         // Cluster API key
	Collection     string `toml:"collection"`      // Collection name
	RequestTimeout string `toml:"request_timeout"` // HTTP timeout as duration string
}

// IngestionConfig holds chunking and publish parameters.
type IngestionConfig struct {
	ChunkSize      int `toml:"chunk_size"`       // Target tokens per chunk
	ChunkOverlap   int `toml:"chunk_overlap"`    // Tokens shared between consecutive chunks in a unit
	MinChunkSize   int `toml:"min_chunk_size"`   // Trailing remainders below this merge backward
	EmbedBatchSize int `toml:"embed_batch_size"` // Texts per embedding gateway call
	MaxVectors     int `toml:"max_vectors"`      // Storage ceiling across all books
}

// RetrievalConfig holds ranking and filtering parameters.
type RetrievalConfig struct {
	MaxChunks       int     `toml:"max_chunks"`        // Default candidate count per query
	OverFetchFactor int     `toml:"over_fetch_factor"` // Index top_k = max_chunks * factor
	MinSimilarity   float64 `toml:"min_similarity"`    // Normalized [0,1] floor for candidates
}

// GroundingConfig holds generation constraints.
type GroundingConfig struct {
	RequestTimeout string  `toml:"request_timeout"` // Whole-pipeline generation budget
	Temperature    float32 `toml:"temperature"`     // Deterministic-leaning sampling
}

// LLMProvider represents the AI provider type.
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the generation provider. Embeddings always go through
// Gemini regardless of the generation provider.
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"`
}

// GeminiConfig contains Google Gemini API configuration.
type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	EmbedModel     string `toml:"embed_model"`
	EmbedDimension int    `toml:"embed_dimension"`
	Timeout        string `toml:"timeout"`
	RateLimit      string `toml:"rate_limit"` // Minimum spacing between gateway calls
}

// ClaudeConfig contains Anthropic Claude API configuration.
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // debug, info, warn, error
	Output []string `toml:"output"` // stdout, file
}

// NewDefaultConfig creates a configuration with documented defaults. Tunables
// the retrieval pipeline depends on (chunk sizing, over-fetch, similarity
// floor) live here rather than as hard-coded constants.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Qdrant: QdrantConfig{
			URL:            "http://localhost:6333",
			Collection:     "book_chunks",
			RequestTimeout: "30s",
		},
		Ingestion: IngestionConfig{
			ChunkSize:      500,
			ChunkOverlap:   50,
			MinChunkSize:   100,
			EmbedBatchSize: 32,
			MaxVectors:     200000,
		},
		Retrieval: RetrievalConfig{
			MaxChunks:       5,
			OverFetchFactor: 3,
			MinSimilarity:   0.30,
		},
		Grounding: GroundingConfig{
			RequestTimeout: "45s",
			Temperature:    0.1,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.0-flash",
			EmbedModel:     "gemini-embedding-001",
			EmbedDimension: 768,
			Timeout:        "2m",
			RateLimit:      "200ms",
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
			Timeout:   "2m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> files (later
// files override earlier) -> environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LIBER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("LIBER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("LIBER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("LIBER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if url := os.Getenv("QDRANT_API_ENDPOINT"); url != "" {
		config.Qdrant.URL = url
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		config.Qdrant.APIKey = key
	}
	if collection := os.Getenv("QDRANT_COLLECTION_NAME"); collection != "" {
		config.Qdrant.Collection = collection
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("LIBER_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	if size := os.Getenv("LIBER_CHUNK_SIZE"); size != "" {
		if v, err := strconv.Atoi(size); err == nil {
			config.Ingestion.ChunkSize = v
		}
	}
	if overlap := os.Getenv("LIBER_CHUNK_OVERLAP"); overlap != "" {
		if v, err := strconv.Atoi(overlap); err == nil {
			config.Ingestion.ChunkOverlap = v
		}
	}
	if sim := os.Getenv("LIBER_MIN_SIMILARITY"); sim != "" {
		if v, err := strconv.ParseFloat(sim, 64); err == nil {
			config.Retrieval.MinSimilarity = v
		}
	}

	if level := os.Getenv("LIBER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ParseDurationOr parses a duration string, falling back to a default on
// empty or invalid input.
func ParseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

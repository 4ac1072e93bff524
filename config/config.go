// Package config loads tool configuration from YAML with sensible defaults.
// Secrets (API keys) are never stored in the file; config names the
// environment variables that hold them.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the regulatory RAG pipeline.
type Config struct {
	Documents DocumentsConfig `yaml:"documents"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DocumentsConfig locates the extraction outputs to ingest.
type DocumentsConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ChunkingConfig tunes the hybrid chunker.
type ChunkingConfig struct {
	MaxChunkSize    int  `yaml:"max_chunk_size"`
	MinChunkSize    int  `yaml:"min_chunk_size"`
	Overlap         int  `yaml:"overlap"`
	SummarizeTables bool `yaml:"summarize_tables"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "mock"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Type   string       `yaml:"type"` // "qdrant", "local"
	Qdrant QdrantConfig `yaml:"qdrant"`
	Local  LocalConfig  `yaml:"local"`
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	APIKeyEnv      string `yaml:"api_key_env"`
	UseTLS         bool   `yaml:"use_tls"`
	Collection     string `yaml:"collection"`
	ConnectRetries int    `yaml:"connect_retries"`
	RetryDelaySecs int    `yaml:"retry_delay_secs"`
	UpsertBatch    int    `yaml:"upsert_batch"`
}

// LocalConfig configures the bbolt-backed store.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// RetrieveConfig tunes the query path.
type RetrieveConfig struct {
	TopK         int     `yaml:"top_k"`
	KeywordTopK  int     `yaml:"keyword_top_k"`
	KeywordBonus float64 `yaml:"keyword_bonus"`
	Summarize    bool    `yaml:"summarize"`
}

// LLMConfig configures the language-model service.
type LLMConfig struct {
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Documents: DocumentsConfig{
			Dir:      "./data/staging",
			Includes: []string{"**/*.json", "**/*.txt"},
		},
		Chunking: ChunkingConfig{
			MaxChunkSize:    1000,
			MinChunkSize:    50,
			Overlap:         100,
			SummarizeTables: false,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 1000,
		},
		Store: StoreConfig{
			Type: "qdrant",
			Qdrant: QdrantConfig{
				Host:           "localhost",
				Port:           6334,
				APIKeyEnv:      "QDRANT_API_KEY",
				Collection:     "document_embeddings",
				ConnectRetries: 5,
				RetryDelaySecs: 5,
				UpsertBatch:    100,
			},
			Local: LocalConfig{
				Path: ".regrag/vectors.db",
			},
		},
		Retrieve: RetrieveConfig{
			TopK:         5,
			KeywordTopK:  3,
			KeywordBonus: 0.1,
			Summarize:    false,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			TimeoutSecs: 120,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for regrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "regrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	path = filepath.Join(dir, ".regrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

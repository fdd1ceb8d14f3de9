package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the RAG pipeline.
type Config struct {
	Ingest      IngestConfig      `yaml:"ingest"`
	Retrieve    RetrieveConfig    `yaml:"retrieve"`
	Attribution AttributionConfig `yaml:"attribution"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Chat        ChatConfig        `yaml:"chat"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// IngestConfig holds document ingestion configuration.
type IngestConfig struct {
	DocumentsPath      string   `yaml:"documents_path"`
	Includes           []string `yaml:"includes"`
	Excludes           []string `yaml:"excludes"`
	MaxSegmentSize     int      `yaml:"max_segment_size"`
	MaxOverlap         int      `yaml:"max_overlap"`
	ContextBefore      int      `yaml:"context_before"`
	ContextAfter       int      `yaml:"context_after"`
	PerDocumentContext bool     `yaml:"per_document_context"` // clip context windows at document boundaries
	BatchSize          int      `yaml:"batch_size"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	MaxResults    int  `yaml:"max_results"`
	CompressQuery bool `yaml:"compress_query"`
	CacheSize     int  `yaml:"cache_size"`
}

// AttributionConfig holds source attribution configuration.
type AttributionConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // sources must score strictly above this
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
}

// ChatConfig holds generation model configuration.
type ChatConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			DocumentsPath:  "documents",
			Includes:       []string{"*"},
			Excludes:       []string{".*"},
			MaxSegmentSize: 200,
			MaxOverlap:     20,
			ContextBefore:  2,
			ContextAfter:   2,
			BatchSize:      100,
		},
		Retrieve: RetrieveConfig{
			MaxResults:    3,
			CompressQuery: true,
			CacheSize:     100,
		},
		Attribution: AttributionConfig{
			SimilarityThreshold: 0.85,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
		},
		Chat: ChatConfig{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for rag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try rag.yaml in the directory
	path := filepath.Join(dir, "rag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .rag/config.yaml
	path = filepath.Join(dir, ".rag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// VectorDBPath returns the path to the vector database.
func VectorDBPath(dir string) string {
	return filepath.Join(dir, ".rag", "vectors.db")
}

// EnsureRAGDir ensures the .rag directory exists.
func EnsureRAGDir(dir string) error {
	ragDir := filepath.Join(dir, ".rag")
	return os.MkdirAll(ragDir, 0755)
}

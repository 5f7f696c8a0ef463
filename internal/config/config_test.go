package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9090
embedding:
  model: text-embedding-3-small
  dimensions: 1536
ingest:
  chunk_size: 800
  chunk_overlap: 100
storage:
  registry_path: ./data/registry.db
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("Dimensions = %d, want 1536", cfg.Embedding.Dimensions)
	}
	if cfg.Ingest.ChunkSize != 800 || cfg.Ingest.ChunkOverlap != 100 {
		t.Errorf("chunking = (%d, %d), want (800, 100)", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	// Relative ./ paths expand against the config directory.
	if !filepath.IsAbs(cfg.Storage.RegistryPath) {
		t.Errorf("RegistryPath not expanded: %s", cfg.Storage.RegistryPath)
	}
	// Unset fields get defaults.
	if cfg.VectorStore.BatchSize != 100 {
		t.Errorf("BatchSize default = %d, want 100", cfg.VectorStore.BatchSize)
	}
	if cfg.VectorStore.Metric != "dotproduct" {
		t.Errorf("Metric default = %s, want dotproduct", cfg.VectorStore.Metric)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate_OverlapGuard(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"overlap smaller than size", 1000, 200, false},
		{"overlap equals size", 500, 500, true},
		{"overlap exceeds size", 100, 300, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			cfg.Ingest.ChunkSize = tt.size
			cfg.Ingest.ChunkOverlap = tt.overlap
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunking defaults = (%d, %d), want (1000, 200)", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" {
		t.Errorf("Model default = %s", cfg.Embedding.Model)
	}
	if cfg.VectorStore.Cloud != "aws" || cfg.VectorStore.Region != "us-east-1" {
		t.Errorf("serverless defaults = (%s, %s)", cfg.VectorStore.Cloud, cfg.VectorStore.Region)
	}
}

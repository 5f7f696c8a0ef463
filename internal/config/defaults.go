package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 3072
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "pinecone"
	}
	if cfg.VectorStore.APIKeyEnv == "" {
		cfg.VectorStore.APIKeyEnv = "PINECONE_API_KEY"
	}
	if cfg.VectorStore.IndexName == "" {
		cfg.VectorStore.IndexName = "docuchat"
	}
	if cfg.VectorStore.Metric == "" {
		cfg.VectorStore.Metric = "dotproduct"
	}
	if cfg.VectorStore.Cloud == "" {
		cfg.VectorStore.Cloud = "aws"
	}
	if cfg.VectorStore.Region == "" {
		cfg.VectorStore.Region = "us-east-1"
	}
	if cfg.VectorStore.BatchSize == 0 {
		cfg.VectorStore.BatchSize = 100
	}
	if cfg.VectorStore.TimeoutSeconds == 0 {
		cfg.VectorStore.TimeoutSeconds = 30
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.MaxFileMB == 0 {
		cfg.Ingest.MaxFileMB = 50
	}
	if cfg.Storage.RegistryPath == "" {
		cfg.Storage.RegistryPath = "/usr/local/var/docuchat/data/registry.db"
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "/usr/local/var/docuchat/data/catalog.bleve"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx", ".pptx", ".odp", ".ods"}
	}
}

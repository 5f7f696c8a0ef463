// Package main is the docuchat CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/docuchat/docuchat/internal/catalog"
	"github.com/docuchat/docuchat/internal/config"
	"github.com/docuchat/docuchat/internal/embedding"
	"github.com/docuchat/docuchat/internal/ingest"
	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/registry"
	"github.com/docuchat/docuchat/internal/retrieval"
	"github.com/docuchat/docuchat/internal/server"
	"github.com/docuchat/docuchat/internal/vectorstore"
	"github.com/docuchat/docuchat/internal/watcher"
	"github.com/docuchat/docuchat/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/docuchat/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys usually live in a .env next to the working directory.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "clear":
		runClear()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("docuchat version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			func(path string) {
				content, readErr := os.ReadFile(path)
				if readErr != nil {
					logger.Warn("watch read failed", zap.String("path", path), zap.Error(readErr))
					return
				}
				opts := ingest.Options{
					ChunkSize:    cfg.Ingest.ChunkSize,
					ChunkOverlap: cfg.Ingest.ChunkOverlap,
					Namespace:    cfg.Watch.Namespace,
				}
				if _, ingErr := components.Pipeline.IngestFile(context.Background(), filepath.Base(path), content, opts); ingErr != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(ingErr))
				}
			},
			watcher.WithLogger(logger),
			watcher.WithRemoveHandler(func(path string) {
				removeWatchedDocument(components, cfg.Watch.Namespace, path, logger)
			}),
		)
		if err := watchSvc.Start(context.Background()); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExisting()
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Retrieval,
		components.Store,
		components.Registry,
		components.Catalog,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	namespace := fs.String("namespace", "", "namespace to ingest into")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docuchat ingest [flags] <files...>")
		os.Exit(1)
	}

	cfg, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	failed := 0
	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Failed to read %s: %v\n", path, err)
			failed++
			continue
		}
		result, err := components.Pipeline.IngestFile(ctx, filepath.Base(path), content, ingest.Options{
			ChunkSize:    cfg.Ingest.ChunkSize,
			ChunkOverlap: cfg.Ingest.ChunkOverlap,
			Namespace:    *namespace,
		})
		if err != nil {
			fmt.Printf("Ingestion of %s failed: %v\n", path, err)
			failed++
			continue
		}
		for _, id := range result.DocumentIDs {
			if rec, getErr := components.Registry.Get(ctx, id); getErr == nil {
				_ = components.Catalog.Index(rec)
			}
		}
		fmt.Printf("Ingested %s: %s (%d chunks)\n", path, strings.Join(result.DocumentIDs, ", "), result.ChunkCount)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct access when server is not running)")
	namespace := fs.String("namespace", "", "namespace to search in")
	topK := fs.Int("top-k", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docuchat search [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: docuchat search [flags] <query>")
		os.Exit(1)
	}

	req := &models.SearchRequest{Query: query, Namespace: *namespace, TopK: *topK}

	var response *models.SearchResponse
	if *serverURL != "" {
		var err error
		response, err = searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		_, logger, components := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()
		var err error
		response, err = components.Retrieval.SearchResponse(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		if response.TotalResults == 0 {
			fmt.Println("No results.")
			return
		}
		for i, r := range response.Results {
			fmt.Printf("%d. %s (score %.3f, chunk %d/%d)\n", i+1, r.Title, r.Score, r.ChunkIndex+1, r.TotalChunks)
			fmt.Printf("   %s\n", utils.Truncate(strings.ReplaceAll(r.Content, "\n", " "), 160))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docuchat delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	if err := components.Pipeline.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if components.Catalog != nil {
		_ = components.Catalog.Delete(docID)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docuchat clear [flags] <namespace>")
		os.Exit(1)
	}
	namespace := fs.Arg(0)

	_, logger, components := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	var ids []string
	if recs, listErr := components.Registry.List(ctx, namespace, 0, 1<<30); listErr == nil {
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
	}
	if err := components.Pipeline.ClearNamespace(ctx, namespace); err != nil {
		fmt.Printf("Clear failed: %v\n", err)
		os.Exit(1)
	}
	if components.Catalog != nil {
		for _, id := range ids {
			_ = components.Catalog.Delete(id)
		}
	}
	fmt.Printf("Namespace cleared: %s\n", namespace)
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct access)")
	namespace := fs.String("namespace", "", "restrict stats to a namespace")
	_ = fs.Parse(os.Args[2:])

	var stats models.IndexStats
	if *serverURL != "" {
		statsURL := *serverURL + "/api/v1/stats"
		if *namespace != "" {
			statsURL += "?namespace=" + url.QueryEscape(*namespace)
		}
		resp, err := http.Get(statsURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Stats models.IndexStats `json:"stats"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		stats = out.Stats
	} else {
		_, logger, components := mustInitialize(*configPath)
		defer logger.Sync()
		defer components.Close()
		res, err := components.Store.Stats(context.Background(), *namespace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		stats = *res
	}

	fmt.Printf("vectors:    %d\n", stats.TotalVectorCount)
	fmt.Printf("dimension:  %d\n", stats.Dimension)
	if stats.Namespace != "" {
		fmt.Printf("namespace:  %s\n", stats.Namespace)
	}
	for ns, count := range stats.Namespaces {
		name := ns
		if name == "" {
			name = "(unscoped)"
		}
		fmt.Printf("  %s: %d\n", name, count)
	}
}

// removeWatchedDocument drops the ingested document backing a file that
// disappeared from a drop directory, matched by filename within the watch
// namespace.
func removeWatchedDocument(components *Components, namespace, path string, logger *zap.Logger) {
	ctx := context.Background()
	filename := filepath.Base(path)
	recs, err := components.Registry.List(ctx, namespace, 0, 1<<30)
	if err != nil {
		logger.Warn("watch remove lookup failed", zap.String("path", path), zap.Error(err))
		return
	}
	for _, rec := range recs {
		if rec.Filename != filename {
			continue
		}
		if err := components.Pipeline.DeleteDocument(ctx, rec.ID); err != nil {
			logger.Warn("watch remove failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		_ = components.Catalog.Delete(rec.ID)
		logger.Info("removed document for deleted file",
			zap.String("id", rec.ID), zap.String("filename", filename))
	}
}

// Components holds initialized services.
type Components struct {
	Registry  registry.Registry
	Catalog   *catalog.Catalog
	Embedder  embedding.Embedder
	Store     vectorstore.Store
	Pipeline  *ingest.Pipeline
	Retrieval *retrieval.Service
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
}

func mustInitialize(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return cfg, logger, components
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	reg, err := registry.NewSQLiteRegistry(cfg.Storage.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}

	cat, err := catalog.New(cfg.Storage.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	var embedder embedding.Embedder
	if apiKey := os.Getenv(cfg.Embedding.APIKeyEnv); apiKey != "" {
		openai, err := embedding.NewOpenAIEmbedder(apiKey, cfg.Embedding.Dimensions,
			embedding.WithBaseURL(cfg.Embedding.BaseURL),
			embedding.WithModel(cfg.Embedding.Model),
			embedding.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second}),
			embedding.WithMaxRetries(cfg.Embedding.MaxRetries),
			embedding.WithOpenAILogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = embedding.NewCachedEmbedder(openai, cfg.Embedding.CacheSize)
	} else {
		logger.Warn("embedding API key not set, using mock embedder",
			zap.String("env", cfg.Embedding.APIKeyEnv))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	var store vectorstore.Store
	if apiKey := os.Getenv(cfg.VectorStore.APIKeyEnv); apiKey != "" {
		store, err = vectorstore.NewPineconeStore(ctx, apiKey, cfg.VectorStore.IndexName,
			cfg.Embedding.Dimensions, cfg.VectorStore.Metric,
			vectorstore.WithServerless(cfg.VectorStore.Cloud, cfg.VectorStore.Region),
			vectorstore.WithPineconeHTTPClient(&http.Client{Timeout: time.Duration(cfg.VectorStore.TimeoutSeconds) * time.Second}),
			vectorstore.WithPineconeLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
	} else {
		logger.Warn("vector store API key not set, using in-memory store",
			zap.String("env", cfg.VectorStore.APIKeyEnv))
		store, err = vectorstore.NewMemoryStore(cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
	}

	pipeline := ingest.NewPipeline(embedder, store, reg,
		ingest.WithLogger(logger),
		ingest.WithEmbedBatchSize(cfg.VectorStore.BatchSize),
		ingest.WithMaxFileMB(cfg.Ingest.MaxFileMB),
	)
	ret := retrieval.NewService(embedder, store, retrieval.WithLogger(logger))

	return &Components{
		Registry:  reg,
		Catalog:   cat,
		Embedder:  embedder,
		Store:     store,
		Pipeline:  pipeline,
		Retrieval: ret,
	}, nil
}

func printUsage() {
	fmt.Println(`docuchat - Document ingestion and semantic retrieval service

Usage:
  docuchat server [flags]             Start the HTTP server
  docuchat ingest [flags] <files...>  Ingest document files
  docuchat search [flags] <query>     Search ingested documents
  docuchat delete [flags] <id>        Delete a document and its chunks
  docuchat clear [flags] <namespace>  Delete everything in a namespace
  docuchat stats [flags]              Show vector index statistics
  docuchat version                    Show version
  docuchat help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docuchat/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string     Config file path
  --namespace string  Namespace to ingest into (default: unscoped pool)

Search Flags:
  --config string     Config file path (for direct mode)
  --server string     Server URL (default: http://localhost:8080). Use --server "" for direct access.
  --namespace string  Namespace to search in (default: unscoped pool)
  --top-k int         Number of results (default: 10)
  --output string     Output format: text or json (default: text)

Stats Flags:
  --server string     Server URL (default: http://localhost:8080). Use --server "" for direct access.
  --namespace string  Restrict stats to a namespace

Examples:
  docuchat server
  docuchat ingest --namespace thread-42 report.pdf
  docuchat search --namespace thread-42 "quarterly revenue"
  docuchat search --output json "machine learning"
  docuchat delete 3f2a9c0d-5b7e-4f1a-9c3d-8e6f2a1b4c5d
  docuchat clear thread-42
  docuchat stats`)
}

// Package main is the policyrag CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/assistant"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/chunker"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/config"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/embedding"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/ingest"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/llm"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/search"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/server"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/storage"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/watcher"
	"github.com/Saksha05/Invoices-Information-Extraction/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

func main() {
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
	case "ask":
		runAsk()
	case "analyze":
		runAnalyze()
	case "list":
		runList()
	case "delete":
		runDelete()
	case "clear":
		runClear()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("policyrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`policyrag - insurance document retrieval and analysis

Usage:
  policyrag server  [-config path] [-debug]         run the HTTP API server
  policyrag ingest  [-config path] <file>...        ingest documents
  policyrag search  [-config path] [-k n] <query>   search stored documents
  policyrag ask     [-config path] [-doc id] <question>
  policyrag analyze [-config path] [-doc id] <incident description>
  policyrag list    [-config path]                  list stored documents
  policyrag delete  [-config path] <document-id>    delete one document
  policyrag clear   [-config path]                  delete all documents
  policyrag stats   [-config path]                  show knowledge base stats
  policyrag version
`)
}

// components holds everything a subcommand needs, wired from config.
type components struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     storage.Store
	Embedder  embedding.Embedder
	Pipeline  *ingest.Pipeline
	Searcher  *search.Searcher
	Assistant *assistant.Assistant
}

func (c *components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

func initializeComponents(configPath string, debug bool) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	switch cfg.Storage.Driver {
	case "postgres":
		store, err = storage.NewPostgresStore(context.Background(), cfg.Storage.Postgres.DSN())
	default:
		store, err = storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	var embedder embedding.Embedder
	onnx, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX model unavailable, using deterministic fallback embedder", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnx
	}

	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	pipeline := ingest.NewPipeline(store, embedder, ch, logger)
	searcher := search.NewSearcher(store, embedder, logger)

	var asst *assistant.Assistant
	if key := cfg.LLM.APIKey(); key != "" {
		client := llm.NewClient(key, cfg.LLM.Model)
		asst = assistant.New(searcher, client, cfg.Search.DefaultTopK, logger)
	} else {
		logger.Info("no LLM API key set, ask/analyze disabled",
			zap.String("env", cfg.LLM.APIKeyEnv))
	}

	return &components{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Embedder:  embedder,
		Pipeline:  pipeline,
		Searcher:  searcher,
		Assistant: asst,
	}, nil
}

func mustInit(configPath string, debug bool) *components {
	c, err := initializeComponents(configPath, debug)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return c
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	c := mustInit(*configPath, *debug)
	defer c.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(c.Config.Watch.Directories) > 0 {
		watch := watcher.New(c.Pipeline, c.Config.Watch.Directories, c.Config.Watch.Extensions, c.Logger)
		if err := watch.Start(watchCtx); err != nil {
			c.Logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watch.Stop()
	}

	srv := server.NewServer(c.Pipeline, c.Searcher, c.Assistant, c.Store, &c.Config.Server, c.Logger)
	go func() {
		if err := srv.Start(); err != nil {
			c.Logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	c.Logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() == 0 {
		fmt.Println("Usage: policyrag ingest [-config path] <file>...")
		os.Exit(1)
	}

	c := mustInit(*configPath, false)
	defer c.Close()

	ctx := context.Background()
	for _, path := range fs.Args() {
		result, err := c.Pipeline.IngestFile(ctx, path, map[string]interface{}{"source": "cli"})
		if err != nil {
			fmt.Printf("%s: failed: %v\n", path, err)
			continue
		}
		if result.Deduplicated {
			fmt.Printf("%s: already ingested (document %d)\n", path, result.DocumentID)
			continue
		}
		fmt.Printf("%s: ingested as document %d (%d chunks)\n", path, result.DocumentID, result.ChunkCount)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("k", 0, "number of results (default from config)")
	docID := fs.Int64("doc", 0, "restrict to a single document")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: policyrag search [-config path] [-k n] [-doc id] <query>")
		os.Exit(1)
	}

	c := mustInit(*configPath, false)
	defer c.Close()

	k := *topK
	if k <= 0 {
		k = c.Config.Search.DefaultTopK
	}
	results, err := c.Searcher.Search(context.Background(), search.Request{
		Query:      query,
		TopK:       k,
		DocumentID: *docID,
	})
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s (page %d, chunk %d)\n", i+1, r.Score, r.DocumentName, r.Chunk.PageNumber, r.Chunk.ChunkIndex)
		fmt.Printf("   %s\n", truncate(r.Chunk.Text, 200))
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	docID := fs.Int64("doc", 0, "restrict to a single document")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: policyrag ask [-config path] [-doc id] <question>")
		os.Exit(1)
	}

	c := mustInit(*configPath, false)
	defer c.Close()
	if c.Assistant == nil {
		fmt.Printf("Set %s to enable ask.\n", c.Config.LLM.APIKeyEnv)
		os.Exit(1)
	}

	answer, err := c.Assistant.Ask(context.Background(), question, *docID)
	if err != nil {
		fmt.Printf("Ask failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(answer.Text)
	fmt.Printf("\nSources:\n")
	for _, s := range answer.Sources {
		fmt.Printf("  [%.3f] %s, page %d\n", s.Score, s.DocumentName, s.Chunk.PageNumber)
	}
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	docID := fs.Int64("doc", 0, "restrict to a single document")
	_ = fs.Parse(os.Args[2:])

	incident := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if incident == "" {
		fmt.Println("Usage: policyrag analyze [-config path] [-doc id] <incident description>")
		os.Exit(1)
	}

	c := mustInit(*configPath, false)
	defer c.Close()
	if c.Assistant == nil {
		fmt.Printf("Set %s to enable analyze.\n", c.Config.LLM.APIKeyEnv)
		os.Exit(1)
	}

	analysis, err := c.Assistant.AnalyzeCoverage(context.Background(), incident, *docID)
	if err != nil {
		fmt.Printf("Analyze failed: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(analysis, "", "  ")
	fmt.Println(string(out))
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	c := mustInit(*configPath, false)
	defer c.Close()

	docs, err := c.Store.ListDocuments(context.Background())
	if err != nil {
		fmt.Printf("List failed: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("No documents.")
		return
	}
	for _, doc := range docs {
		fmt.Printf("%d\t%s\t%d chunks\t%s\n", doc.ID, doc.Name, doc.ChunkCount, doc.UploadedAt.Format(time.RFC3339))
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Println("Usage: policyrag delete [-config path] <document-id>")
		os.Exit(1)
	}
	var id int64
	if _, err := fmt.Sscanf(fs.Arg(0), "%d", &id); err != nil {
		fmt.Printf("Invalid document id: %s\n", fs.Arg(0))
		os.Exit(1)
	}

	c := mustInit(*configPath, false)
	defer c.Close()

	if err := c.Store.DeleteDocument(context.Background(), id); err != nil {
		fmt.Printf("Delete failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted document %d.\n", id)
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("Delete ALL documents? Type 'yes' to confirm: ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	c := mustInit(*configPath, false)
	defer c.Close()

	if err := c.Store.DeleteAll(context.Background()); err != nil {
		fmt.Printf("Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("All documents deleted.")
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	c := mustInit(*configPath, false)
	defer c.Close()

	stats, err := c.Store.Stats(context.Background())
	if err != nil {
		fmt.Printf("Stats failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Documents:         %d\n", stats.TotalDocuments)
	fmt.Printf("Chunks:            %d\n", stats.TotalChunks)
	fmt.Printf("Chunks/document:   %.1f\n", stats.AvgChunksPerDocument)
}

// truncate shortens s to at most n runes, keeping multi-byte characters whole.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"GoAnalysis/internal/analysis"
	"GoAnalysis/internal/compiler"
	"GoAnalysis/internal/index"
	"GoAnalysis/internal/indexing"
	"GoAnalysis/internal/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	configPath := flag.String("config", getEnv("GOANALYSIS_CONFIG", "analyzers.yaml"), "path to analyzer configuration (.json, .yaml or .yml)")
	schemaPath := flag.String("schema", getEnv("GOANALYSIS_SCHEMA", ""), "optional schema file for an index created at startup")
	indexName := flag.String("index", getEnv("GOANALYSIS_INDEX", "default"), "name of the index created from -schema")
	maxDocs := flag.Int("max-docs", indexing.DefaultMaxDocs, "maximum live documents per index")
	memoryLimit := flag.Int64("memory-limit", indexing.DefaultMemoryLimit, "approximate memory limit per index in bytes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(getEnv("GOANALYSIS_LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	port := getEnv("GOANALYSIS_PORT", "8080")

	logger.Info("starting GoAnalysis",
		"version", Version,
		"port", port,
		"config", *configPath,
	)

	// Compile every configured analyzer. Any invalid entry aborts startup.
	catalog := analysis.NewCatalog()
	registry := analysis.NewRegistry()
	opts := compiler.DefaultOptions()
	opts.Logger = logger
	if err := compiler.New(catalog, opts).InitFromFile(registry, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize analyzers: %v\n", err)
		os.Exit(1)
	}

	limits := indexing.Limits{MaxDocs: *maxDocs, MemoryLimit: *memoryLimit}
	mgr := server.NewIndexManager(registry, limits, logger)
	if *schemaPath != "" {
		schema, err := index.LoadSchema(*schemaPath, registry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load schema: %v\n", err)
			os.Exit(1)
		}
		if err := mgr.CreateIndex(*indexName, schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create index: %v\n", err)
			os.Exit(1)
		}
	}

	// Create HTTP handler and register API routes.
	handler := server.NewHandler(registry, catalog, mgr, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Health check endpoint.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})

	// Readiness check. Analyzers are compiled before the listener starts.
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ready",
			"analyzers": registry.Len(),
		})
	})

	// Root info endpoint.
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":    "GoAnalysis",
			"version": Version,
		})
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cayleygraph/quad"

	"github.com/vanshika/sparqlconn/internal/config"
	"github.com/vanshika/sparqlconn/internal/logging"
	"github.com/vanshika/sparqlconn/internal/repository"
	"github.com/vanshika/sparqlconn/internal/service"
)

var errNoFiles = errors.New("no rdf files matched")

func main() {
	var (
		datasetDir   = flag.String("dataset-dir", "./seed-data", "Directory containing RDF files")
		include      = flag.String("include", "", "Comma separated glob patterns relative to dataset-dir (default: every known RDF extension)")
		graphIRI     = flag.String("graph", "", "Named graph receiving the statements (overrides INGEST_DEFAULT_GRAPH)")
		baseURI      = flag.String("base", "", "Base URI for relative IRIs")
		workers      = flag.Int("workers", 0, "Number of concurrent workers (overrides INGEST_WORKERS)")
		transactions = flag.Bool("tx", true, "Load each file inside its own transaction")
		watch        = flag.Bool("watch", false, "Keep running and load files as they change")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	patterns := splitPatterns(*include)
	files, err := service.ResolveFiles(*datasetDir, patterns)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 && !*watch {
		logger.Error("dataset empty", "error", errNoFiles, "dir", *datasetDir)
		os.Exit(1)
	}

	if *workers <= 0 {
		*workers = cfg.Ingest.Workers
	}
	if *graphIRI == "" {
		*graphIRI = cfg.Ingest.DefaultGraph
	}
	var contexts []quad.Value
	if *graphIRI != "" {
		contexts = append(contexts, quad.IRI(*graphIRI))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo := repository.NewRepository(cfg.Store.GraphOptions(), repository.WithLogger(logger))
	if err := repo.Initialize(ctx); err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := repo.ShutDown(context.Background()); err != nil {
			logger.Warn("shutting down repository failed", "error", err)
		}
	}()

	loader := service.NewBulkLoader(repo,
		service.WithWorkers(*workers),
		service.WithTransactions(*transactions),
		service.WithLoaderLogger(logger),
	)

	if len(files) > 0 {
		logger.Info("loading files", "count", len(files), "workers", *workers, "graph", *graphIRI)
		report, err := loader.Load(ctx, service.Tasks(files, *baseURI, contexts...))
		if err != nil {
			logger.Error("ingestion failed", "error", err, "failed", report.Failed, "files", report.Files)
			if !*watch {
				os.Exit(1)
			}
		} else {
			logger.Info("ingestion complete", "duration", report.Duration.String(), "files", report.Files)
		}
	}

	if !*watch {
		return
	}
	watcher := service.NewWatcher(loader, *datasetDir, patterns,
		service.LoadTask{BaseURI: *baseURI, Contexts: contexts}, cfg.Ingest.WatchDebounce, logger)
	if err := watcher.Run(ctx); err != nil {
		logger.Error("watcher stopped", "error", err)
		os.Exit(1)
	}
}

func splitPatterns(csv string) []string {
	var patterns []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

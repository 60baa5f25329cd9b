// Command indexer loads corpus entry files into the vector store and seeds
// the archetype graph. With -consume it stays up as a NATS consumer instead,
// processing entries published on the ingest subject.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ArcanaLabs/arcana-engine/engine/archetype"
	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/engine/ingest"
	"github.com/ArcanaLabs/arcana-engine/engine/semantic"
	"github.com/ArcanaLabs/arcana-engine/pkg/embed"
	"github.com/ArcanaLabs/arcana-engine/pkg/fn"
	"github.com/ArcanaLabs/arcana-engine/pkg/metrics"
)

const vectorDims = 768 // nomic-embed-text

var met = metrics.New()

var (
	mEntriesTotal = func(corpus string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("arcana_index_entries_total", "corpus", corpus), "Corpus entries indexed")
	}
	mErrorsTotal = met.Counter("arcana_index_errors_total", "Entries that failed the pipeline")
	mFilesTotal  = met.Counter("arcana_index_files_total", "Corpus files processed")
	mEntryDur    = met.Histogram("arcana_index_entry_duration_seconds", "Per-entry pipeline time", nil)
)

func main() {
	var (
		dataDir     = flag.String("dir", "./corpus", "directory of corpus JSONL files")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		embedRPS    = flag.Float64("embed-rps", 20, "embedding calls per second")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "arcana", "Qdrant collection name")
		neo4jURL    = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser   = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass   = flag.String("neo4j-pass", "password", "Neo4j password")
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS URL, used with -consume")
		workers     = flag.Int("workers", 4, "concurrent entries per file")
		seedGraph   = flag.Bool("seed-archetypes", false, "seed the archetype graph and exit")
		consume     = flag.Bool("consume", false, "run as a NATS consumer instead of scanning -dir")
		metricsPort = flag.Int("metrics-port", 9092, "metrics port")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)
	met.ServeAsync(*metricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *seedGraph {
		driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
		if err != nil {
			log.Error("neo4j connect failed", "err", err)
			os.Exit(1)
		}
		defer driver.Close(ctx)
		if err := archetype.Seed(ctx, archetype.NewStore(driver)); err != nil {
			log.Error("archetype seed failed", "err", err)
			os.Exit(1)
		}
		log.Info("archetype graph seeded")
		return
	}

	vs, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		log.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer vs.Close()
	if err := vs.EnsureCollection(ctx, vectorDims); err != nil {
		log.Error("qdrant ensure collection failed", "err", err)
		os.Exit(1)
	}

	deps := ingest.Deps{
		Embedder: embed.NewClient(*ollamaURL, *ollamaModel, *embedRPS),
		Store:    vs,
		Cards:    domain.NewCardCatalog(),
		Logger:   log,
	}

	if *consume {
		nc, err := nats.Connect(*natsURL, nats.Name("arcana-indexer"))
		if err != nil {
			log.Error("nats connect failed", "err", err)
			os.Exit(1)
		}
		defer nc.Drain()

		sub, err := ingest.StartConsumer(nc, deps)
		if err != nil {
			log.Error("consumer start failed", "err", err)
			os.Exit(1)
		}
		defer sub.Unsubscribe()

		log.Info("consuming corpus entries", "subject", ingest.IngestSubject)
		<-ctx.Done()
		return
	}

	pipeline := ingest.NewPipeline(deps)

	files, err := filepath.Glob(filepath.Join(*dataDir, "*.jsonl"))
	if err != nil || len(files) == 0 {
		log.Error("no corpus files found", "dir", *dataDir, "err", err)
		os.Exit(1)
	}

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		ok, failed := processFile(ctx, path, pipeline, *workers, log)
		mFilesTotal.Inc()
		log.Info("file done", "file", filepath.Base(path), "indexed", ok, "errors", failed)
	}
}

// processFile reads one JSONL corpus file and runs its entries through the
// pipeline with bounded concurrency. Transient failures get a short retry;
// validation failures do not.
func processFile(ctx context.Context, path string, pipeline fn.Stage[ingest.CorpusEntry, string], workers int, log *slog.Logger) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		log.Error("open failed", "file", path, "err", err)
		return 0, 1
	}
	defer f.Close()

	var entries []ingest.CorpusEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var e ingest.CorpusEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			log.Error("bad corpus line", "file", path, "err", err)
			mErrorsTotal.Inc()
			continue
		}
		entries = append(entries, e)
	}

	results := fn.ParMapResult(entries, workers, func(e ingest.CorpusEntry) fn.Result[string] {
		start := time.Now()
		defer mEntryDur.Since(start)

		r := pipeline(ctx, e)
		if !r.IsErr() {
			return r
		}
		if _, err := r.Unwrap(); domain.IsValidationError(err) {
			return r
		}
		return fn.Retry(ctx, fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Second, MaxWait: 10 * time.Second, Jitter: true},
			func(ctx context.Context) fn.Result[string] {
				return pipeline(ctx, e)
			})
	})

	ok, failed := 0, 0
	for i, r := range results {
		if r.IsErr() {
			_, err := r.Unwrap()
			log.Error("entry failed", "entry_id", entries[i].EntryID, "err", err)
			mErrorsTotal.Inc()
			failed++
			continue
		}
		mEntriesTotal(entries[i].Corpus).Inc()
		ok++
	}
	return ok, failed
}

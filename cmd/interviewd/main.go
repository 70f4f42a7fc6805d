// Interviewd is the mock-interview orchestrator daemon.
//
// It serves the session API over HTTP, judging candidate answers through
// a configured LLM provider under a deterministic flow policy.
//
// Usage:
//
//	# Start with defaults (in-memory store, static oracle)
//	interviewd
//
//	# Start with a config file
//	interviewd -config /etc/interviewd/config.yaml
//
//	# Configure via environment
//	INTERVIEWD_SERVER__PORT=9090 interviewd
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/config"
	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/feedback"
	"github.com/fyrsmithlabs/interviewd/internal/httpapi"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/questionbank"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/retrieval"
	"github.com/fyrsmithlabs/interviewd/internal/services"
	"github.com/fyrsmithlabs/interviewd/internal/store"
	"github.com/fyrsmithlabs/interviewd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  interviewd           Start the interview daemon\n")
			fmt.Fprintf(os.Stderr, "  interviewd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "interviewd: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("interviewd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Shutdown.Timeout)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	logger.Info("starting interviewd",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("store", cfg.Store.Driver),
		zap.String("oracle", cfg.Oracle.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	svc, err := interview.NewService(&cfg.Interview, interview.Deps{
		Store:     deps.store,
		Oracle:    deps.oracle,
		Retriever: deps.retriever,
		Questions: deps.bank,
		Events:    deps.events,
		Scrubber:  deps.scrubber,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("initialize interview service: %w", err)
	}
	defer svc.Close()

	registry := services.NewRegistry(services.Options{
		Interview: svc,
		Feedback:  feedback.NewGenerator(deps.oracleClient, deps.scrubber, logger),
		Questions: deps.bank,
		Events:    deps.events,
		Scrubber:  deps.scrubber,
		Store:     deps.store,
	})

	server, err := httpapi.NewServer(httpapi.Options{
		Interview:  registry.Interview(),
		Feedback:   registry.Feedback(),
		Catalog:    registry.Questions(),
		EventsConn: deps.natsConn,
		Logger:     logger,
		Config: &httpapi.Config{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		},
	})
	if err != nil {
		return fmt.Errorf("initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// initLogger builds the structured logger, bridging to the OTLP log
// exporter only when telemetry is up.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*zap.Logger, error) {
	if tel.IsEnabled() {
		return logging.New(&cfg.Log, tel.LoggerProvider())
	}
	return logging.New(&cfg.Log, nil)
}

// dependencies holds the infrastructure the services are wired from.
type dependencies struct {
	store        store.Store
	oracle       oracle.Oracle
	oracleClient oracle.Client
	embedder     embeddings.Provider
	retriever    retrieval.Store
	bank         *questionbank.Bank
	events       events.Publisher
	natsConn     *nats.Conn
	scrubber     redact.Scrubber

	logger *zap.Logger
}

// Close releases infrastructure resources in reverse wiring order.
func (d *dependencies) Close() {
	if d.events != nil {
		if err := d.events.Close(); err != nil {
			d.logger.Warn("closing event publisher", zap.Error(err))
		}
	}
	if d.bank != nil {
		_ = d.bank.Close()
	}
	if d.retriever != nil {
		if err := d.retriever.Close(); err != nil {
			d.logger.Warn("closing retrieval store", zap.Error(err))
		}
	}
	if d.embedder != nil {
		_ = d.embedder.Close()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("closing session store", zap.Error(err))
		}
	}
}

// initDependencies wires the configured infrastructure: session store,
// oracle, embeddings + retrieval, question bank, events, redaction.
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	d := &dependencies{logger: logger}

	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	var err error
	d.store, err = store.New(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	d.scrubber, err = redact.New(cfg.Redact, logger)
	if err != nil {
		return nil, fmt.Errorf("create scrubber: %w", err)
	}

	d.oracle, err = oracle.New(cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("create oracle: %w", err)
	}
	if cfg.Oracle.Provider != oracle.ProviderStatic {
		d.oracleClient, err = oracle.NewClient(cfg.Oracle)
		if err != nil {
			return nil, fmt.Errorf("create oracle client: %w", err)
		}
	}

	d.retriever, err = initRetrieval(ctx, cfg, d, logger)
	if err != nil {
		return nil, err
	}

	d.bank, err = initQuestionBank(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	d.events, err = events.New(cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("create event publisher: %w", err)
	}
	if np, isNATS := d.events.(*events.NATSPublisher); isNATS {
		d.natsConn = np.Conn()
	}

	ok = true
	return d, nil
}

// initRetrieval builds the embedder and vector store, then seeds the
// corpus when one is configured.
func initRetrieval(ctx context.Context, cfg *config.Config, d *dependencies, logger *zap.Logger) (retrieval.Store, error) {
	if cfg.Retrieval.Provider == retrieval.ProviderNone {
		return retrieval.NopStore{}, nil
	}

	var err error
	d.embedder, err = embeddings.New(cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	logger.Info("embedder initialized",
		zap.String("provider", cfg.Embeddings.Provider),
		zap.String("model", cfg.Embeddings.Model))

	ret, err := retrieval.New(cfg.Retrieval, d.embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("create retrieval store: %w", err)
	}

	if cfg.Retrieval.CorpusDir != "" {
		n, err := retrieval.LoadCorpus(ctx, cfg.Retrieval.CorpusDir, ret)
		if err != nil {
			logger.Warn("corpus load failed",
				zap.String("dir", cfg.Retrieval.CorpusDir),
				zap.Error(err))
		} else {
			logger.Info("corpus loaded",
				zap.String("dir", cfg.Retrieval.CorpusDir),
				zap.Int("documents", n))
		}
	}

	return ret, nil
}

// initQuestionBank loads the pack directory, syncing from git first when
// configured and starting the hot-reload watcher when enabled.
func initQuestionBank(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*questionbank.Bank, error) {
	bank, err := questionbank.NewBank(cfg.QuestionBank.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}

	if cfg.QuestionBank.GitURL != "" {
		if err := bank.SyncFromGit(ctx, cfg.QuestionBank.GitURL, cfg.QuestionBank.GitRef); err != nil {
			logger.Warn("question pack git sync failed, serving local copy",
				zap.String("url", cfg.QuestionBank.GitURL),
				zap.Error(err))
		}
	}

	if cfg.QuestionBank.Watch {
		go func() {
			if err := bank.Watch(ctx); err != nil {
				logger.Warn("question bank watcher stopped", zap.Error(err))
			}
		}()
	}

	return bank, nil
}

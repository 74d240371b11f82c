// Package app provides the application lifecycle of the set-expansion service.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/setexpand/setexpand/internal/api"
	grpcapi "github.com/setexpand/setexpand/internal/api/grpc"
	httpapi "github.com/setexpand/setexpand/internal/api/http"
	"github.com/setexpand/setexpand/internal/config"
	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/expand"
	"github.com/setexpand/setexpand/internal/keyword"
	"github.com/setexpand/setexpand/internal/observability"
	"github.com/setexpand/setexpand/internal/seedset"
	"github.com/setexpand/setexpand/internal/server"
	"github.com/setexpand/setexpand/internal/storage"
)

// App owns the corpus, the session store and the servers exposing them.
type App struct {
	cfg *config.Config

	// Shared resources
	storage  storage.ObjectStorage
	store    *corpus.SQLiteStore
	sessions *seedset.SessionStore
	stats    *observability.ExpansionStats
	service  *api.Service
	shutdown *server.ShutdownManager

	// Servers
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener

	// Lifecycle
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return &App{cfg: cfg}, nil
}

// OpenStorage opens the object storage named by cfg.
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "local":
		return storage.NewLocalStorage(cfg.Storage.Path)
	case "s3":
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, storage.S3Config{
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.Endpoint != "",
			Prefix:       cfg.Storage.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// Start opens shared resources and starts the servers.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.initSharedResources(ctx); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to initialize shared resources: %w", err)
	}

	if err := a.startHTTP(); err != nil {
		a.cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if a.cfg.GRPC.Enabled {
		if err := a.startGRPC(); err != nil {
			a.cleanup()
			return fmt.Errorf("failed to start gRPC server: %w", err)
		}
	}

	a.startMaintenance(ctx)

	log.Printf("setexpand started: corpus=%s", a.cfg.Corpus.Path)
	return nil
}

// initSharedResources fetches and opens the corpus and builds the service.
func (a *App) initSharedResources(ctx context.Context) error {
	if a.cfg.Corpus.ObjectPath != "" {
		st, err := OpenStorage(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.storage = st
		log.Printf("Storage initialized: type=%s", a.cfg.Storage.Type)

		if err := storage.FetchCorpus(ctx, a.storage, a.cfg.Corpus.ObjectPath, a.cfg.Corpus.Path); err != nil {
			return fmt.Errorf("failed to fetch corpus %s: %w", a.cfg.Corpus.ObjectPath, err)
		}
		log.Printf("Corpus fetched: %s -> %s", a.cfg.Corpus.ObjectPath, a.cfg.Corpus.Path)
	}

	store, err := corpus.Open(a.cfg.Corpus.Path)
	if err != nil {
		return err
	}
	a.store = store
	if n, err := store.TableCount(ctx); err == nil {
		log.Printf("Corpus opened: %s (%d tables)", a.cfg.Corpus.Path, n)
	}

	a.stats = observability.NewExpansionStats(a.cfg.Expansion.StatsWindow)
	a.sessions = seedset.NewSessionStore(seedset.Options{
		DefaultSlider: a.cfg.Expansion.DefaultSlider,
		RowsReturned:  a.cfg.Expansion.RowsReturned,
	})
	expander := expand.New(a.store, expand.Options{
		K1Scale: a.cfg.Expansion.K1Scale,
		B:       a.cfg.Expansion.BM25B,
		Stats:   a.stats,
	})
	searcher := keyword.NewSearcher(a.store, a.stats)
	a.service = api.NewService(a.store, a.sessions, expander, searcher, a.stats)

	a.shutdown = server.NewShutdownManager(server.ShutdownConfig{
		DrainTimeout: a.cfg.HTTP.WriteTimeout,
	})
	a.shutdown.OnShutdownStart(func() {
		log.Printf("Shutting down with %d open sessions", a.sessions.Len())
	})
	return nil
}

// Handler returns the HTTP handler of the service.
func (a *App) Handler() http.Handler {
	return httpapi.NewHandler(a.service).Routes(server.ShutdownMiddleware(a.shutdown))
}

func (a *App) startHTTP() error {
	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	lis, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on HTTP address: %w", err)
	}

	graceful := server.NewGracefulHTTPServer(a.httpServer, a.shutdown)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("HTTP server listening on %s", lis.Addr())
		if err := graceful.Serve(lis); err != nil {
			log.Printf("HTTP server error: %v", err)
		}
	}()
	return nil
}

func (a *App) startGRPC() error {
	a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(server.UnaryInterceptor(a.shutdown)))
	grpcapi.RegisterExpansionServer(a.grpcServer, grpcapi.NewServer(a.service))

	var err error
	a.grpcListener, err = net.Listen("tcp", a.cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC address: %w", err)
	}

	graceful := server.NewGracefulGRPCServer(a.grpcServer, a.shutdown)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("gRPC server listening on %s", a.grpcListener.Addr())
		if err := graceful.Serve(a.grpcListener); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// startMaintenance drops idle sessions and prunes stale statistics.
func (a *App) startMaintenance(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.shutdown.RunEvery(ctx, a.cfg.Sessions.SweepInterval, func() {
			if n := a.sessions.Sweep(a.cfg.Sessions.TTL); n > 0 {
				log.Printf("Dropped %d idle sessions", n)
			}
			a.stats.Prune()
		})
	}()
}

// Stop gracefully stops the servers and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	log.Printf("Initiating graceful shutdown...")

	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Drains in-flight requests, then stops the HTTP and gRPC servers.
	if err := a.shutdown.Shutdown(shutdownCtx, "stop requested"); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Printf("Shutdown timeout, some goroutines may not have finished")
	}

	a.cleanup()

	log.Printf("setexpand stopped")
	return nil
}

// cleanup releases shared resources.
func (a *App) cleanup() {
	if a.httpServer != nil {
		a.httpServer.Close()
	}
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}

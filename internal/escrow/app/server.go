// Package app wires the escrow service together: storage, ledger,
// publisher, engine, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WuodOdhis/trackflow/internal/escrow/api"
	"github.com/WuodOdhis/trackflow/internal/escrow/api/httpx"
	"github.com/WuodOdhis/trackflow/internal/escrow/api/routepath"
	"github.com/WuodOdhis/trackflow/internal/escrow/grant"
	"github.com/WuodOdhis/trackflow/internal/escrow/ledger"
	"github.com/WuodOdhis/trackflow/internal/escrow/messaging"
	"github.com/WuodOdhis/trackflow/internal/escrow/metrics"
	"github.com/WuodOdhis/trackflow/internal/escrow/service"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage/integrity"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage/sqlite"
	"github.com/WuodOdhis/trackflow/internal/platform/timeouts"
)

// Config holds escrow server wiring configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// DBPath locates the SQLite database; empty defaults under data/.
	DBPath string
	// KafkaBrokers enables the Kafka publisher when non-empty.
	KafkaBrokers []string
	// KafkaTopic is the event publication topic.
	KafkaTopic string
	// LedgerSeed credits party accounts from account=amount pairs.
	LedgerSeed string
}

// Server hosts the escrow HTTP service.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      *sqlite.Store
	publisher  messaging.Publisher
}

// New wires the escrow service and returns a server ready to listen.
func New(cfg Config) (*Server, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("listen address is required")
	}

	keyring, err := integrity.KeyringFromEnv()
	if err != nil {
		return nil, err
	}
	grants, err := grant.LoadConfigFromEnv(nil)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.DBPath, keyring)
	if err != nil {
		return nil, err
	}

	funds := ledger.NewMemory()
	if err := seedLedger(funds, cfg.LedgerSeed); err != nil {
		_ = store.Close()
		return nil, err
	}

	var publisher messaging.Publisher = messaging.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publisher = kafkaPublisher
	}

	registry := prometheus.NewRegistry()
	engine, err := service.NewEngine(service.Config{
		Store:     store,
		Events:    store,
		Ledger:    funds,
		Publisher: publisher,
		Metrics:   metrics.New(registry),
	})
	if err != nil {
		_ = publisher.Close()
		_ = store.Close()
		return nil, err
	}

	handlers, err := api.NewHandlers(engine, grants)
	if err != nil {
		_ = publisher.Close()
		_ = store.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.Handle(http.MethodGet+" "+routepath.Metrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc(http.MethodGet+" "+routepath.Healthz, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           httpx.Chain(mux, httpx.RequestID(), httpx.Trace(), httpx.RecoverPanic()),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		httpAddr:   addr,
		httpServer: httpServer,
		store:      store,
		publisher:  publisher,
	}, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.httpAddr
}

// Run creates a server and serves it until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	defer server.Close()
	return server.ListenAndServe(ctx)
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("escrow server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("escrow server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the store and publisher held by the server.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("close event publisher: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close escrow store: %v", err)
		}
	}
}

// openStore resolves the database path and opens the contract store.
func openStore(path string, keyring *integrity.Keyring) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "trackflow.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path, keyring)
	if err != nil {
		return nil, fmt.Errorf("open escrow store: %w", err)
	}
	return store, nil
}

// seedLedger credits party accounts from a comma-separated
// account=amount spec.
func seedLedger(funds *ledger.Memory, spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		account, raw, found := strings.Cut(entry, "=")
		if !found {
			return fmt.Errorf("invalid ledger seed entry %q", entry)
		}
		amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ledger seed amount %q: %w", raw, err)
		}
		if err := funds.Credit(strings.TrimSpace(account), amount); err != nil {
			return fmt.Errorf("seed ledger account %q: %w", account, err)
		}
	}
	return nil
}

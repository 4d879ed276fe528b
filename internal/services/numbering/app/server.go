// Package server composes the numbering service: SQLite store, allocator,
// document service, HTTP API, metrics, and gRPC health.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtlab/lims/internal/platform/telemetry/metrics"
	"github.com/mtlab/lims/internal/platform/timeouts"
	httpapi "github.com/mtlab/lims/internal/services/numbering/api/http"
	"github.com/mtlab/lims/internal/services/numbering/documents"
	"github.com/mtlab/lims/internal/services/numbering/domain"
	numberingsqlite "github.com/mtlab/lims/internal/services/numbering/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name reported while the numbering
// store is open.
const HealthService = "lims.numbering.v1.NumberingService"

// Config holds the listen addresses and storage settings for one server.
type Config struct {
	GRPCPort      int
	HTTPAddr      string
	DBPath        string
	TxMaxAttempts int
}

// Server hosts the numbering service.
type Server struct {
	listener     net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *numberingsqlite.Store
	httpListener net.Listener
	httpServer   *http.Server
}

// New opens the store and binds both listeners.
func New(cfg Config) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewNumbering(registry)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	allocator := domain.NewAllocator(store, domain.WithRecorder(recorder))
	docs := documents.NewService(store, documents.WithRecorder(recorder))
	handler := httpapi.NewHandler(allocator, docs, httpapi.WithMetrics(metrics.Handler(registry)))

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on port %d: %w", cfg.GRPCPort, err)
	}
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("http addr is required")
	}
	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", httpAddr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:     listener,
		grpcServer:   grpcServer,
		health:       healthServer,
		store:        store,
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Addr returns the gRPC listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Run creates and serves a numbering server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve runs both listeners and blocks until one fails or ctx ends. The store
// is closed after both servers have stopped.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("numbering gRPC health listening at %v", s.listener.Addr())
		if err := s.grpcServer.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		log.Printf("numbering HTTP API listening at %v", s.httpListener.Addr())
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.shutdown()
		return nil
	})
	return group.Wait()
}

func (s *Server) shutdown() {
	if s.health != nil {
		s.health.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown numbering HTTP: %v", err)
	}
	s.grpcServer.GracefulStop()
}

func openStore(cfg Config) (*numberingsqlite.Store, error) {
	path := strings.TrimSpace(cfg.DBPath)
	if path == "" {
		path = filepath.Join("data", "numbering.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := numberingsqlite.Open(path, numberingsqlite.WithMaxAttempts(cfg.TxMaxAttempts))
	if err != nil {
		return nil, fmt.Errorf("open numbering sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close numbering store: %v", err)
	}
}

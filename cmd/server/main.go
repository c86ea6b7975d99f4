package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webmcp-discovery-broker/internal/audit"
	"webmcp-discovery-broker/internal/auth"
	"webmcp-discovery-broker/internal/broker"
	"webmcp-discovery-broker/internal/browserpool"
	"webmcp-discovery-broker/internal/config"
	"webmcp-discovery-broker/internal/executor"
	"webmcp-discovery-broker/internal/redact"
	"webmcp-discovery-broker/internal/session"
	"webmcp-discovery-broker/internal/urlpolicy"
)

func main() {
	configPath := flag.String("config", "", "Path to the broker config file (overrides env-only defaults)")
	port := flag.Int("port", 0, "HTTP port override (falls back to PORT env, then 8080)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	listenPort := *port
	if listenPort == 0 {
		if envPort := os.Getenv("PORT"); envPort != "" {
			fmt.Sscanf(envPort, "%d", &listenPort)
		}
	}
	if listenPort == 0 {
		listenPort = 8080
	}

	redaction := redact.New(cfg.Redaction.Fields, cfg.Redaction.Patterns)
	policy := urlpolicy.New(cfg.Policy.AllowedDomains, cfg.Policy.BlockedDomains)
	pool := browserpool.New(cfg.Pool.MaxBrowsers, cfg.Policy.EgressControl, policy, redaction)
	defer pool.CloseAll()

	store := session.NewStore(pool)
	defer store.Shutdown()

	exec := executor.New(policy, redaction, pool.PreparePage)
	authz := auth.New(cfg.Auth)

	auditSink := audit.NewLogSink(cfg.Audit.Level, redaction, log.Default())
	defer auditSink.Close()

	b := broker.New(cfg, pool, policy, store, exec, authz, auditSink)
	transport := broker.NewTransport(b, authz, auditSink)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", listenPort),
		Handler: transport.Mux(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("webmcp-discovery-broker listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("server shutdown error: %v", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server exited with error: %v", err)
		}
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/nearhome/stream-gateway/internal/api"
	"github.com/nearhome/stream-gateway/internal/assets"
	"github.com/nearhome/stream-gateway/internal/config"
	"github.com/nearhome/stream-gateway/internal/events"
	"github.com/nearhome/stream-gateway/internal/metrics"
	"github.com/nearhome/stream-gateway/internal/platform/paths"
	"github.com/nearhome/stream-gateway/internal/probe"
	"github.com/nearhome/stream-gateway/internal/sessions"
	"github.com/nearhome/stream-gateway/internal/stream"
	"github.com/nearhome/stream-gateway/internal/tokens"
)

const serviceName = "nearhome-stream-gateway"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := paths.EnsureDir(cfg.StorageDir); err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Token secret: file-backed with hot reload when configured, static
	// otherwise. The control plane signs with the same key.
	var secret tokens.SecretSource
	if cfg.TokenSecretFile != "" {
		fileSecret, err := tokens.NewFileSecret(cfg.TokenSecretFile)
		if err != nil {
			log.Fatalf("token secret error: %v", err)
		}
		fileSecret.Watch(ctx)
		secret = fileSecret
	} else {
		secret = tokens.StaticSecret(cfg.TokenSecret)
	}
	verifier := tokens.NewVerifier(secret)

	// Lifecycle event publisher (optional).
	var pub events.Publisher = events.Noop{}
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name(serviceName))
		if err != nil {
			log.Printf("Warning: NATS connect failed: %v. Lifecycle events disabled.", err)
		} else {
			pub = events.NewNATSPublisher(nc, cfg.NATSSubject, 3)
			log.Printf("[EVENTS] publishing to %s on %s", cfg.NATSSubject, cfg.NATSURL)
		}
	}

	// Session telemetry mirror (optional).
	var mirror sessions.Mirror
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		mirror = sessions.NewRedisMirror(rdb)
		log.Printf("[SESSION] mirroring sessions to redis at %s", cfg.RedisAddr)
	}

	registry := stream.NewRegistry()
	sessionMgr := sessions.NewManager(cfg.IdleTTL, mirror, pub)
	producer := assets.NewProducer(cfg.StorageDir)
	streamSvc := stream.NewService(registry, producer, sessionMgr, pub)

	m := metrics.New(registry, sessionMgr)
	reader := assets.NewReader(cfg.StorageDir, assets.RetryPolicy{
		MaxRetries: cfg.ReadRetries,
		Base:       cfg.ReadRetryBase,
		Max:        cfg.ReadRetryMax,
	}, m.RecordReadRetry)

	history := probe.NewHistory()
	probeLoop := probe.NewLoop(registry, probe.NewSyntheticProber(), history, cfg.ProbeInterval)
	sweeper := sessions.NewSweeper(sessionMgr, cfg.SweepInterval)

	server := api.NewServer(api.Config{
		StorageDir: cfg.StorageDir,
		Streams:    streamSvc,
		Registry:   registry,
		Sessions:   sessionMgr,
		Reader:     reader,
		Verifier:   verifier,
		Metrics:    m,
		History:    history,
	})

	probeLoop.Start()
	sweeper.Start()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Routes(),
	}

	go func() {
		log.Printf("Starting %s on %s (storage %s)", serviceName, cfg.ListenAddr, cfg.StorageDir)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown requested")

	// Stop the background loops before draining HTTP so no tick runs
	// against a half-closed process.
	probeLoop.Stop()
	sweeper.Stop()
	if nc != nil {
		nc.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown error: %v", err)
	}
	log.Printf("Server stopped gracefully")
}

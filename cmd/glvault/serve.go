package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/genlayer/glvault/pkg/api"
	"github.com/genlayer/glvault/pkg/audit"
	"github.com/genlayer/glvault/pkg/auth"
	"github.com/genlayer/glvault/pkg/config"
	"github.com/genlayer/glvault/pkg/events"
	"github.com/genlayer/glvault/pkg/log"
	"github.com/genlayer/glvault/pkg/metrics"
	"github.com/genlayer/glvault/pkg/relay"
	"github.com/genlayer/glvault/pkg/storage"
	"github.com/genlayer/glvault/pkg/vault"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vault server",
	Long: `Run the vault: load configuration from the environment, open the
storage backend, and serve the relay and admin APIs until SIGINT or
SIGTERM.

Required environment: MASTER_ENCRYPTION_KEY (64 hex chars), HMAC_SECRET,
ADMIN_TOKEN. See the package documentation for the full variable list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	logger := log.WithComponent("serve")

	masterKey, err := cfg.MasterKey()
	if err != nil {
		return err
	}

	backend, err := storage.Open(storage.Options{
		Backend:       cfg.StorageBackend,
		DataDir:       cfg.DataDir,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to open storage backend: %v", err)
	}
	defer backend.Close()
	backend = storage.Instrument(backend)

	broker := events.NewBroker()
	defer broker.Stop()

	store, err := vault.NewStore(vault.Options{
		Backend:      backend,
		MasterKey:    masterKey,
		WindowMS:     cfg.RateLimitWindowMS,
		PerAliasKeys: cfg.PerAliasKeys,
		Broker:       broker,
	})
	if err != nil {
		return fmt.Errorf("failed to create credential store: %v", err)
	}

	auditLog, err := audit.NewLog(audit.Options{
		Backend:    backend,
		IndexLimit: cfg.AuditIndexLimit,
		Broker:     broker,
	})
	if err != nil {
		return fmt.Errorf("failed to create audit log: %v", err)
	}

	keyParams, err := cfg.KeyParamOverrides()
	if err != nil {
		return err
	}

	var nonceGuard *auth.NonceGuard
	if cfg.NonceGuard {
		nonceGuard = auth.NewNonceGuard(time.Duration(cfg.MaxRequestAgeMS) * time.Millisecond)
	}

	relayH, err := relay.NewHandler(relay.Options{
		Store:           store,
		AuditLog:        auditLog,
		HMACSecret:      []byte(cfg.HMACSecret),
		MaxRequestAgeMS: cfg.MaxRequestAgeMS,
		NonceGuard:      nonceGuard,
		UpstreamTimeout: time.Duration(cfg.UpstreamTimeoutMS) * time.Millisecond,
		KeyParams:       relay.NewKeyParamTable(keyParams),
		Broker:          broker,
		Version:         Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create relay handler: %v", err)
	}

	server, err := api.NewServer(api.Options{
		Store:      store,
		Relay:      relayH,
		AuditLog:   auditLog,
		AdminToken: cfg.AdminToken,
		Version:    Version,
		Addr:       cfg.ListenAddr,
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %v", err)
	}

	collector := metrics.NewCollector(store.Count)
	collector.Start()
	defer collector.Stop()

	if cfg.AuditSweepIntervalMS > 0 {
		sweeper := audit.NewSweeper(auditLog, time.Duration(cfg.AuditSweepIntervalMS)*time.Millisecond)
		sweeper.Start()
		defer sweeper.Stop()
	}

	go consumeEvents(broker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("backend", backend.Name()).
		Str("addr", cfg.ListenAddr).
		Bool("nonce_guard", cfg.NonceGuard).
		Bool("per_alias_keys", cfg.PerAliasKeys).
		Msg("vault starting")

	return server.Start(ctx)
}

// consumeEvents turns lifecycle events into operator-level log lines.
func consumeEvents(broker *events.Broker) {
	sub := broker.Subscribe()
	logger := log.WithComponent("events")
	for event := range sub {
		logger.Info().
			Str("type", string(event.Type)).
			Fields(map[string]any{"meta": event.Metadata}).
			Msg(event.Message)
	}
}

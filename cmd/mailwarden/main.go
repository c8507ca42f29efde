// Package main is the entry point for the mailwarden gateway daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mailwarden/mailwarden/internal/config"
	"github.com/mailwarden/mailwarden/internal/hold"
	"github.com/mailwarden/mailwarden/internal/pipeline"
	"github.com/mailwarden/mailwarden/internal/provider"
	"github.com/mailwarden/mailwarden/internal/provider/maildir"
	"github.com/mailwarden/mailwarden/internal/security"
	"github.com/mailwarden/mailwarden/internal/smtp"
	"github.com/mailwarden/mailwarden/internal/spam"
	gwtls "github.com/mailwarden/mailwarden/internal/tls"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	// Load or generate TLS certificates
	tlsConfig, err := gwtls.LoadOrGenerate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.SMTP.Hostname)
	if err != nil {
		slog.Error("failed to setup TLS", "error", err)
		os.Exit(1)
	}

	tlsMode := "self-signed"
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		tlsMode = "file"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbound delivery provider
	deliver, err := provider.FromConfig(ctx, cfg)
	if err != nil {
		slog.Error("failed to create delivery provider", "error", err)
		os.Exit(1)
	}

	// Hold store for blocked outbound messages
	store, err := hold.Open(cfg.Security.HoldPath)
	if err != nil {
		slog.Error("failed to open hold store", "path", cfg.Security.HoldPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Outbound pipeline: scan, then hold or deliver
	scanner := security.NewScanner(security.DefaultCatalog(), scanPolicy(cfg))
	outbound := pipeline.NewOutbound(scanner, store, deliver)

	submission := smtp.New(smtp.ServerConfig{
		ListenAddr:   cfg.SMTP.Listen,
		Hostname:     cfg.SMTP.Hostname,
		Handler:      outbound,
		TLSConfig:    tlsConfig,
		AuthUsername: cfg.SMTP.Username,
		AuthPassword: cfg.SMTP.Password,
	})

	slog.Info("starting mailwarden",
		"listen", cfg.SMTP.Listen,
		"provider", deliver.Name(),
		"auth_enabled", cfg.AuthEnabled(),
		"tls_mode", tlsMode,
		"hold_path", cfg.Security.HoldPath,
	)

	// Setup graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	// Optional inbound listener: sanitize, annotate, deliver to the agent
	// mailbox.
	if cfg.Inbound.Listen != "" {
		mbox, err := maildir.New(cfg.Inbound.Maildir)
		if err != nil {
			slog.Error("failed to create agent mailbox", "dir", cfg.Inbound.Maildir, "error", err)
			os.Exit(1)
		}
		inbound := pipeline.NewInbound(spam.NewScorer(), mbox)

		inboundServer := smtp.New(smtp.ServerConfig{
			ListenAddr: cfg.Inbound.Listen,
			Hostname:   cfg.SMTP.Hostname,
			Handler:    inbound,
			TLSConfig:  tlsConfig,
		})

		slog.Info("starting inbound listener",
			"listen", cfg.Inbound.Listen,
			"maildir", cfg.Inbound.Maildir,
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := inboundServer.ListenAndServe(ctx); err != nil {
				slog.Error("inbound server error", "error", err)
				cancel()
			}
		}()
	}

	// Start the submission server (blocks until context is cancelled)
	if err := submission.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	wg.Wait()
	slog.Info("mailwarden stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// scanPolicy builds the outbound scan policy from configuration,
// falling back to built-in defaults for unset fields.
func scanPolicy(cfg *config.Config) security.ScanPolicy {
	policy := security.DefaultScanPolicy()
	if cfg.Security.LocalDomain != "" {
		policy.LocalDomain = cfg.Security.LocalDomain
	}
	if len(cfg.Security.ScannableTypes) > 0 {
		policy.ScannableTypes = cfg.Security.ScannableTypes
	}
	if len(cfg.Security.ScannableExtensions) > 0 {
		policy.ScannableExtensions = cfg.Security.ScannableExtensions
	}
	return policy
}

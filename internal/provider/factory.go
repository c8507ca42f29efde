package provider

import (
	"context"
	"fmt"

	"github.com/mailwarden/mailwarden/internal/config"
	"github.com/mailwarden/mailwarden/internal/provider/relay"
	"github.com/mailwarden/mailwarden/internal/provider/ses"
	"github.com/mailwarden/mailwarden/internal/provider/stdout"
)

// FromConfig builds the outbound delivery provider named by cfg.Provider.
// An empty provider name falls back to auto-detection: SES if configured,
// then relay, then stdout.
func FromConfig(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case "ses":
		if !cfg.SESConfigured() {
			return nil, fmt.Errorf("ses provider requires SES_REGION and SES_SENDER")
		}
		return ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})

	case "relay":
		if !cfg.RelayConfigured() {
			return nil, fmt.Errorf("relay provider requires RELAY_ADDR")
		}
		return relay.New(relay.Config{
			Addr:     cfg.Relay.Addr,
			Username: cfg.Relay.Username,
			Password: cfg.Relay.Password,
			Sender:   cfg.Relay.Sender,
		})

	case "stdout":
		return stdout.New(), nil

	case "":
		// Auto-detection fallback
		if cfg.SESConfigured() {
			return ses.New(ctx, ses.Config{
				Region:          cfg.SES.Region,
				AccessKeyID:     cfg.SES.AccessKeyID,
				SecretAccessKey: cfg.SES.SecretAccessKey,
				Sender:          cfg.SES.Sender,
			})
		}
		if cfg.RelayConfigured() {
			return relay.New(relay.Config{
				Addr:     cfg.Relay.Addr,
				Username: cfg.Relay.Username,
				Password: cfg.Relay.Password,
				Sender:   cfg.Relay.Sender,
			})
		}
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Package main implements mailwardenctl, the admin CLI for reviewing
// outbound messages held by the gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailwarden/mailwarden/internal/config"
	"github.com/mailwarden/mailwarden/internal/hold"
	"github.com/mailwarden/mailwarden/internal/parser"
	"github.com/mailwarden/mailwarden/internal/provider"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "mailwardenctl",
		Short:         "Review and release messages held by mailwarden",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")

	held := &cobra.Command{
		Use:   "held",
		Short: "Manage the held-message queue",
	}
	held.AddCommand(heldListCmd(), heldShowCmd(), heldApproveCmd(), heldRejectCmd())
	root.AddCommand(held)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func heldListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List held messages, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no held messages")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRECEIVED\tFROM\tTO\tSUBJECT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.ID,
					e.ReceivedAt.Format(time.RFC3339),
					e.From,
					strings.Join(e.To, ","),
					e.Subject,
				)
			}
			return w.Flush()
		},
	}
}

func heldShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the scan summary and raw content of a held message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:       %s\n", entry.ID)
			fmt.Printf("Received: %s\n", entry.ReceivedAt.Format(time.RFC3339))
			fmt.Printf("From:     %s\n", entry.From)
			fmt.Printf("To:       %s\n", strings.Join(entry.To, ", "))
			fmt.Printf("Subject:  %s\n", entry.Subject)
			fmt.Printf("Summary:  %s\n", entry.Summary)
			fmt.Println()
			os.Stdout.Write(entry.Raw)
			return nil
		},
	}
}

func heldApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Release a held message: send it and remove it from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := hold.Open(cfg.Security.HoldPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(args[0])
			if err != nil {
				return err
			}

			msg, err := parser.Parse(entry.Raw)
			if err != nil {
				return fmt.Errorf("failed to parse held message: %w", err)
			}
			if msg.From == "" {
				msg.From = entry.From
			}
			if len(msg.To) == 0 {
				msg.To = entry.To
			}

			deliver, err := provider.FromConfig(ctx, cfg)
			if err != nil {
				return err
			}

			if err := deliver.Send(ctx, msg); err != nil {
				return fmt.Errorf("send via %s failed: %w", deliver.Name(), err)
			}

			if err := store.Delete(entry.ID); err != nil {
				return fmt.Errorf("sent but failed to remove from queue: %w", err)
			}

			fmt.Printf("approved %s: sent via %s\n", entry.ID, deliver.Name())
			return nil
		},
	}
}

func heldRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Discard a held message without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(entry.ID); err != nil {
				return err
			}

			fmt.Printf("rejected %s\n", entry.ID)
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func openStore() (*hold.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return hold.Open(cfg.Security.HoldPath)
}

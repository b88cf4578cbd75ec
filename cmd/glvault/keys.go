package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/genlayer/glvault/pkg/client"
)

var (
	serverAddr string
	adminToken string
)

func init() {
	for _, cmd := range []*cobra.Command{registerCmd, listCmd, rotateCmd, removeCmd, auditCmd, healthCmd, applyCmd} {
		cmd.Flags().StringVar(&serverAddr, "server", "http://localhost:8080", "Vault server address")
		cmd.Flags().StringVar(&adminToken, "token", os.Getenv("ADMIN_TOKEN"), "Admin bearer token")
		rootCmd.AddCommand(cmd)
	}

	registerCmd.Flags().Int64("quota", 0, "Quota limit per window (default 1000)")
	registerCmd.Flags().String("owner", "", "Owner identifier (default admin)")
	auditCmd.Flags().Int64("since", 0, "Window start, unix ms (default 24h ago)")
	auditCmd.Flags().Int("limit", 0, "Maximum entries to show (default 100)")
}

func admin() (*client.AdminClient, context.Context, context.CancelFunc, error) {
	if adminToken == "" {
		return nil, nil, nil, fmt.Errorf("admin token required: pass --token or set ADMIN_TOKEN")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	return client.NewAdmin(serverAddr, adminToken), ctx, cancel, nil
}

var registerCmd = &cobra.Command{
	Use:   "register ALIAS API_KEY BASE_URL",
	Short: "Register a new credential",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, cancel, err := admin()
		if err != nil {
			return err
		}
		defer cancel()

		quota, _ := cmd.Flags().GetInt64("quota")
		owner, _ := cmd.Flags().GetString("owner")

		meta, err := a.Register(ctx, client.RegisterRequest{
			Alias:      args[0],
			APIKey:     args[1],
			BaseURL:    args[2],
			QuotaLimit: quota,
			Owner:      owner,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Registered %s\n", meta.Alias)
		fmt.Printf("  Base URL:    %s\n", meta.BaseURL)
		fmt.Printf("  Quota limit: %d per window\n", meta.QuotaLimit)
		fmt.Printf("  Owner:       %s\n", meta.Owner)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, cancel, err := admin()
		if err != nil {
			return err
		}
		defer cancel()

		resp, err := a.List(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%d key(s) registered\n", resp.Count)
		for _, k := range resp.Keys {
			rotated := "-"
			if k.RotatedAt > 0 {
				rotated = time.UnixMilli(k.RotatedAt).Format(time.RFC3339)
			}
			fmt.Printf("  %-24s %-40s quota %d/%d  rotated %s\n",
				k.Alias, k.BaseURL, k.QuotaUsed, k.QuotaLimit, rotated)
		}
		return nil
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate ALIAS NEW_API_KEY",
	Short: "Replace the credential behind an alias",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, cancel, err := admin()
		if err != nil {
			return err
		}
		defer cancel()

		rotatedAt, err := a.Rotate(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Rotated %s at %s\n", args[0], time.UnixMilli(rotatedAt).Format(time.RFC3339))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove ALIAS",
	Short: "Delete a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, cancel, err := admin()
		if err != nil {
			return err
		}
		defer cancel()

		if err := a.Remove(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Removed %s\n", args[0])
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit ALIAS",
	Short: "Show audit statistics and recent relays for an alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, cancel, err := admin()
		if err != nil {
			return err
		}
		defer cancel()

		since, _ := cmd.Flags().GetInt64("since")
		limit, _ := cmd.Flags().GetInt("limit")

		report, err := a.Audit(ctx, args[0], since, limit)
		if err != nil {
			return err
		}

		fmt.Printf("Audit for %s\n", report.Alias)
		fmt.Printf("  Requests:    %d (%d errors)\n", report.Stats.TotalRequests, report.Stats.ErrorCount)
		fmt.Printf("  Avg latency: %d ms\n", report.Stats.AvgLatencyMS)
		if report.Stats.LastAccessed > 0 {
			fmt.Printf("  Last access: %s\n", time.UnixMilli(report.Stats.LastAccessed).Format(time.RFC3339))
		}
		for _, e := range report.Entries {
			errNote := ""
			if e.Error != "" {
				errNote = "  (" + e.Error + ")"
			}
			fmt.Printf("  %s  %-6s %-40s %d  %dms%s\n",
				time.UnixMilli(e.Timestamp).Format(time.RFC3339), e.Method, e.Path, e.Status, e.LatencyMS, errNote)
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show vault health",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, cancel, err := admin()
		if err != nil {
			return err
		}
		defer cancel()

		h, err := a.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Status:  %s\n", h.Status)
		fmt.Printf("Version: %s\n", h.Version)
		fmt.Printf("Uptime:  %s\n", (time.Duration(h.UptimeMS) * time.Millisecond).Round(time.Second))
		fmt.Printf("Storage: %s\n", h.Storage)
		fmt.Printf("Keys:    %d\n", h.KeysRegistered)
		return nil
	},
}

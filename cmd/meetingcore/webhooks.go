package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/config"
	"github.com/codeready-toolchain/meetingcore/pkg/database"
	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/spf13/cobra"
)

// defaultCallRecordsExpirationDays mirrors the original CLI's default
// subscribe expiry for the callRecords resource.
const defaultCallRecordsExpirationDays = 3

// defaultTranscriptExpirationMinutes mirrors the original CLI's default
// subscribe-transcripts expiry.
const defaultTranscriptExpirationMinutes = 60

// transcriptMaxExpirationMinutes is the longest expiry Graph accepts for
// the getAllTranscripts resource.
const transcriptMaxExpirationMinutes = 4230

// callRecordsRenewDuration and transcriptsRenewDuration are the windows
// renew-all extends a subscription by, independent of how close to expiry
// it currently is — matching the original's per-resource renewal targets.
const (
	callRecordsRenewDuration = 180 * 24 * time.Hour
	transcriptsRenewDuration = 60 * time.Minute
)

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Manage Microsoft Graph change-notification subscriptions and the relay listener",
}

func init() {
	webhooksListenCmd.Flags().Bool("backfill", true, "Run a backfill sweep before starting the listener")
	webhooksSubscribeCmd.Flags().Int("expiration-days", defaultCallRecordsExpirationDays, "Subscription lifetime in days")
	webhooksSubscribeTranscriptsCmd.Flags().Int("expiration-minutes", defaultTranscriptExpirationMinutes, "Subscription lifetime in minutes (max 4230)")
	webhooksSubscribeTranscriptsCmd.Flags().String("lifecycle-url", "", "Lifecycle notification URL, required past 60 minutes expiry")
	webhooksRenewAllCmd.Flags().Float64("min-hours-remaining", 24, "Renew subscriptions with fewer than this many hours remaining")

	webhooksCmd.AddCommand(webhooksListenCmd)
	webhooksCmd.AddCommand(webhooksSubscribeCmd)
	webhooksCmd.AddCommand(webhooksSubscribeTranscriptsCmd)
	webhooksCmd.AddCommand(webhooksRenewAllCmd)
	webhooksCmd.AddCommand(webhooksListCmd)
	webhooksCmd.AddCommand(webhooksDeleteCmd)
	webhooksCmd.AddCommand(webhooksTestCmd)
}

var webhooksListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Backfill recent meetings, then start the relay listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.close()

		if !a.cfg.Relay.Enabled {
			return fmt.Errorf("relay is not enabled in %s; listen requires relay.enabled: true", configPath)
		}

		if shouldBackfill, _ := cmd.Flags().GetBool("backfill"); shouldBackfill {
			fmt.Println("Running backfill sweep before starting the listener...")
			run, err := a.backfillSvc.Run(ctx, 24)
			if err != nil {
				fmt.Fprintln(os.Stderr, "backfill sweep failed:", err)
			} else {
				fmt.Printf("Backfill complete: %+v\n", run)
			}
		}

		listener := a.relayListener()
		listener.Start(ctx)
		fmt.Println("Listening for notifications via the relay. Press Ctrl+C to stop.")

		<-ctx.Done()
		fmt.Println("\nShutting down listener...")
		listener.Stop()
		return nil
	},
}

var webhooksSubscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Create a callRecords change-notification subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.close()

		days, _ := cmd.Flags().GetInt("expiration-days")
		expiry := time.Now().Add(time.Duration(days) * 24 * time.Hour)

		clientState, _ := config.Secret(a.cfg.Subscription.ClientStateEnv)
		sub, err := a.graph.CreateSubscription(ctx, graph.CallRecordsResource, a.cfg.Subscription.WebhookURL, clientState, expiry)
		if err != nil {
			return fmt.Errorf("creating callRecords subscription: %w", err)
		}

		fmt.Printf("Created subscription %s, expires %s\n", sub.ID, sub.ExpirationDateTime.Format(time.RFC3339))
		return nil
	},
}

var webhooksSubscribeTranscriptsCmd = &cobra.Command{
	Use:   "subscribe-transcripts",
	Short: "Create a getAllTranscripts change-notification subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.close()

		minutes, _ := cmd.Flags().GetInt("expiration-minutes")
		if minutes > transcriptMaxExpirationMinutes {
			return fmt.Errorf("expiration-minutes %d exceeds the maximum of %d", minutes, transcriptMaxExpirationMinutes)
		}
		lifecycleURL, _ := cmd.Flags().GetString("lifecycle-url")
		expiry := time.Now().Add(time.Duration(minutes) * time.Minute)

		clientState, _ := config.Secret(a.cfg.Subscription.ClientStateEnv)
		sub, err := a.graph.CreateTranscriptSubscription(ctx, a.cfg.Subscription.WebhookURL, lifecycleURL, clientState, expiry)
		if err != nil {
			return fmt.Errorf("creating transcript subscription: %w", err)
		}

		fmt.Printf("Created subscription %s, expires %s\n", sub.ID, sub.ExpirationDateTime.Format(time.RFC3339))
		return nil
	},
}

var webhooksRenewAllCmd = &cobra.Command{
	Use:   "renew-all",
	Short: "Renew every subscription expiring within the given threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.close()

		minHours, _ := cmd.Flags().GetFloat64("min-hours-remaining")

		subs, err := a.graph.ListSubscriptions(ctx)
		if err != nil {
			return fmt.Errorf("listing subscriptions: %w", err)
		}

		var renewed, skipped int
		for _, sub := range subs {
			hoursRemaining := time.Until(sub.ExpirationDateTime).Hours()
			if hoursRemaining >= minHours {
				skipped++
				continue
			}

			newExpiry := time.Now().Add(transcriptsRenewDuration)
			if sub.Resource == graph.CallRecordsResource {
				newExpiry = time.Now().Add(callRecordsRenewDuration)
			}

			if _, err := a.graph.RenewSubscription(ctx, sub.ID, newExpiry); err != nil {
				fmt.Fprintf(os.Stderr, "failed to renew %s (%s): %v\n", sub.ID, sub.Resource, err)
				continue
			}
			renewed++
			fmt.Printf("Renewed %s (%s) to %s\n", sub.ID, sub.Resource, newExpiry.Format(time.RFC3339))
		}

		fmt.Printf("Renewed %d, skipped %d (of %d total)\n", renewed, skipped, len(subs))
		return nil
	},
}

var webhooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.close()

		subs, err := a.graph.ListSubscriptions(ctx)
		if err != nil {
			return fmt.Errorf("listing subscriptions: %w", err)
		}
		if len(subs) == 0 {
			fmt.Println("No active subscriptions.")
			return nil
		}
		for _, sub := range subs {
			fmt.Printf("%s  resource=%s  changeType=%s  notificationUrl=%s  expires=%s\n",
				sub.ID, sub.Resource, sub.ChangeType, sub.NotificationURL, sub.ExpirationDateTime.Format(time.RFC3339))
		}
		return nil
	},
}

var webhooksDeleteCmd = &cobra.Command{
	Use:   "delete <subscription-id>",
	Short: "Delete a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, configPath)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.graph.DeleteSubscription(ctx, args[0]); err != nil {
			return fmt.Errorf("deleting subscription %s: %w", args[0], err)
		}
		fmt.Printf("Deleted subscription %s\n", args[0])
		return nil
	},
}

var webhooksTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check relay configuration, database connectivity, and Graph API connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		a, err := newApp(ctx, configPath)
		if err != nil {
			return fmt.Errorf("loading configuration/database: %w", err)
		}
		defer a.close()

		ok := true

		if a.cfg.Relay.Enabled {
			fmt.Println("[ok]   relay: enabled, namespace", a.cfg.Relay.Namespace)
		} else {
			fmt.Println("[info] relay: disabled (expecting a direct public webhook endpoint instead)")
		}

		if health, err := database.Health(ctx, a.db.Pool); err != nil {
			fmt.Println("[fail] database:", err)
			ok = false
		} else {
			fmt.Println("[ok]   database: connected,", health.Status)
		}

		if _, err := a.graph.ListSubscriptions(ctx); err != nil {
			fmt.Println("[fail] graph API:", err)
			ok = false
		} else {
			fmt.Println("[ok]   graph API: connected")
		}

		if !ok {
			return fmt.Errorf("one or more checks failed; see output above")
		}
		fmt.Println("All checks passed.")
		return nil
	},
}

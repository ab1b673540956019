package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/releva-ai/releva-go/pkg/engagement"
	"github.com/releva-ai/releva-go/pkg/log"
	"github.com/spf13/cobra"
)

var engagementCmd = &cobra.Command{
	Use:   "engagement",
	Short: "Manage push engagement callbacks",
	Long: `Manage push engagement callbacks.

Callback URLs are persisted until delivered. Delivery failures are
retried on every flush and never reported as errors.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(cmd, args); err != nil {
			return err
		}
		return relevaClient.EnablePushEngagementTracking()
	},
}

var engagementEnqueueCmd = &cobra.Command{
	Use:   "enqueue CALLBACK_URL",
	Short: "Queue a notification click callback and try to deliver it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := map[string]string{
			engagement.ClickActionKey: engagement.ClickAction,
			engagement.CallbackURLKey: args[0],
		}
		if _, err := relevaClient.TrackEngagement(cmd.Context(), data); err != nil {
			return fmt.Errorf("failed to queue callback: %w", err)
		}
		fmt.Printf("✓ Callback queued (%d pending)\n", relevaClient.PendingEngagementCount())
		return nil
	},
}

var engagementFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Deliver pending callbacks now",
	RunE: func(cmd *cobra.Command, args []string) error {
		before := relevaClient.PendingEngagementCount()
		if err := relevaClient.FlushPendingEngagementEvents(cmd.Context()); err != nil {
			return err
		}
		after := relevaClient.PendingEngagementCount()
		fmt.Printf("✓ Flushed: %d delivered, %d pending\n", before-after, after)
		return nil
	},
}

var engagementPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending callbacks",
	RunE: func(cmd *cobra.Command, args []string) error {
		pending := relevaClient.PendingEngagementEvents()
		if len(pending) == 0 {
			fmt.Println("No pending callbacks")
			return nil
		}
		for _, url := range pending {
			fmt.Println(url)
		}
		return nil
	},
}

var engagementRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep delivering pending callbacks until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Delivering callbacks (%d pending). Press Ctrl+C to stop.\n", relevaClient.PendingEngagementCount())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		log.Debug("received " + sig.String())

		fmt.Printf("\n✓ Stopped with %d pending\n", relevaClient.PendingEngagementCount())
		return nil
	},
}

func init() {
	engagementCmd.AddCommand(engagementEnqueueCmd)
	engagementCmd.AddCommand(engagementFlushCmd)
	engagementCmd.AddCommand(engagementPendingCmd)
	engagementCmd.AddCommand(engagementRunCmd)
}

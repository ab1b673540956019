package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect the session and tracked state",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current session and what the next push would report",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := relevaClient.Session()
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		state := relevaClient.State()

		fmt.Println("Session:")
		fmt.Printf("  ID: %s\n", s.ID)
		fmt.Printf("  Created: %s\n", s.CreatedAt.Format(time.RFC3339))
		fmt.Println()
		fmt.Println("Identity:")
		fmt.Printf("  Profile: %s (changed: %t)\n", valueOrNone(state.ProfileID, state.HasProfile), state.ProfileChanged)
		fmt.Printf("  Device: %s (changed: %t)\n", valueOrNone(state.DeviceID, state.HasDevice), state.DeviceChanged)
		fmt.Printf("  Pending merges: %v\n", state.MergeProfileIDs)
		fmt.Println()
		fmt.Println("Commerce:")
		fmt.Printf("  Cart: %s (changed: %t)\n", valueOrNone(state.Cart, state.HasCart), state.CartChanged)
		fmt.Printf("  Wishlist: %d products (changed: %t)\n", len(state.Wishlist), state.WishlistChanged)
		return nil
	},
}

func valueOrNone(v string, ok bool) string {
	if !ok {
		return "<none>"
	}
	return v
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
}

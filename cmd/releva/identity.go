package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage the tracked profile and device ids",
}

var identitySetProfileCmd = &cobra.Command{
	Use:   "set-profile PROFILE_ID",
	Short: "Set the active profile id",
	Long: `Set the active profile id.

Replacing an existing profile id queues the previous one for merging,
which is reported with the next tracking push.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := relevaClient.SetProfileID(args[0]); err != nil {
			return fmt.Errorf("failed to set profile id: %w", err)
		}
		state := relevaClient.State()
		fmt.Printf("✓ Profile id set to %s\n", args[0])
		if len(state.MergeProfileIDs) > 0 {
			fmt.Printf("  Pending merges: %v\n", state.MergeProfileIDs)
		}
		return nil
	},
}

var identitySetDeviceCmd = &cobra.Command{
	Use:   "set-device DEVICE_ID",
	Short: "Set the device id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := relevaClient.SetDeviceID(args[0]); err != nil {
			return fmt.Errorf("failed to set device id: %w", err)
		}
		fmt.Printf("✓ Device id set to %s\n", args[0])
		return nil
	},
}

func init() {
	identityCmd.AddCommand(identitySetProfileCmd)
	identityCmd.AddCommand(identitySetDeviceCmd)
}

package main

import (
	"fmt"

	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Manage push notification registration",
}

var pushRegisterCmd = &cobra.Command{
	Use:   "register TOKEN",
	Short: "Register a device push token for the current profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceType, err := types.ParseDeviceType(flagString(cmd, "type"))
		if err != nil {
			return err
		}

		if err := relevaClient.RegisterPushToken(cmd.Context(), deviceType, args[0]); err != nil {
			return fmt.Errorf("failed to register push token: %w", err)
		}
		fmt.Printf("✓ Push token registered (%s)\n", deviceType)
		return nil
	},
}

var pushBannerClickCmd = &cobra.Command{
	Use:   "banner-click BANNER_TOKEN",
	Short: "Report a click on a banner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		banner := types.BannerResponse{Token: args[0]}
		if err := relevaClient.BannerClicked(cmd.Context(), banner, flagString(cmd, "action")); err != nil {
			return fmt.Errorf("failed to report banner click: %w", err)
		}
		fmt.Println("✓ Banner click reported")
		return nil
	},
}

func init() {
	pushRegisterCmd.Flags().String("type", string(types.DeviceTypeAndroid), "Device type: android, ios, huawei or other")
	pushBannerClickCmd.Flags().String("action", "", "Optional click action")

	pushCmd.AddCommand(pushRegisterCmd)
	pushCmd.AddCommand(pushBannerClickCmd)
}

package main

import (
	"fmt"

	"github.com/releva-ai/releva-go/pkg/client"
	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Send tracking pushes",
	Long: `Send tracking pushes.

Every push carries the tracked identity, cart and wishlist together with
their changed flags. The backend response (recommenders and banners) is
printed as JSON.`,
}

var trackScreenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Track a screen view",
	RunE: func(cmd *cobra.Command, args []string) error {
		view := client.ScreenView{
			PageURL:     flagString(cmd, "url"),
			ScreenToken: flagString(cmd, "token"),
			ProductIDs:  flagStrings(cmd, "ids"),
			Categories:  flagStrings(cmd, "categories"),
			Locale:      flagString(cmd, "locale"),
			Currency:    flagString(cmd, "currency"),
		}

		actions := flagStrings(cmd, "event")
		if len(actions) == 0 {
			resp, err := relevaClient.TrackScreenView(cmd.Context(), view)
			if err != nil {
				return fmt.Errorf("failed to track screen view: %w", err)
			}
			return printJSON(resp)
		}

		customEvents := make([]types.CustomEvent, 0, len(actions))
		for _, action := range actions {
			customEvents = append(customEvents, types.CustomEvent{Action: action})
		}
		resp, err := relevaClient.TrackScreenViewWithEvents(cmd.Context(), view, customEvents)
		if err != nil {
			return fmt.Errorf("failed to track screen view: %w", err)
		}
		return printJSON(resp)
	},
}

var trackProductCmd = &cobra.Command{
	Use:   "product PRODUCT_ID",
	Short: "Track a product view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := relevaClient.TrackProductView(cmd.Context(), client.ProductView{
			PageURL:     flagString(cmd, "url"),
			ProductID:   args[0],
			ScreenToken: flagString(cmd, "token"),
			Categories:  flagStrings(cmd, "categories"),
			Locale:      flagString(cmd, "locale"),
			Currency:    flagString(cmd, "currency"),
		})
		if err != nil {
			return fmt.Errorf("failed to track product view: %w", err)
		}
		return printJSON(resp)
	},
}

var trackSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Track a search results view",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view := client.SearchView{
			PageURL:          flagString(cmd, "url"),
			ScreenToken:      flagString(cmd, "token"),
			ResultProductIDs: flagStrings(cmd, "ids"),
			Locale:           flagString(cmd, "locale"),
			Currency:         flagString(cmd, "currency"),
		}
		if len(args) == 1 {
			view.Query = args[0]
		}

		resp, err := relevaClient.TrackSearchView(cmd.Context(), view)
		if err != nil {
			return fmt.Errorf("failed to track search view: %w", err)
		}
		return printJSON(resp)
	},
}

var trackCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Track a completed order",
	Long: `Track a completed order.

The cart file uses the same layout as 'releva cart set'. The cart is
reported as paid; --order-id overrides the order id from the file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cart, err := readCart(flagString(cmd, "file"))
		if err != nil {
			return err
		}
		cart.Paid = true
		if orderID := flagString(cmd, "order-id"); orderID != "" {
			cart.OrderID = orderID
		}

		resp, err := relevaClient.TrackCheckoutSuccess(cmd.Context(), client.Checkout{
			PageURL:     flagString(cmd, "url"),
			OrderedCart: cart,
			ScreenToken: flagString(cmd, "token"),
			Locale:      flagString(cmd, "locale"),
			Currency:    flagString(cmd, "currency"),
		})
		if err != nil {
			return fmt.Errorf("failed to track checkout: %w", err)
		}
		return printJSON(resp)
	},
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func flagStrings(cmd *cobra.Command, name string) []string {
	v, _ := cmd.Flags().GetStringSlice(name)
	return v
}

func init() {
	for _, c := range []*cobra.Command{trackScreenCmd, trackProductCmd, trackSearchCmd, trackCheckoutCmd} {
		c.Flags().String("url", "", "Page URL")
		c.Flags().String("token", "", "Screen token")
		c.Flags().String("locale", "", "Page locale")
		c.Flags().String("currency", "", "Page currency")
		trackCmd.AddCommand(c)
	}

	trackScreenCmd.Flags().StringSlice("ids", nil, "Product ids shown on the screen")
	trackScreenCmd.Flags().StringSlice("categories", nil, "Categories of the screen")
	trackScreenCmd.Flags().StringSlice("event", nil, "Custom event action to attach (repeatable)")

	trackProductCmd.Flags().StringSlice("categories", nil, "Categories of the product")

	trackSearchCmd.Flags().StringSlice("ids", nil, "Result product ids")

	trackCheckoutCmd.Flags().StringP("file", "f", "", "YAML file of the ordered cart (required)")
	trackCheckoutCmd.Flags().String("order-id", "", "Order id")
	_ = trackCheckoutCmd.MarkFlagRequired("file")
}

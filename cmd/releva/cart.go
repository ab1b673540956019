package main

import (
	"fmt"
	"os"

	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the tracked cart",
}

var cartSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the cart from a YAML file",
	Long: `Set the cart from a YAML file.

Example file:
  products:
    - id: sku-1
      price: 19.99
      quantity: 2
  orderId: ""
  cartPaid: false

A cart that differs from the stored one is pushed immediately unless it
is the first cart of this client and the initial sync policy suppresses it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")

		cart, err := readCart(filename)
		if err != nil {
			return err
		}

		if err := relevaClient.SetCart(cmd.Context(), cart); err != nil {
			return fmt.Errorf("failed to set cart: %w", err)
		}
		fmt.Printf("✓ Cart set (%d products)\n", len(cart.Products))
		return nil
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset the cart to an empty active cart without pushing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := relevaClient.ClearCartStorage(); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		fmt.Println("✓ Cart cleared")
		return nil
	},
}

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Manage the tracked wishlist",
}

// wishlistFile is the YAML layout of a wishlist file
type wishlistFile struct {
	Products []types.WishlistProduct `yaml:"products"`
}

var wishlistSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the wishlist from a YAML file",
	Long: `Set the wishlist from a YAML file.

Example file:
  products:
    - id: sku-1
    - id: sku-2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		var wishlist wishlistFile
		if err := yaml.Unmarshal(data, &wishlist); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}

		if err := relevaClient.SetWishlist(cmd.Context(), wishlist.Products); err != nil {
			return fmt.Errorf("failed to set wishlist: %w", err)
		}
		fmt.Printf("✓ Wishlist set (%d products)\n", len(wishlist.Products))
		return nil
	},
}

func readCart(filename string) (types.Cart, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return types.Cart{}, fmt.Errorf("failed to read file: %w", err)
	}
	var cart types.Cart
	if err := yaml.Unmarshal(data, &cart); err != nil {
		return types.Cart{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cart, nil
}

func init() {
	cartSetCmd.Flags().StringP("file", "f", "", "YAML cart file (required)")
	_ = cartSetCmd.MarkFlagRequired("file")
	wishlistSetCmd.Flags().StringP("file", "f", "", "YAML wishlist file (required)")
	_ = wishlistSetCmd.MarkFlagRequired("file")

	cartCmd.AddCommand(cartSetCmd)
	cartCmd.AddCommand(cartClearCmd)
	wishlistCmd.AddCommand(wishlistSetCmd)
}

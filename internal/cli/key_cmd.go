package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/api/middleware"
	"github.com/spf13/cobra"
)

var keyResetYes bool

// keyCmd represents the key command group
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the API key",
}

// keyShowCmd shows the current API key
var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := apiKeys(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), keys.GetCurrentKey())
		return nil
	},
}

// keyResetCmd resets the API key
var keyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Generate a new API key; the old one stops working",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := apiKeys(cfg)
		if err != nil {
			return err
		}
		if keys.IsPinned() {
			return fmt.Errorf("%w, change api_key instead", middleware.ErrKeyPinned)
		}

		out := cmd.OutOrStdout()
		if !keyResetYes {
			fmt.Fprintln(out, "Clients using the current key will be rejected after the reset.")
			fmt.Fprint(out, "Reset the API key? (yes/no): ")

			input, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && input == "" {
				return fmt.Errorf("read confirmation: %w", err)
			}
			input = strings.TrimSpace(strings.ToLower(input))
			if input != "yes" && input != "y" {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}

		newKey, err := keys.ResetKey()
		if err != nil {
			if errors.Is(err, middleware.ErrKeyPinned) {
				return err
			}
			return fmt.Errorf("reset key: %w", err)
		}
		fmt.Fprintln(out, newKey)
		return nil
	},
}

func init() {
	keyResetCmd.Flags().BoolVarP(&keyResetYes, "yes", "y", false, "skip the confirmation prompt")
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyResetCmd)
}

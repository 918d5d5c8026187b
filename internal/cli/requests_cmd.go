package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Manage outstanding RFP requests",
}

var (
	addID     string
	addRFP    string
	addVendor string
	addEmail  string
	listRFP   string
)

var requestsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a vendor against an RFP and print its tracking token",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		rv := &models.RFPVendor{ID: addID, RFPID: addRFP, VendorID: addVendor, VendorEmail: addEmail}
		if err := app.store.CreateRFPVendor(cmd.Context(), rv); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		app.logs.LogInfo(models.LogModuleCLI, "request_add", "Request registered", map[string]interface{}{
			"request_id": rv.ID,
			"rfp_id":     rv.RFPID,
		})

		fmt.Fprintln(cmd.OutOrStdout(), rv.ID)
		return nil
	},
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requests and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		requests, err := app.store.ListRFPVendors(cmd.Context(), listRFP)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRFP\tVENDOR\tEMAIL\tSTATUS")
		for _, rv := range requests {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rv.ID, rv.RFPID, rv.VendorID, rv.VendorEmail, rv.Status)
		}
		return w.Flush()
	},
}

func init() {
	requestsAddCmd.Flags().StringVar(&addID, "id", "", "tracking token, generated when empty")
	requestsAddCmd.Flags().StringVar(&addRFP, "rfp", "", "RFP id")
	requestsAddCmd.Flags().StringVar(&addVendor, "vendor", "", "vendor id")
	requestsAddCmd.Flags().StringVar(&addEmail, "email", "", "vendor email address")
	requestsAddCmd.MarkFlagRequired("rfp")
	requestsAddCmd.MarkFlagRequired("vendor")

	requestsListCmd.Flags().StringVar(&listRFP, "rfp", "", "only requests of this RFP")

	requestsCmd.AddCommand(requestsAddCmd)
	requestsCmd.AddCommand(requestsListCmd)
}

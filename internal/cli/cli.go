package cli

import (
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg *config.Config
	v   *viper.Viper
)

// rootCmd represents the base command. Without a subcommand it serves the API.
var rootCmd = &cobra.Command{
	Use:   "rfpd",
	Short: "RFP reply ingestion service",
	Long: `rfpd polls the RFP mailbox, matches vendor replies to outstanding requests
by their Ref-ID marker and stores the extracted proposals.

Examples:
  rfpd                       # serve the HTTP API and run the sync scheduler
  rfpd sync                  # run one ingestion cycle and print the summary
  rfpd extract quote.pdf     # extract a proposal from a local file
  rfpd requests add --rfp rfp-1 --vendor acme --email sales@acme.example
  rfpd mailbox check         # list what the next cycle would see
  rfpd key show              # show the API key`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the CLI with the loaded config. viper is kept for config watching.
func Execute(config *config.Config, vp *viper.Viper) error {
	cfg = config
	v = vp
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(mailboxCmd)
	rootCmd.AddCommand(keyCmd)
}

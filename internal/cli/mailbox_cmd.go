package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/local"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailbox"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailer"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/spf13/cobra"
)

var (
	checkWindow time.Duration
	checkSMTP   bool
)

var mailboxCmd = &cobra.Command{
	Use:   "mailbox",
	Short: "Inspect the configured mailbox",
}

// mailboxCheckCmd fetches without storing anything, to verify credentials and correlation
var mailboxCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "List recent messages and the request each one would match",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if checkSMTP {
			if err := mailer.NewSMTPSender(cfg.SMTP).Verify(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "smtp %s:%d ok\n", cfg.SMTP.Host, cfg.SMTP.Port)
		}

		gateway, err := mailbox.New(ctx, cfg.Mailbox)
		if err != nil {
			return err
		}

		window := cfg.Sync.Window
		if checkWindow > 0 {
			window = checkWindow
		}
		msgs, err := gateway.Fetch(ctx, window, true)
		if err != nil {
			return err
		}

		app, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tFROM\tSUBJECT\tREF-ID\tSTATE")
		for _, msg := range msgs {
			token, state := correlate(cmd, app.store, msg)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				msg.Date.Format(time.DateTime), msg.From, local.Excerpt(msg.Subject, 40), token, state)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d message(s) in the last %s\n", len(msgs), window)
		return nil
	},
}

// correlate reports what a cycle would do with msg
func correlate(cmd *cobra.Command, store services.Store, msg mailbox.RawMessage) (string, string) {
	ctx := cmd.Context()
	if _, err := store.FindEmailLogByMailboxID(ctx, msg.MailboxMessageID); err == nil {
		return "-", "already stored"
	}

	token, ok := local.ExtractTrackingID(local.NormalizeBody(msg.Body))
	if !ok {
		return "-", "no marker"
	}
	rv, err := store.FindRFPVendor(ctx, token)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return token, "unknown request"
	case err != nil:
		return token, "lookup failed: " + err.Error()
	}
	return token, "would store (" + string(rv.Status) + ")"
}

func init() {
	mailboxCheckCmd.Flags().DurationVar(&checkWindow, "window", 0, "look-back window, overrides sync.window")
	mailboxCheckCmd.Flags().BoolVar(&checkSMTP, "smtp", false, "also verify the outbound relay login")
	mailboxCmd.AddCommand(mailboxCheckCmd)
}

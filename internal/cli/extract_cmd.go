package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var extractShowText bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract a proposal from a local file and print it as JSON",
	Long: `Runs the same extraction used for attachments: OCR for images and PDFs,
then the language model when configured, with the local parser as fallback.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, err := buildProcessor(cfg)
		if err != nil {
			return err
		}

		res, err := processor.ExtractFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := map[string]any{
			"extracted_by":   res.ExtractedBy,
			"extracted_data": res.Fields,
		}
		if extractShowText {
			out["text"] = res.Text
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractShowText, "text", false, "include the cleaned source text")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/api"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a contact",
	Long: `Print a stored contact as vCard text, or as JSON with --json.

Example:
  rolodex get 2S9zT2hcCPtWYvq1tSnSa8cpkUv`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid contact ID %q: %w", args[0], err)
		}

		card, err := store.Read(id)
		if err != nil {
			return err
		}

		if asJSON {
			return writeJSON(cmd.OutOrStdout(), api.NewContactResponse(id, card))
		}

		_, err = io.WriteString(cmd.OutOrStdout(), card.String()+"\r\n")
		return err
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().Bool("json", false, "Print the contact as JSON")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

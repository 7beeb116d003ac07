package cmd

import (
	"github.com/spf13/cobra"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <field> [prefix]",
	Short: "Find contacts by an indexed attribute",
	Long: `Find contacts whose indexed attribute starts with prefix, ignoring case.
The default indexes are FN, EMAIL, TEL and ORG.

Examples:
  rolodex search FN jan
  rolodex search email jane@`,
	Args:        cobra.RangeArgs(1, 2),
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		prefix := ""
		if len(args) == 2 {
			prefix = args[1]
		}

		contacts, err := store.Search(args[0], prefix)
		if err != nil {
			return err
		}
		return printContacts(cmd, contacts, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Bool("json", false, "Print contacts as JSON")
}

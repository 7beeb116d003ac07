package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/api"
	"github.com/ssargent/rolodex/pkg/storage"
	"github.com/ssargent/rolodex/pkg/vcard"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List stored contacts",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		contacts, err := store.List()
		if err != nil {
			return err
		}
		return printContacts(cmd, contacts, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("json", false, "Print contacts as JSON")
}

// printContacts prints one "<id>\t<formatted name>" line per contact, or a
// JSON array
func printContacts(cmd *cobra.Command, contacts []storage.Contact, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), api.NewContactsResponse(contacts))
	}
	for _, c := range contacts {
		cmd.Printf("%s\t%s\n", c.ID, displayName(c.Card))
	}
	return nil
}

func displayName(card *vcard.Card) string {
	for _, name := range []string{"FN", "N", "EMAIL"} {
		if a := card.Attribute(name); a != nil {
			for _, v := range a.Values() {
				if v != "" {
					return v
				}
			}
		}
	}
	return "(unnamed)"
}

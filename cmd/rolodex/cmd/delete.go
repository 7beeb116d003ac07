package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a contact",
	Long: `Delete a contact from the address book.

Example:
  rolodex delete 2S9zT2hcCPtWYvq1tSnSa8cpkUv`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid contact ID %q: %w", args[0], err)
		}

		if err := store.Delete(id); err != nil {
			return err
		}

		cmd.Printf("Deleted contact %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

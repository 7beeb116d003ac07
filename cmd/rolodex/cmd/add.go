package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/vcard"
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add [file|-]",
	Short: "Add contacts from vCard text",
	Long: `Store every vCard in a file (or stdin) as a new contact and print the
ID of each.

Examples:
  rolodex add jane.vcf
  rolodex add - < export.vcf`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		cards, warnings := decoderFrom(cmd).DecodeAll(text)
		printWarnings(cmd, warnings)

		nonEmpty := make([]*vcard.Card, 0, len(cards))
		for _, card := range cards {
			if card.Len() > 0 {
				nonEmpty = append(nonEmpty, card)
			}
		}
		if len(nonEmpty) == 0 {
			return errors.New("no vCard found in input")
		}

		ids, err := store.CreateAll(nonEmpty)
		if err != nil {
			return fmt.Errorf("failed to add contacts: %w", err)
		}
		for _, id := range ids {
			cmd.Printf("Added contact %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}

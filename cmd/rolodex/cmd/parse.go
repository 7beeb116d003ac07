package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/api"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Decode vCards and print their structure",
	Long: `Decode every vCard in a file (or stdin) and print the attribute,
parameter and value tree of each. Decoding warnings are written to stderr.
Nothing is stored.

Examples:
  rolodex parse contacts.vcf
  cat contacts.vcf | rolodex parse --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		cards, warnings := decoderFrom(cmd).DecodeAll(text)
		log.Debugf("decoded %d cards with %d warnings", len(cards), len(warnings))

		if asJSON {
			resp := api.ParseResponse{Cards: make([][]api.AttributeJSON, 0, len(cards)), Warnings: warnings}
			for _, card := range cards {
				resp.Cards = append(resp.Cards, api.AttributesJSON(card))
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		}

		printWarnings(cmd, warnings)
		for _, card := range cards {
			if err := card.Dump(cmd.OutOrStdout()); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("json", false, "Print the decoded structure as JSON")
}

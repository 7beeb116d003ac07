package cmd

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// formatCmd represents the format command
var formatCmd = &cobra.Command{
	Use:   "format [file|-]",
	Short: "Rewrite vCards in canonical form",
	Long: `Decode every vCard in a file (or stdin) and write it back with CRLF line
endings, folded lines, escaped values and quoted-printable decoded.

Example:
  rolodex format old.vcf > new.vcf`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		cards, warnings := decoderFrom(cmd).DecodeAll(text)
		printWarnings(cmd, warnings)
		if len(cards) == 0 {
			return errors.New("no vCard found in input")
		}

		out := cmd.OutOrStdout()
		for _, card := range cards {
			if _, err := card.WriteTo(out); err != nil {
				return err
			}
			if _, err := io.WriteString(out, "\r\n"); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/mboximport"
)

// importMboxCmd represents the import-mbox command
var importMboxCmd = &cobra.Command{
	Use:   "import-mbox",
	Short: "Import vCards attached to mail",
	Long: `Scan an mbox file for vCard parts (text/vcard, text/x-vcard,
text/directory and .vcf attachments) and add every card found.

The mbox can be given by path, or by mailbox name inside a mail directory
whose files are named in IMAP modified UTF-7.

Examples:
  rolodex import-mbox --path ~/mail/INBOX
  rolodex import-mbox --mail-dir ~/mail --mailbox Entwürfe
  rolodex import-mbox --mail-dir ~/mail --list
  rolodex import-mbox --path archive.mbox --dry-run`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		mailDir, _ := cmd.Flags().GetString("mail-dir")
		mailbox, _ := cmd.Flags().GetString("mailbox")
		list, _ := cmd.Flags().GetBool("list")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if list {
			if mailDir == "" {
				return errors.New("--list requires --mail-dir")
			}
			mailboxes, err := mboximport.Mailboxes(mailDir)
			if err != nil {
				return err
			}
			for _, name := range mailboxes {
				cmd.Println(name)
			}
			return nil
		}

		switch {
		case path != "" && mailbox != "":
			return errors.New("use either --path or --mailbox, not both")
		case mailbox != "":
			if mailDir == "" {
				return errors.New("--mailbox requires --mail-dir")
			}
			var err error
			if path, err = mboximport.MailboxPath(mailDir, mailbox); err != nil {
				return err
			}
		case path == "":
			return errors.New("--path or --mailbox is required")
		}

		importer := mboximport.NewImporter(configFrom(cmd).Import.DecodeCharset)

		if dryRun {
			found, messages, err := importer.ReadFile(cmd.Context(), path)
			if err != nil {
				return err
			}
			for _, f := range found {
				printWarnings(cmd, f.Warnings)
				cmd.Printf("message %d\t%s\t%s\n", f.Message, f.Subject, displayName(f.Card))
			}
			cmd.Printf("Found %d cards in %d messages\n", len(found), messages)
			return nil
		}

		store, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		summary, err := importer.Import(cmd.Context(), path, store)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		cmd.Printf("Imported %d cards from %d messages (%d warnings, %d messages without cards)\n",
			summary.Cards, summary.Messages, summary.Warnings, summary.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importMboxCmd)
	importMboxCmd.Flags().String("path", "", "Path of the mbox file")
	importMboxCmd.Flags().String("mail-dir", "", "Directory holding one mbox file per mailbox")
	importMboxCmd.Flags().String("mailbox", "", "Mailbox name inside --mail-dir")
	importMboxCmd.Flags().Bool("list", false, "List the mailboxes in --mail-dir and exit")
	importMboxCmd.Flags().Bool("dry-run", false, "Print the cards found without storing them")
}

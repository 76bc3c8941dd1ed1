package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Browse and export saved contacts",
}

var contactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved contacts",
	RunE:  runContactList,
}

var contactFindCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Find contacts by name, organisation, email or phone",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactFind,
}

var contactShowCmd = &cobra.Command{
	Use:   "show <contact-id>",
	Short: "Show every field of a contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactShow,
}

var contactExportCmd = &cobra.Command{
	Use:   "export [contact-id...]",
	Short: "Export contacts as vCard",
	Long: `Write contacts as vCard 4.0. Without IDs every saved contact is exported.

Examples:
  cardsync contact export > contacts.vcf
  cardsync contact export -o ada.vcf 3f2c...`,
	RunE: runContactExport,
}

func init() {
	contactListCmd.Flags().String("kind", "", "only list person or organization contacts")
	contactExportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	contactCmd.AddCommand(contactListCmd)
	contactCmd.AddCommand(contactFindCmd)
	contactCmd.AddCommand(contactShowCmd)
	contactCmd.AddCommand(contactExportCmd)
	rootCmd.AddCommand(contactCmd)
}

func runContactList(cmd *cobra.Command, _ []string) error {
	if contactService == nil {
		return errors.New("contact service not configured")
	}

	kind, _ := cmd.Flags().GetString("kind")
	if kind != "" && !domain.Kind(kind).IsValid() {
		return fmt.Errorf("unknown kind %q: use person or organization", kind)
	}

	records, err := contactService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}
	if kind != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.Kind == domain.Kind(kind) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if len(records) == 0 {
		cmd.Println("No contacts saved.")
		return nil
	}
	printContacts(cmd, records)
	return nil
}

func runContactFind(cmd *cobra.Command, args []string) error {
	if contactService == nil {
		return errors.New("contact service not configured")
	}

	records, err := contactService.Find(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to find contacts: %w", err)
	}
	if len(records) == 0 {
		cmd.Printf("No contacts match %q.\n", args[0])
		return nil
	}
	printContacts(cmd, records)
	return nil
}

func printContacts(cmd *cobra.Command, records []domain.Record) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.DisplayName(),
			r.Value(domain.FieldOrganization),
			firstValue(r, domain.FieldEmails),
			firstValue(r, domain.FieldPhones),
			r.ID,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "ORGANIZATION", "EMAIL", "PHONE", "ID").
		Rows(rows...)
	cmd.Println(t.Render())
	cmd.Printf("%d contact(s)\n", len(records))
}

func firstValue(r domain.Record, field domain.MultiField) string {
	if values := r.Values(field); len(values) > 0 {
		return values[0].Value
	}
	return ""
}

func runContactShow(cmd *cobra.Command, args []string) error {
	if contactService == nil {
		return errors.New("contact service not configured")
	}

	r, err := contactService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get contact: %w", err)
	}

	cmd.Printf("%s (%s)\n", r.DisplayName(), r.Kind)
	for _, f := range domain.SingleFields {
		if v := r.Value(f); v != "" {
			cmd.Printf("  %-18s %s\n", f, v)
		}
	}
	for _, f := range domain.MultiFields {
		for _, v := range r.Values(f) {
			label := v.Label
			if label == "" {
				label = "-"
			}
			cmd.Printf("  %-18s %s (%s)\n", f, v.Value, label)
		}
	}
	if r.HasImage() {
		cmd.Printf("  %-18s %d bytes\n", "photo", len(r.ImageData()))
	}
	return nil
}

func runContactExport(cmd *cobra.Command, args []string) (err error) {
	if contactService == nil {
		return errors.New("contact service not configured")
	}

	var w io.Writer = cmd.OutOrStdout()
	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		f, createErr := os.Create(output)
		if createErr != nil {
			return fmt.Errorf("failed to create %s: %w", output, createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to write %s: %w", output, closeErr)
			}
		}()
		w = f
	}

	n, err := contactService.Export(cmd.Context(), w, args...)
	if err != nil {
		return fmt.Errorf("failed to export contacts: %w", err)
	}
	if output != "" {
		cmd.Printf("Exported %d contact(s) to %s\n", n, output)
	}
	return nil
}

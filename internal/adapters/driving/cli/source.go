package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// defaultValidateTimeout bounds source validate when --timeout is not given.
const defaultValidateTimeout = 30 * time.Second

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage vCard sources",
	Long: `Add, list, reorder and remove the remote vCard files cardsync imports.

Sources are imported in list order. Use 'source move' to change it.`,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a vCard source",
	Long: `Add a remote vCard file to import.

Source types:
  http        plain download, optionally with basic auth (--username and a
              password) or a bearer token (--token)
  form-login  signs in through an HTML login form (--login-url) with
              --username and a password, then downloads the file with the
              session cookies. Form field names can be changed with
              --param username_field=... --param password_field=...
              and a failed login is recognised by --param error_marker=...
  oauth2      gets a bearer token from the token endpoint (--login-url) with
              the client credentials grant. --username is the client ID and
              the password the client secret. Scopes are given with
              --param scopes="contacts.read other"

Examples:
  cardsync source add Team https://example.com/team.vcf
  cardsync source add Partners https://example.com/p.vcf --username me --ask-password
  cardsync source add Intranet https://intra.example.com/export.vcf \
      --type form-login --login-url https://intra.example.com/login \
      --username me --ask-password`,
	Args: cobra.ExactArgs(2),
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourceList,
}

var sourceShowCmd = &cobra.Command{
	Use:   "show <source-id>",
	Short: "Show a source's configuration and last import",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceShow,
}

var sourceEditCmd = &cobra.Command{
	Use:   "edit <source-id>",
	Short: "Change a source",
	Long: `Change the name, URL or credentials of a source.
Only the flags given are changed. Changing the URL or type makes the next
import download the file again.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceEdit,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove <source-id>",
	Short: "Remove a source",
	Long:  `Remove a source. Contacts already imported from it are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

var sourceMoveCmd = &cobra.Command{
	Use:   "move <source-id> <position>",
	Short: "Move a source to a position in the list",
	Long:  `Move a source to a 1-based position. Positions past the end move it last.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runSourceMove,
}

var sourceEnableCmd = &cobra.Command{
	Use:   "enable <source-id>",
	Short: "Include a source in imports",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setSourceEnabled(cmd, args[0], true) },
}

var sourceDisableCmd = &cobra.Command{
	Use:   "disable <source-id>",
	Short: "Exclude a source from imports",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setSourceEnabled(cmd, args[0], false) },
}

var sourceValidateCmd = &cobra.Command{
	Use:   "validate <source-id>",
	Short: "Check that a source's URL answers",
	Long: `Send a HEAD request for the source's file and report the final URL
and whether the server offers cache validators (ETag or Last-Modified).
Form-login sources are checked without signing in.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceValidate,
}

func init() {
	addConnectionFlags(sourceAddCmd)
	sourceAddCmd.Flags().StringP("type", "t", domain.SourceTypeHTTP, "source type (http, form-login, oauth2)")
	sourceAddCmd.Flags().Bool("disabled", false, "add the source without including it in imports")

	addConnectionFlags(sourceEditCmd)
	sourceEditCmd.Flags().String("name", "", "new name")
	sourceEditCmd.Flags().String("url", "", "new vCard URL")
	sourceEditCmd.Flags().StringP("type", "t", "", "new source type")

	sourceValidateCmd.Flags().Duration("timeout", defaultValidateTimeout, "how long to wait for the server")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceShowCmd)
	sourceCmd.AddCommand(sourceEditCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceMoveCmd)
	sourceCmd.AddCommand(sourceEnableCmd)
	sourceCmd.AddCommand(sourceDisableCmd)
	sourceCmd.AddCommand(sourceValidateCmd)
	rootCmd.AddCommand(sourceCmd)
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("username", "u", "", "username for basic auth or the login form")
	cmd.Flags().String("password", "", "password (prefer --ask-password)")
	cmd.Flags().Bool("ask-password", false, "prompt for the password")
	cmd.Flags().String("token", "", "bearer token")
	cmd.Flags().String("login-url", "", "login form URL (form-login) or token URL (oauth2)")
	cmd.Flags().StringToString("param", nil, "fetcher option as key=value (repeatable)")
}

// applyConnectionFlags copies the connection flags that were set onto conn.
func applyConnectionFlags(cmd *cobra.Command, conn *domain.Connection) error {
	flags := cmd.Flags()
	if flags.Changed("username") {
		conn.Username, _ = flags.GetString("username")
	}
	if flags.Changed("password") {
		conn.Password, _ = flags.GetString("password")
	}
	if ask, _ := flags.GetBool("ask-password"); ask {
		password, err := readPassword(cmd.OutOrStdout(), "Password: ")
		if err != nil {
			return err
		}
		conn.Password = password
	}
	if flags.Changed("token") {
		conn.Token, _ = flags.GetString("token")
	}
	if flags.Changed("login-url") {
		conn.LoginURL, _ = flags.GetString("login-url")
	}
	if flags.Changed("param") {
		params, err := flags.GetStringToString("param")
		if err != nil {
			return fmt.Errorf("parsing --param: %w", err)
		}
		if conn.Params == nil {
			conn.Params = make(map[string]string, len(params))
		}
		for k, v := range params {
			conn.Params[k] = v
		}
	}
	return nil
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sourceType, _ := cmd.Flags().GetString("type")
	disabled, _ := cmd.Flags().GetBool("disabled")

	source := domain.Source{
		Type:       sourceType,
		Name:       args[0],
		Connection: domain.Connection{URL: args[1]},
		Enabled:    !disabled,
	}
	if err := applyConnectionFlags(cmd, &source.Connection); err != nil {
		return err
	}

	added, err := sourceService.Add(cmd.Context(), source)
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	cmd.Printf("Added source %q (%s)\n", added.Name, added.ID)
	if !added.Enabled {
		cmd.Println("The source is disabled. Run 'cardsync source enable " + added.ID + "' to import it.")
	}
	return nil
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sources, err := sourceService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		cmd.Println("No sources configured.")
		cmd.Println("Run 'cardsync source add <name> <url>' to add one.")
		return nil
	}

	rows := make([][]string, 0, len(sources))
	for i := range sources {
		src := &sources[i]
		lastImport := "-"
		if src.LastImport != nil {
			lastImport = src.LastImport.ImportedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			src.ID,
			src.Name,
			src.Type,
			yesNo(src.Enabled),
			lastImport,
			src.StatusMessage(),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "NAME", "TYPE", "ENABLED", "LAST IMPORT", "STATUS").
		Rows(rows...)
	cmd.Println(t.Render())
	return nil
}

func runSourceShow(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	src, err := sourceService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get source: %w", err)
	}

	conn := src.Connection
	cmd.Printf("Name:     %s\n", src.Name)
	cmd.Printf("ID:       %s\n", src.ID)
	cmd.Printf("Type:     %s\n", src.Type)
	cmd.Printf("URL:      %s\n", conn.URL)
	if conn.LoginURL != "" {
		cmd.Printf("Login:    %s\n", conn.LoginURL)
	}
	if conn.Username != "" {
		cmd.Printf("Username: %s\n", conn.Username)
	}
	if conn.Password != "" {
		cmd.Printf("Password: %s\n", maskSecret(conn.Password))
	}
	if conn.Token != "" {
		cmd.Printf("Token:    %s\n", maskSecret(conn.Token))
	}
	for _, k := range slices.Sorted(maps.Keys(conn.Params)) {
		cmd.Printf("Param:    %s=%s\n", k, conn.Params[k])
	}
	cmd.Printf("Enabled:  %s\n", yesNo(src.Enabled))
	cmd.Printf("Status:   %s\n", src.StatusMessage())
	if src.LastImport != nil {
		cmd.Printf("Imported: %s\n", src.LastImport.ImportedAt.Local().Format(time.RFC1123))
		if stamp := src.LastImport.Stamp; stamp != nil {
			cmd.Printf("Stamp:    %s\n", stamp)
		}
	}
	return nil
}

func runSourceEdit(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	source, err := sourceService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get source: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		source.Name, _ = flags.GetString("name")
	}
	if flags.Changed("url") {
		source.Connection.URL, _ = flags.GetString("url")
	}
	if flags.Changed("type") {
		source.Type, _ = flags.GetString("type")
	}
	if err := applyConnectionFlags(cmd, &source.Connection); err != nil {
		return err
	}

	if err := sourceService.Update(cmd.Context(), *source); err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	cmd.Printf("Updated source %q\n", source.Name)
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	if err := sourceService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	cmd.Printf("Removed source %s\n", args[0])
	return nil
}

func runSourceMove(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	position, err := strconv.Atoi(args[1])
	if err != nil || position < 1 {
		return fmt.Errorf("position must be a number from 1: %q", args[1])
	}

	if err := sourceService.Move(cmd.Context(), args[0], position-1); err != nil {
		return fmt.Errorf("failed to move source: %w", err)
	}
	cmd.Printf("Moved source %s to position %d\n", args[0], position)
	return nil
}

func setSourceEnabled(cmd *cobra.Command, id string, enabled bool) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	if err := sourceService.SetEnabled(cmd.Context(), id, enabled); err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	if enabled {
		cmd.Printf("Enabled source %s\n", id)
	} else {
		cmd.Printf("Disabled source %s\n", id)
	}
	return nil
}

func runSourceValidate(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	source, err := sourceService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get source: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := sourceService.Validate(ctx, *source).GetContext(ctx)
	if err != nil {
		return fmt.Errorf("source %q is not reachable: %w", source.Name, err)
	}

	cmd.Printf("Source %q is reachable.\n", source.Name)
	cmd.Printf("  URL: %s\n", result.URL)
	if result.Stamp != nil {
		cmd.Printf("  Cache stamp: %s\n", result.Stamp)
	} else {
		cmd.Println("  No cache validators: every import downloads the file.")
	}
	return nil
}

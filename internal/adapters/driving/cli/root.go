// Package cli provides the cobra command tree for cardsync.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/logger"
)

// version is set at build time through SetVersion.
var version = "dev"

// Services wired in by main.
var (
	sourceService   driving.SourceService
	contactService  driving.ContactService
	importer        driving.Importer
	scheduler       driving.Scheduler
	settingsService driving.SettingsService

	configFile    string
	applySettings func(ctx context.Context, settings domain.AppSettings) error
)

// Services holds the driving ports the commands use.
type Services struct {
	Source    driving.SourceService
	Contact   driving.ContactService
	Importer  driving.Importer
	Scheduler driving.Scheduler
	Settings  driving.SettingsService

	// ConfigFile is the settings file the daemon watches for changes.
	ConfigFile string

	// ApplySettings pushes reloaded settings into running services.
	ApplySettings func(ctx context.Context, settings domain.AppSettings) error
}

// SetServices wires the driving ports into the commands.
func SetServices(s Services) {
	sourceService = s.Source
	contactService = s.Contact
	importer = s.Importer
	scheduler = s.Scheduler
	settingsService = s.Settings
	configFile = s.ConfigFile
	applySettings = s.ApplySettings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "cardsync",
	Short: "Keep a local contact store in sync with remote vCard files",
	Long: `cardsync downloads vCard files from configured sources and merges
them into a local contact store. Existing contacts are only ever added to:
empty fields are filled, missing phone numbers, emails and addresses are
appended, and nothing is removed or overwritten.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
		if err == nil {
			logger.SetVerbose(verbose)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print debug logs to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Command cardsync imports remote vCard files into a local contact store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/cardsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/cardsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/cardsync/internal/adapters/driven/transport/httpclient"
	"github.com/custodia-labs/cardsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/cardsync/internal/connectors"
	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/services"
	"github.com/custodia-labs/cardsync/internal/logger"
	"github.com/custodia-labs/cardsync/internal/normalisers/vcard"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	store, err := wire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// cobra prints command errors itself.
	runErr := cli.ExecuteContext(context.Background())
	if err := store.Close(); err != nil {
		logger.Warn("closing database: %v", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

// wire builds the adapters and services and hands them to the CLI.
func wire() (*sqlite.Store, error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	transport := httpclient.New(httpclient.OptionsFrom(settings.Transport, version))
	fetchers := connectors.NewFactory(transport)
	codec := vcard.New(fmt.Sprintf("-//Custodia Labs//cardsync %s//EN", version))

	contacts := store.Contacts()
	sourceService := services.NewSourceService(store.SourceStore(), fetchers)
	importer := services.NewImporter(contacts, fetchers, codec, store.SourceStore())
	importer.SetMaxConcurrentFetches(settings.Import.MaxConcurrentFetches)
	scheduler := services.NewScheduler(settings.Scheduler, store.SchedulerStore(), importer)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Source:     sourceService,
		Contact:    services.NewContactService(contacts, codec),
		Importer:   importer,
		Scheduler:  scheduler,
		Settings:   settingsService,
		ConfigFile: configStore.Path(),
		ApplySettings: func(ctx context.Context, s domain.AppSettings) error {
			// Transport settings take effect on the next start.
			importer.SetMaxConcurrentFetches(s.Import.MaxConcurrentFetches)
			return scheduler.Reconfigure(ctx, s.Scheduler)
		},
	})
	return store, nil
}

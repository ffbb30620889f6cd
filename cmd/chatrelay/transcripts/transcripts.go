// Package transcriptscmder provides the transcripts command for inspecting
// the exchanges a relay recorded.
package transcriptscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/logger"
	"github.com/papercomputeco/chatrelay/pkg/storage"
	storageutils "github.com/papercomputeco/chatrelay/pkg/storage/utils"
)

const transcriptsLongDesc string = `Inspect recorded transcripts.

Reads the transcript store the relay writes to. The store is selected the
same way "chatrelay serve" selects it: --storage, --sqlite and --postgres
flags, CHATRELAY_STORAGE_* environment variables or config.toml.

In-memory transcripts only live inside a running relay and cannot be read
from here.

Examples:
  chatrelay transcripts list --sqlite chatrelay.db
  chatrelay transcripts show 3f2a9c1e-... --json`

const transcriptsShortDesc string = "Inspect recorded transcripts"

var storageFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
}

// storeOptions holds the storage flags shared by the subcommands.
type storeOptions struct {
	driver      string
	sqlitePath  string
	postgresDSN string
}

func (o *storeOptions) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &o.driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &o.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &o.postgresDSN)
}

// resolve fills o from flags, environment and config.toml.
func (o *storeOptions) resolve(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, storageFlagKeys)
	o.driver = v.GetString("storage.driver")
	o.sqlitePath = v.GetString("storage.sqlite_path")
	o.postgresDSN = v.GetString("storage.postgres_dsn")

	if cmd.Flags().Changed(config.Flags[config.FlagSQLite].Name) &&
		!cmd.Flags().Changed(config.Flags[config.FlagStorageDriver].Name) {
		o.driver = config.StorageDriverSQLite
	}

	if o.driver == "" || o.driver == config.StorageDriverInMemory {
		return fmt.Errorf("transcripts are kept in memory by the relay; configure --storage %s or %s to inspect them",
			config.StorageDriverSQLite, config.StorageDriverPostgres)
	}
	return nil
}

func (o *storeOptions) open(ctx context.Context) (storage.Driver, error) {
	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		Driver:      o.driver,
		SQLitePath:  o.sqlitePath,
		PostgresDSN: o.postgresDSN,
		Logger:      logger.Nop(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}
	return driver, nil
}

func NewTranscriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"tx"},
		Short:   transcriptsShortDesc,
		Long:    transcriptsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

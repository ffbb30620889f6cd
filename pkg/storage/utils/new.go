package storageutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/storage"
	"github.com/papercomputeco/chatrelay/pkg/storage/inmemory"
	"github.com/papercomputeco/chatrelay/pkg/storage/postgres"
	"github.com/papercomputeco/chatrelay/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
	Logger      *slog.Logger
}

// NewDriver opens the transcript store selected by o.Driver. An empty driver
// name means in-memory storage.
func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	switch o.Driver {
	case "", config.StorageDriverInMemory:
		return inmemory.NewDriver(), nil

	case config.StorageDriverSQLite:
		if o.SQLitePath == "" {
			return nil, errors.New("sqlite storage requires a database path")
		}
		return sqlite.NewDriver(ctx, o.SQLitePath)

	case config.StorageDriverPostgres:
		if o.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a DSN")
		}
		return postgres.NewDriver(ctx, postgres.Config{DSN: o.PostgresDSN}, o.Logger)

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", o.Driver)
	}
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
	"github.com/roach88/persistor/internal/varstore"
)

// documentFormat returns the format named by flag, or the one implied by
// path's extension when flag is empty.
func (o *RootOptions) documentFormat(flag, path string) model.FileFormat {
	if flag != "" {
		return model.ParseFileFormat(flag, o.Logger())
	}
	return model.FormatForPath(path, o.Logger())
}

// decodeFile reads a JSON or XML document into an object graph.
func (o *RootOptions) decodeFile(ctx context.Context, path string, format model.FileFormat, ignored map[string][]string) (*codec.Decoded, error) {
	decoded, err := persist.Decode(ctx, persist.FileSource{Path: path}, format, codec.DecodeOptions{
		Registry:      o.Registry,
		Logger:        o.Logger(),
		IgnoredFields: ignored,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range decoded.Warnings {
		o.Logger().Warn("decode warning", "path", path, "warning", w)
	}
	return decoded, nil
}

// storeFlags select the runtime variable store.
type storeFlags struct {
	DB       string
	Redis    string
	RedisKey string
}

func addStoreFlags(cmd *cobra.Command, flags *storeFlags, persistent bool) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	fs.StringVar(&flags.DB, "db", "", "SQLite variable store path (default from config)")
	fs.StringVar(&flags.Redis, "redis", "", "Redis address of the variable store; overrides --db")
	fs.StringVar(&flags.RedisKey, "redis-key", "", "Redis hash holding the variables")
}

// openStore opens the Redis store when an address is configured, the
// SQLite store otherwise.
func (o *RootOptions) openStore(ctx context.Context, flags *storeFlags) (varstore.Store, error) {
	config := o.Config()
	addr := flags.Redis
	if addr == "" {
		addr = config.GetString(varsRedisKey)
	}
	if addr != "" {
		key := flags.RedisKey
		if key == "" {
			key = config.GetString(varsRedisSetKey)
		}
		store, err := varstore.OpenRedis(ctx, addr, key)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis variable store: %w", err)
		}
		o.Logger().Debug("opened variable store", "backend", "redis", "addr", addr, "key", key)
		return store, nil
	}

	path := flags.DB
	if path == "" {
		path = config.GetString(varsDBKey)
	}
	store, err := varstore.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open variable store: %w", err)
	}
	o.Logger().Debug("opened variable store", "backend", "sqlite", "path", path)
	return store, nil
}

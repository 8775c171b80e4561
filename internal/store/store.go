// Package store provides the key-object storage used for usage logs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/j-veylop/clipforge/internal/config"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// DailyLogPrefix is the key prefix of every daily usage log.
const DailyLogPrefix = "usage-logs/daily/"

// ObjectStore is a flat key-object store. Put always overwrites the whole object.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	// Keys lists stored keys starting with prefix, in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// DailyLogKeyFor returns the object key for an already formatted ISO date.
func DailyLogKeyFor(isoDate string) string {
	return DailyLogPrefix + isoDate + ".json"
}

// Open returns the backend selected by cfg.UsageStore.
func Open(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.UsageStore {
	case config.StoreSQLite:
		return NewSQLite(cfg.UsageDBPath)
	case config.StoreFS:
		return NewFS(cfg.UsageDir)
	case config.StoreS3:
		return NewS3(ctx, cfg.UsageS3Bucket, cfg.UsageS3Prefix)
	default:
		return nil, fmt.Errorf("unsupported usage store %q", cfg.UsageStore)
	}
}

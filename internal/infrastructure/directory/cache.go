// Package directory maintains a periodically refreshed snapshot of the
// channel definitions owned by the external backend.
package directory

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/ports"
)

type snapshot struct {
	list []domain.ChannelDefinition
	byID map[domain.ChannelID]domain.ChannelDefinition
}

func newSnapshot(channels []domain.ChannelDefinition) *snapshot {
	byID := make(map[domain.ChannelID]domain.ChannelDefinition, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}
	return &snapshot{list: channels, byID: byID}
}

// Cache holds the most recently fetched channel directory. Refresh replaces
// the snapshot reference atomically, so readers never block and never see a
// partially updated list. A failed refresh keeps the previous snapshot;
// clearing the cache on a transient backend failure would lock everyone out
// of every channel.
type Cache struct {
	fetcher  ports.ChannelFetcher
	store    ports.SnapshotStore // optional last-known-snapshot persistence
	interval time.Duration
	metrics  ports.Metrics
	logger   *zap.SugaredLogger

	current atomic.Pointer[snapshot]
}

func NewCache(fetcher ports.ChannelFetcher, store ports.SnapshotStore, interval time.Duration, metrics ports.Metrics, logger *zap.SugaredLogger) *Cache {
	c := &Cache{
		fetcher:  fetcher,
		store:    store,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
	c.current.Store(newSnapshot(nil))
	return c
}

// Lookup returns the channel definition for the given id from the current
// snapshot.
func (c *Cache) Lookup(id domain.ChannelID) (domain.ChannelDefinition, bool) {
	def, ok := c.current.Load().byID[id]
	return def, ok
}

// All returns the current snapshot's channel list.
func (c *Cache) All() []domain.ChannelDefinition {
	return c.current.Load().list
}

// Size returns the number of channels in the current snapshot.
func (c *Cache) Size() int {
	return len(c.current.Load().list)
}

// Refresh fetches the directory once and swaps in the new snapshot. On
// failure the previous snapshot stays in place and the error is returned for
// logging by the caller.
func (c *Cache) Refresh(ctx context.Context) error {
	channels, err := c.fetcher.FetchChannels(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.DirectoryRefreshFailed()
		}
		return err
	}

	c.current.Store(newSnapshot(channels))
	if c.metrics != nil {
		c.metrics.DirectoryRefreshed(len(channels))
	}

	if c.store != nil {
		if err := c.store.SaveSnapshot(ctx, channels); err != nil {
			c.logger.Warnw("failed to persist directory snapshot", "error", err)
		}
	}
	return nil
}

// Start performs the initial fetch and then refreshes on a fixed interval
// until the context is cancelled. If the initial fetch fails and a snapshot
// store is configured, the cache seeds from the last persisted snapshot
// instead of starting empty.
func (c *Cache) Start(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Errorw("initial directory fetch failed", "error", err)
		c.seedFromStore(ctx)
	} else {
		c.logger.Infow("channel directory loaded", "channels", c.Size())
	}

	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					c.logger.Warnw("directory refresh failed, keeping previous snapshot",
						"error", err,
						"channels", c.Size(),
					)
				}
			}
		}
	}()
}

func (c *Cache) seedFromStore(ctx context.Context) {
	if c.store == nil {
		return
	}
	channels, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		c.logger.Warnw("no persisted directory snapshot available", "error", err)
		return
	}
	c.current.Store(newSnapshot(channels))
	c.logger.Infow("channel directory seeded from persisted snapshot", "channels", len(channels))
}

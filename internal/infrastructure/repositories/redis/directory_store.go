package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
)

const snapshotKey = "radio:directory:snapshot"

// DirectoryStore persists the last-known channel directory snapshot so a
// restart during a backend outage does not begin with an empty directory.
type DirectoryStore struct {
	client *redis.Client
}

func NewDirectoryStore(client *redis.Client) *DirectoryStore {
	return &DirectoryStore{client: client}
}

func (s *DirectoryStore) SaveSnapshot(ctx context.Context, channels []domain.ChannelDefinition) error {
	data, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("failed to marshal directory snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store directory snapshot: %w", err)
	}
	return nil
}

func (s *DirectoryStore) LoadSnapshot(ctx context.Context) ([]domain.ChannelDefinition, error) {
	data, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load directory snapshot: %w", err)
	}

	var channels []domain.ChannelDefinition
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal directory snapshot: %w", err)
	}
	return channels, nil
}

package ports

import (
	"context"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
)

// IdentityService resolves connection credentials to a user profile.
// A failed resolution is reported as domain.ErrNoProfile, not as a panic;
// the external service being unreachable is an ordinary outcome here.
type IdentityService interface {
	Validate(ctx context.Context, token string, userID domain.UserID) (*domain.UserProfile, error)
}

// ChannelFetcher retrieves the full channel directory from the backend.
type ChannelFetcher interface {
	FetchChannels(ctx context.Context) ([]domain.ChannelDefinition, error)
}

// ChannelDirectory exposes synchronous lookups over the current directory
// snapshot. Implementations must never block readers during a refresh.
type ChannelDirectory interface {
	Lookup(id domain.ChannelID) (domain.ChannelDefinition, bool)
	All() []domain.ChannelDefinition
	Size() int
}

// SnapshotStore persists the last-known directory snapshot so a restart
// during a backend outage does not begin with an empty directory.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, channels []domain.ChannelDefinition) error
	LoadSnapshot(ctx context.Context) ([]domain.ChannelDefinition, error)
}

// Sender delivers an event to one connected client. Implementations are
// best-effort and must not block the caller; a slow consumer drops frames
// rather than stalling channel relay.
type Sender interface {
	Send(event domain.Event)
}

// Metrics receives relay instrumentation. A nil-safe no-op implementation
// is used when monitoring is disabled.
type Metrics interface {
	SessionConnected()
	SessionDisconnected()
	ChannelMembers(channelID string, count int)
	PTTStarted()
	PTTDenied()
	AudioRelayed(bytes int)
	AudioDropped()
	AuthFailed()
	DirectoryRefreshed(size int)
	DirectoryRefreshFailed()
}

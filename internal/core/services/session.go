package services

import (
	"sort"
	"time"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/ports"
)

// Session is the per-connection state created after successful
// authentication. Its fields are only touched under the service mutex.
type Session struct {
	ID      string
	User    *domain.UserProfile
	Primary domain.ChannelID

	monitored map[domain.ChannelID]struct{}
	sender    ports.Sender

	// PTT-start sliding window and per-second audio chunk buckets.
	// Both are self-pruning: stale entries are discarded on each check.
	pttStarts    []time.Time
	audioBuckets map[int64]int
}

func newSession(id string, user *domain.UserProfile, sender ports.Sender) *Session {
	return &Session{
		ID:           id,
		User:         user,
		monitored:    make(map[domain.ChannelID]struct{}),
		sender:       sender,
		audioBuckets: make(map[int64]int),
	}
}

// allowPTTStart prunes starts older than the window, then admits and records
// the new start unless the ceiling is already reached.
func (s *Session) allowPTTStart(now time.Time, maxStarts int, window time.Duration) bool {
	cutoff := now.Add(-window)
	kept := s.pttStarts[:0]
	for _, ts := range s.pttStarts {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.pttStarts = kept

	if len(s.pttStarts) >= maxStarts {
		return false
	}
	s.pttStarts = append(s.pttStarts, now)
	return true
}

// allowAudioChunk counts the chunk against the current wall-clock second and
// reports whether it is within the ceiling. Buckets older than the TTL are
// pruned opportunistically on each arrival.
func (s *Session) allowAudioChunk(now time.Time, ceiling int, bucketTTL time.Duration) bool {
	sec := now.Unix()
	ttlSecs := int64(bucketTTL / time.Second)
	for k := range s.audioBuckets {
		if sec-k > ttlSecs {
			delete(s.audioBuckets, k)
		}
	}

	s.audioBuckets[sec]++
	return s.audioBuckets[sec] <= ceiling
}

func (s *Session) monitoring() []domain.ChannelID {
	ids := make([]domain.ChannelID, 0, len(s.monitored))
	for id := range s.monitored {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Session) send(event domain.Event) {
	s.sender.Send(event)
}

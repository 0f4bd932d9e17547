package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/access"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/ports"
)

// RelayLimits bounds a single session's transmit rate.
type RelayLimits struct {
	PTTMaxStarts      int
	PTTWindow         time.Duration
	AudioChunksPerSec int
	AudioBucketTTL    time.Duration
}

// RadioService owns all live relay state: the session registry, the channel
// membership index, roster broadcasting and PTT/audio fan-out. Every
// mutation funnels through one mutex, so handlers never observe another
// handler's half-applied change; the only suspending work (identity
// validation, directory refresh) happens outside this service.
type RadioService struct {
	mu       sync.Mutex
	sessions map[string]*Session
	channels map[domain.ChannelID]*channelMembers

	directory ports.ChannelDirectory
	limits    RelayLimits
	metrics   ports.Metrics
	logger    *zap.SugaredLogger

	// now is swappable in tests to drive the rate windows.
	now func() time.Time
}

func NewRadioService(directory ports.ChannelDirectory, limits RelayLimits, metrics ports.Metrics, logger *zap.SugaredLogger) *RadioService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &RadioService{
		sessions:  make(map[string]*Session),
		channels:  make(map[domain.ChannelID]*channelMembers),
		directory: directory,
		limits:    limits,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Register admits an authenticated connection to the registry and returns
// its session. Callers must only invoke this after identity validation has
// produced a profile.
func (r *RadioService) Register(user *domain.UserProfile, sender ports.Sender) *Session {
	sess := newSession(uuid.NewString(), user, sender)

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	r.metrics.SessionConnected()
	r.logger.Infow("session registered",
		"session_id", sess.ID,
		"user_id", user.ID,
		"username", user.Username,
		"staff", user.Staff,
	)
	return sess
}

// Lookup returns the session for the given id.
func (r *RadioService) Lookup(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// SessionCount returns the number of live sessions.
func (r *RadioService) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Disconnect tears a session down: it is evicted from the registry and from
// every membership set, and the former primary channel (if any) gets a final
// roster broadcast that no longer includes the session.
func (r *RadioService) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)

	for chID := range sess.monitored {
		if ch, ok := r.channels[chID]; ok {
			delete(ch.monitors, sessionID)
		}
	}

	if sess.Primary != "" {
		r.leavePrimaryLocked(sess)
	}

	r.metrics.SessionDisconnected()
	r.logger.Infow("session removed", "session_id", sessionID, "username", sess.User.Username)
}

// Join makes the channel the session's primary. A session has at most one
// primary at a time: joining channel B while in channel A removes it from A
// (and rebroadcasts A's roster) before it is added to B.
func (r *RadioService) Join(sessionID string, channelID domain.ChannelID) error {
	def, ok := r.directory.Lookup(channelID)
	if !ok {
		return fmt.Errorf("join %s: %w", channelID, domain.ErrChannelNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !access.CanJoin(sess.User, &def) {
		return fmt.Errorf("join %s: %w", channelID, domain.ErrAccessDenied)
	}

	if sess.Primary == channelID {
		sess.send(domain.Event{Type: domain.EventJoined, Payload: domain.JoinedPayload{ID: def.ID, Name: def.Name}})
		return nil
	}

	if sess.Primary != "" {
		r.leavePrimaryLocked(sess)
	}

	ch := r.channelLocked(channelID)
	ch.members[sess.ID] = sess
	sess.Primary = channelID

	sess.send(domain.Event{Type: domain.EventJoined, Payload: domain.JoinedPayload{ID: def.ID, Name: def.Name}})
	r.broadcastRosterLocked(channelID, ch)

	r.logger.Infow("channel joined",
		"session_id", sess.ID,
		"username", sess.User.Username,
		"channel_id", channelID,
	)
	return nil
}

// Monitor adds a staff session to a channel's listen-only set and replies
// with the updated monitoring list.
func (r *RadioService) Monitor(sessionID string, channelID domain.ChannelID) error {
	def, ok := r.directory.Lookup(channelID)
	if !ok {
		return fmt.Errorf("monitor %s: %w", channelID, domain.ErrChannelNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !sess.User.Staff {
		return fmt.Errorf("monitor %s: %w", channelID, domain.ErrNotStaff)
	}
	if !access.CanMonitor(sess.User, &def) {
		return fmt.Errorf("monitor %s: %w", channelID, domain.ErrAccessDenied)
	}

	r.channelLocked(channelID).monitors[sess.ID] = sess
	sess.monitored[channelID] = struct{}{}

	sess.send(domain.Event{Type: domain.EventMonitoring, Payload: domain.MonitoringPayload{ChannelIDs: sess.monitoring()}})
	return nil
}

// Unmonitor removes the channel from the session's monitored set. Removing a
// channel that was not monitored is a no-op that still answers with the
// current list.
func (r *RadioService) Unmonitor(sessionID string, channelID domain.ChannelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}

	if _, monitored := sess.monitored[channelID]; monitored {
		delete(sess.monitored, channelID)
		if ch, ok := r.channels[channelID]; ok {
			delete(ch.monitors, sessionID)
		}
	}

	sess.send(domain.Event{Type: domain.EventMonitoring, Payload: domain.MonitoringPayload{ChannelIDs: sess.monitoring()}})
	return nil
}

// PTTStart applies the sliding-window rate limit and, when admitted,
// broadcasts a "started" ptt_state to the whole delivery set (the sender
// included; clients self-filter by identity).
func (r *RadioService) PTTStart(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if sess.Primary == "" {
		// Legitimate between leave and next join.
		return nil
	}

	if !sess.allowPTTStart(r.now(), r.limits.PTTMaxStarts, r.limits.PTTWindow) {
		r.metrics.PTTDenied()
		r.logger.Warnw("ptt start rate limited",
			"session_id", sess.ID,
			"username", sess.User.Username,
			"channel_id", sess.Primary,
		)
		return domain.ErrRateLimited
	}

	r.metrics.PTTStarted()
	r.broadcastPTTLocked(sess, domain.PTTStarted)
	return nil
}

// PTTStop broadcasts a "stopped" ptt_state unconditionally; stop cannot be
// abused for flooding the way repeated starts can.
func (r *RadioService) PTTStop(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if sess.Primary == "" {
		return nil
	}

	r.broadcastPTTLocked(sess, domain.PTTStopped)
	return nil
}

// Relay fans an audio chunk out to every member and monitor of the sender's
// primary channel. Chunks beyond the per-second ceiling are dropped without
// any error to the sender. Relay never consults the directory: a channel
// removed upstream mid-session keeps relaying to its existing members.
func (r *RadioService) Relay(sessionID string, chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if sess.Primary == "" {
		return nil
	}

	if !sess.allowAudioChunk(r.now(), r.limits.AudioChunksPerSec, r.limits.AudioBucketTTL) {
		r.metrics.AudioDropped()
		return nil
	}

	ch, ok := r.channels[sess.Primary]
	if !ok {
		return nil
	}

	event := domain.Event{
		Type: domain.EventSignal,
		Payload: domain.SignalPayload{
			From:      sess.User.Username,
			ChannelID: sess.Primary,
			Chunk:     chunk,
		},
	}
	ch.each(func(member *Session) {
		member.send(event)
	})
	r.metrics.AudioRelayed(len(chunk))
	return nil
}

// leavePrimaryLocked removes the session from its primary channel's member
// set and rebroadcasts that channel's roster. Empty channels stay in the
// index.
func (r *RadioService) leavePrimaryLocked(sess *Session) {
	chID := sess.Primary
	sess.Primary = ""

	ch, ok := r.channels[chID]
	if !ok {
		return
	}
	delete(ch.members, sess.ID)
	r.broadcastRosterLocked(chID, ch)
}

func (r *RadioService) channelLocked(id domain.ChannelID) *channelMembers {
	ch, ok := r.channels[id]
	if !ok {
		ch = newChannelMembers()
		r.channels[id] = ch
	}
	return ch
}

func (r *RadioService) broadcastRosterLocked(id domain.ChannelID, ch *channelMembers) {
	r.metrics.ChannelMembers(string(id), len(ch.members))
	if ch.empty() {
		return
	}

	event := domain.Event{
		Type: domain.EventChannelRoster,
		Payload: domain.RosterPayload{
			ChannelID: id,
			Roster:    ch.roster(),
		},
	}
	ch.each(func(member *Session) {
		member.send(event)
	})
}

func (r *RadioService) broadcastPTTLocked(sess *Session, state string) {
	ch, ok := r.channels[sess.Primary]
	if !ok {
		return
	}

	event := domain.Event{
		Type: domain.EventPTTState,
		Payload: domain.PTTStatePayload{
			User:      sess.User.Username,
			State:     state,
			ChannelID: sess.Primary,
		},
	}
	ch.each(func(member *Session) {
		member.send(event)
	})
}

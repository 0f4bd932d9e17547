// Package signal hosts the WebSocket endpoint of the radio relay: it
// authenticates connections against the identity service, then feeds the
// connection's events into the radio service.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/ports"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/services"
	"github.com/Unknownaod/shoreroleplay-radio/pkg/tracing"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Options bounds the transport behavior of the server.
type Options struct {
	AuthTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBufferSize int
	MaxMessageSize int64
}

type WebSocketServer struct {
	radio     *services.RadioService
	identity  ports.IdentityService
	directory ports.ChannelDirectory
	metrics   ports.Metrics
	logger    *zap.SugaredLogger
	opts      Options
	started   time.Time
}

func NewWebSocketServer(radio *services.RadioService, identity ports.IdentityService, directory ports.ChannelDirectory, metrics ports.Metrics, opts Options, logger *zap.SugaredLogger) *WebSocketServer {
	return &WebSocketServer{
		radio:     radio,
		identity:  identity,
		directory: directory,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
		started:   time.Now(),
	}
}

// clientMessage is the inbound wire envelope.
type clientMessage struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

type authPayload struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type channelPayload struct {
	ChannelID string `json:"channelId"`
}

type chunkPayload struct {
	Chunk []byte `json:"chunk"`
}

// HandleWebSocket upgrades the connection, runs the authentication
// handshake and then pumps events into the radio service until disconnect.
func (s *WebSocketServer) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	if s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}

	cl := newClient(conn, s.opts.SendBufferSize, s.opts.WriteTimeout, s.opts.ReadTimeout/2, s.logger)
	go cl.writePump()
	defer cl.close()

	profile := s.authenticate(c.Request, conn, cl)
	if profile == nil {
		return
	}

	sess := s.radio.Register(profile, cl)
	defer s.radio.Disconnect(sess.ID)

	cl.Send(domain.Event{Type: domain.EventAuthSuccess, Payload: domain.AuthSuccessPayload{User: *profile}})
	cl.Send(s.channelsEvent())

	s.readLoop(conn, cl, sess)
}

// authenticate resolves the connection's credentials to a profile, or sends
// auth_failed and returns nil. Credentials come either from query parameters
// on the upgrade request or from the first "auth" message; until validation
// succeeds the connection is not in the registry and any other inbound
// message is ignored.
func (s *WebSocketServer) authenticate(r *http.Request, conn *websocket.Conn, cl *client) *domain.UserProfile {
	creds := authPayload{
		Token:  r.URL.Query().Get("token"),
		UserID: r.URL.Query().Get("userId"),
	}

	if creds.Token == "" && creds.UserID == "" {
		var ok bool
		creds, ok = s.awaitAuthMessage(conn)
		if !ok {
			s.rejectAuth(cl, "no credentials supplied")
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.AuthTimeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "identity.validate")
	if creds.UserID != "" {
		span.SetAttributes(tracing.UserIDKey.String(creds.UserID))
	}
	profile, err := s.identity.Validate(ctx, creds.Token, domain.UserID(creds.UserID))
	if err != nil {
		tracing.RecordError(ctx, err)
		span.End()
		s.rejectAuth(cl, "invalid credentials")
		return nil
	}
	span.End()

	return profile
}

// awaitAuthMessage reads until an auth message arrives or the auth deadline
// expires. Pre-auth messages of any other type are dropped.
func (s *WebSocketServer) awaitAuthMessage(conn *websocket.Conn) (authPayload, bool) {
	conn.SetReadDeadline(time.Now().Add(s.opts.AuthTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return authPayload{}, false
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != domain.EventAuth {
			continue
		}

		var creds authPayload
		if err := json.Unmarshal(msg.Payload, &creds); err != nil {
			return authPayload{}, false
		}
		return creds, true
	}
}

func (s *WebSocketServer) rejectAuth(cl *client, reason string) {
	s.metrics.AuthFailed()
	s.logger.Infow("authentication failed", "reason", reason)
	cl.Send(domain.Event{Type: domain.EventAuthFailed, Payload: domain.AuthFailedPayload{Reason: reason}})
}

func (s *WebSocketServer) readLoop(conn *websocket.Conn, cl *client, sess *services.Session) {
	conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read error", "session_id", sess.ID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debugw("dropping malformed message", "session_id", sess.ID, "error", err)
			continue
		}

		s.handleMessage(cl, sess, msg)
	}
}

func (s *WebSocketServer) handleMessage(cl *client, sess *services.Session, msg clientMessage) {
	switch msg.Type {
	case domain.EventAuth:
		// Already authenticated.

	case domain.EventGetChannels:
		cl.Send(s.channelsEvent())

	case domain.EventJoinChannel:
		var payload channelPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			cl.Send(deniedEvent("invalid join payload"))
			return
		}
		if err := s.radio.Join(sess.ID, domain.ChannelID(payload.ChannelID)); err != nil {
			cl.Send(deniedEvent(deniedReason(err)))
		}

	case domain.EventMonitorChannel:
		var payload channelPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			cl.Send(deniedEvent("invalid monitor payload"))
			return
		}
		if err := s.radio.Monitor(sess.ID, domain.ChannelID(payload.ChannelID)); err != nil {
			cl.Send(deniedEvent(deniedReason(err)))
		}

	case domain.EventUnmonitorChannel:
		var payload channelPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			cl.Send(deniedEvent("invalid unmonitor payload"))
			return
		}
		if err := s.radio.Unmonitor(sess.ID, domain.ChannelID(payload.ChannelID)); err != nil {
			cl.Send(deniedEvent(deniedReason(err)))
		}

	case domain.EventPTTStart:
		if err := s.radio.PTTStart(sess.ID); err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				cl.Send(deniedEvent(deniedReason(err)))
			}
		}

	case domain.EventPTTStop:
		s.radio.PTTStop(sess.ID)

	case domain.EventSignalIn:
		var payload chunkPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			// Audio has no error path; drop.
			return
		}
		s.radio.Relay(sess.ID, payload.Chunk)

	default:
		s.logger.Debugw("ignoring unknown message type", "session_id", sess.ID, "type", msg.Type)
	}
}

func (s *WebSocketServer) channelsEvent() domain.Event {
	return domain.Event{
		Type:    domain.EventChannels,
		Payload: domain.ChannelsPayload{Channels: s.directory.All()},
	}
}

func deniedEvent(reason string) domain.Event {
	return domain.Event{Type: domain.EventDenied, Payload: domain.DeniedPayload{Reason: reason}}
}

// deniedReason maps domain errors to the reason strings clients see.
func deniedReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrChannelNotFound):
		return "channel not found"
	case errors.Is(err, domain.ErrNotStaff):
		return "monitoring requires staff"
	case errors.Is(err, domain.ErrAccessDenied):
		return "access denied"
	case errors.Is(err, domain.ErrRateLimited):
		return "ptt rate limit exceeded"
	default:
		return "request denied"
	}
}

// HealthCheck reports liveness plus basic relay gauges.
func (s *WebSocketServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"sessions":       s.radio.SessionCount(),
		"channels":       s.directory.Size(),
	})
}

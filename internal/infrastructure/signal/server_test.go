package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
	"github.com/Unknownaod/shoreroleplay-radio/internal/core/services"
)

type fakeIdentity struct {
	profiles map[string]*domain.UserProfile
}

func (f *fakeIdentity) Validate(ctx context.Context, token string, userID domain.UserID) (*domain.UserProfile, error) {
	if profile, ok := f.profiles[token]; ok {
		return profile, nil
	}
	return nil, domain.ErrNoProfile
}

type staticDirectory struct {
	channels []domain.ChannelDefinition
}

func (d *staticDirectory) Lookup(id domain.ChannelID) (domain.ChannelDefinition, bool) {
	for _, ch := range d.channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return domain.ChannelDefinition{}, false
}

func (d *staticDirectory) All() []domain.ChannelDefinition { return d.channels }
func (d *staticDirectory) Size() int                       { return len(d.channels) }

type wireEvent struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := &staticDirectory{channels: []domain.ChannelDefinition{
		{ID: "fire-dispatch", Name: "Fire Dispatch", Type: domain.ChannelDepartment, Department: "fire"},
		{ID: "public", Name: "Public", Type: domain.ChannelPublic},
	}}

	identity := &fakeIdentity{profiles: map[string]*domain.UserProfile{
		"tok-fire":  {ID: "u1", Username: "ember", Department: "fire", Roles: []string{"firefighter"}},
		"tok-staff": {ID: "u2", Username: "admin", Roles: []string{"admin"}, Staff: true},
	}}

	log := zap.NewNop().Sugar()
	radio := services.NewRadioService(dir, services.RelayLimits{
		PTTMaxStarts:      10,
		PTTWindow:         10 * time.Second,
		AudioChunksPerSec: 30,
		AudioBucketTTL:    5 * time.Second,
	}, nil, log)

	wsServer := NewWebSocketServer(radio, identity, dir, services.NoopMetrics(), Options{
		AuthTimeout:    2 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   2 * time.Second,
		SendBufferSize: 64,
	}, log)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", wsServer.HandleWebSocket)
	router.GET("/health", wsServer.HealthCheck)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// readUntil skips events until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want domain.EventType) wireEvent {
	t.Helper()
	for i := 0; i < 20; i++ {
		ev := readEvent(t, conn)
		if ev.Type == want {
			return ev
		}
	}
	t.Fatalf("never received %s", want)
	return wireEvent{}
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType domain.EventType, payload interface{}) {
	t.Helper()
	msg := map[string]interface{}{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	require.NoError(t, conn.WriteJSON(msg))
}

func TestHandshake_QueryTokenAuth(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "?token=tok-fire")

	ev := readEvent(t, conn)
	require.Equal(t, domain.EventAuthSuccess, ev.Type)

	var payload domain.AuthSuccessPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "ember", payload.User.Username)

	// The channel list is pushed right after auth.
	ev = readEvent(t, conn)
	require.Equal(t, domain.EventChannels, ev.Type)

	var channels domain.ChannelsPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &channels))
	assert.Len(t, channels.Channels, 2)
}

func TestHandshake_AuthMessage(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "")

	sendMessage(t, conn, domain.EventAuth, map[string]string{"token": "tok-fire"})

	ev := readEvent(t, conn)
	assert.Equal(t, domain.EventAuthSuccess, ev.Type)
}

func TestHandshake_BadTokenRejectedAndClosed(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "?token=bogus")

	ev := readEvent(t, conn)
	require.Equal(t, domain.EventAuthFailed, ev.Type)

	var payload domain.AuthFailedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.NotEmpty(t, payload.Reason)

	// The server closes the connection after auth_failed.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var next wireEvent
	err := conn.ReadJSON(&next)
	assert.Error(t, err)
}

func TestJoinAndRelayFlow(t *testing.T) {
	server := newTestServer(t)

	alice := dial(t, server, "?token=tok-fire")
	readUntil(t, alice, domain.EventChannels)

	sendMessage(t, alice, domain.EventJoinChannel, map[string]string{"channelId": "fire-dispatch"})

	ev := readUntil(t, alice, domain.EventJoined)
	var joined domain.JoinedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &joined))
	assert.Equal(t, "Fire Dispatch", joined.Name)

	ev = readUntil(t, alice, domain.EventChannelRoster)
	var roster domain.RosterPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &roster))
	require.Len(t, roster.Roster, 1)
	assert.Equal(t, "ember", roster.Roster[0].Username)

	// A staff monitor hears the channel without joining it.
	staff := dial(t, server, "?token=tok-staff")
	readUntil(t, staff, domain.EventChannels)
	sendMessage(t, staff, domain.EventMonitorChannel, map[string]string{"channelId": "fire-dispatch"})
	readUntil(t, staff, domain.EventMonitoring)

	sendMessage(t, alice, domain.EventPTTStart, nil)
	ev = readUntil(t, staff, domain.EventPTTState)
	var ptt domain.PTTStatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &ptt))
	assert.Equal(t, "ember", ptt.User)
	assert.Equal(t, domain.PTTStarted, ptt.State)

	sendMessage(t, alice, domain.EventSignalIn, map[string]interface{}{
		"chunk": []byte("opus-frame"),
	})
	ev = readUntil(t, staff, domain.EventSignal)
	var signal domain.SignalPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &signal))
	assert.Equal(t, "ember", signal.From)
	assert.Equal(t, domain.ChannelID("fire-dispatch"), signal.ChannelID)
	assert.Equal(t, []byte("opus-frame"), signal.Chunk)
}

func TestJoin_DeniedForWrongDepartment(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "?token=tok-fire")
	readUntil(t, conn, domain.EventChannels)

	sendMessage(t, conn, domain.EventJoinChannel, map[string]string{"channelId": "missing"})
	ev := readUntil(t, conn, domain.EventDenied)

	var denied domain.DeniedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &denied))
	assert.Equal(t, "channel not found", denied.Reason)
}

func TestMonitor_DeniedForNonStaff(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "?token=tok-fire")
	readUntil(t, conn, domain.EventChannels)

	sendMessage(t, conn, domain.EventMonitorChannel, map[string]string{"channelId": "public"})
	ev := readUntil(t, conn, domain.EventDenied)

	var denied domain.DeniedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &denied))
	assert.Equal(t, "monitoring requires staff", denied.Reason)
}

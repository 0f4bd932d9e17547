package domain

// EventType names a client-facing event on the radio wire protocol.
type EventType string

// Outbound event types.
const (
	EventAuthSuccess   EventType = "auth_success"
	EventAuthFailed    EventType = "auth_failed"
	EventChannels      EventType = "channels"
	EventJoined        EventType = "joined"
	EventDenied        EventType = "denied"
	EventMonitoring    EventType = "monitoring"
	EventChannelRoster EventType = "channel_roster"
	EventPTTState      EventType = "ptt_state"
	EventSignal        EventType = "signal"
)

// Inbound event types.
const (
	EventAuth             EventType = "auth"
	EventGetChannels      EventType = "getChannels"
	EventJoinChannel      EventType = "joinChannel"
	EventMonitorChannel   EventType = "monitorChannel"
	EventUnmonitorChannel EventType = "unmonitorChannel"
	EventPTTStart         EventType = "ptt_start"
	EventPTTStop          EventType = "ptt_stop"
	EventSignalIn         EventType = "signal"
)

// PTT transmission states carried by ptt_state events.
const (
	PTTStarted = "started"
	PTTStopped = "stopped"
)

// Event is a single message delivered to a connected client.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type AuthSuccessPayload struct {
	User UserProfile `json:"user"`
}

type AuthFailedPayload struct {
	Reason string `json:"reason"`
}

type ChannelsPayload struct {
	Channels []ChannelDefinition `json:"channels"`
}

type JoinedPayload struct {
	ID   ChannelID `json:"id"`
	Name string    `json:"name"`
}

type DeniedPayload struct {
	Reason string `json:"reason"`
}

type MonitoringPayload struct {
	ChannelIDs []ChannelID `json:"channelIds"`
}

type RosterPayload struct {
	ChannelID ChannelID     `json:"channelId"`
	Roster    []RosterEntry `json:"roster"`
}

type PTTStatePayload struct {
	User      string    `json:"user"`
	State     string    `json:"state"`
	ChannelID ChannelID `json:"channelId"`
}

type SignalPayload struct {
	From      string    `json:"from"`
	ChannelID ChannelID `json:"channelId"`
	Chunk     []byte    `json:"chunk"`
}

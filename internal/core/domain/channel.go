package domain

type ChannelID string

// ChannelType classifies who may join a channel.
type ChannelType string

const (
	ChannelPublic     ChannelType = "public"
	ChannelDepartment ChannelType = "department"
	ChannelStaff      ChannelType = "staff"
	ChannelCustom     ChannelType = "custom"
)

// ChannelDefinition is one entry of the externally owned channel directory.
// Snapshots are replaced wholesale on refresh and never mutated in place.
type ChannelDefinition struct {
	ID           ChannelID   `json:"id"`
	Name         string      `json:"name"`
	Type         ChannelType `json:"type"`
	Department   string      `json:"department,omitempty"`
	AllowedRoles []string    `json:"allowedRoles,omitempty"`
}

// RosterEntry is one line of a channel roster broadcast.
type RosterEntry struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

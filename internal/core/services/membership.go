package services

import (
	"sort"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
)

// channelMembers holds the delivery sets for one channel: sessions joined as
// primary and staff sessions monitoring. An empty entry is kept in the index
// rather than deleted, which avoids races between last-leave and a
// concurrent join.
type channelMembers struct {
	members  map[string]*Session
	monitors map[string]*Session
}

func newChannelMembers() *channelMembers {
	return &channelMembers{
		members:  make(map[string]*Session),
		monitors: make(map[string]*Session),
	}
}

// roster builds the ordered roster from primary members only; monitors are
// listen-only and do not appear.
func (c *channelMembers) roster() []domain.RosterEntry {
	roster := make([]domain.RosterEntry, 0, len(c.members))
	for _, sess := range c.members {
		roster = append(roster, domain.RosterEntry{
			Username:   sess.User.Username,
			Role:       sess.User.PrimaryRole(),
			Department: sess.User.DisplayDepartment(),
		})
	}
	sort.Slice(roster, func(i, j int) bool {
		return roster[i].Username < roster[j].Username
	})
	return roster
}

// each visits every session in the delivery set exactly once.
func (c *channelMembers) each(fn func(*Session)) {
	for _, sess := range c.members {
		fn(sess)
	}
	for id, sess := range c.monitors {
		if _, alsoMember := c.members[id]; !alsoMember {
			fn(sess)
		}
	}
}

func (c *channelMembers) empty() bool {
	return len(c.members) == 0 && len(c.monitors) == 0
}

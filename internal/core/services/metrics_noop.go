package services

import "github.com/Unknownaod/shoreroleplay-radio/internal/core/ports"

// noopMetrics satisfies ports.Metrics when monitoring is disabled.
type noopMetrics struct{}

// NoopMetrics returns a ports.Metrics implementation that discards
// everything.
func NoopMetrics() ports.Metrics {
	return noopMetrics{}
}

func (noopMetrics) SessionConnected()          {}
func (noopMetrics) SessionDisconnected()       {}
func (noopMetrics) ChannelMembers(string, int) {}
func (noopMetrics) PTTStarted()                {}
func (noopMetrics) PTTDenied()                 {}
func (noopMetrics) AudioRelayed(int)           {}
func (noopMetrics) AudioDropped()              {}
func (noopMetrics) AuthFailed()                {}
func (noopMetrics) DirectoryRefreshed(int)     {}
func (noopMetrics) DirectoryRefreshFailed()    {}

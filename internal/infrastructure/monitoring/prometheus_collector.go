package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports relay instrumentation. It satisfies
// ports.Metrics.
type PrometheusCollector struct {
	sessionsConnected prometheus.Gauge
	channelMembers    *prometheus.GaugeVec
	directorySize     prometheus.Gauge

	pttStartsTotal        prometheus.Counter
	pttDeniedTotal        prometheus.Counter
	audioChunksRelayed    prometheus.Counter
	audioBytesRelayed     prometheus.Counter
	audioChunksDropped    prometheus.Counter
	authFailuresTotal     prometheus.Counter
	directoryRefreshFails prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "radio_sessions_connected",
			Help: "Number of authenticated live sessions",
		}),

		channelMembers: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "radio_channel_members",
			Help: "Number of primary members per channel",
		}, []string{"channel_id"}),

		directorySize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "radio_directory_channels",
			Help: "Number of channels in the current directory snapshot",
		}),

		pttStartsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radio_ptt_starts_total",
			Help: "Total admitted PTT start events",
		}),

		pttDeniedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radio_ptt_denied_total",
			Help: "Total PTT starts denied by the sliding-window rate limit",
		}),

		audioChunksRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radio_audio_chunks_relayed_total",
			Help: "Total audio chunks relayed to channel members",
		}),

		audioBytesRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radio_audio_bytes_relayed_total",
			Help: "Total audio payload bytes relayed",
		}),

		audioChunksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radio_audio_chunks_dropped_total",
			Help: "Total audio chunks dropped by the per-second ceiling",
		}),

		authFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radio_auth_failures_total",
			Help: "Total connections rejected by identity validation",
		}),

		directoryRefreshFails: promauto.NewCounter(prometheus.CounterOpts{
			Name: "radio_directory_refresh_failures_total",
			Help: "Total failed channel directory refreshes",
		}),
	}
}

func (c *PrometheusCollector) SessionConnected()    { c.sessionsConnected.Inc() }
func (c *PrometheusCollector) SessionDisconnected() { c.sessionsConnected.Dec() }

func (c *PrometheusCollector) ChannelMembers(channelID string, count int) {
	c.channelMembers.WithLabelValues(channelID).Set(float64(count))
}

func (c *PrometheusCollector) PTTStarted() { c.pttStartsTotal.Inc() }
func (c *PrometheusCollector) PTTDenied()  { c.pttDeniedTotal.Inc() }

func (c *PrometheusCollector) AudioRelayed(bytes int) {
	c.audioChunksRelayed.Inc()
	c.audioBytesRelayed.Add(float64(bytes))
}

func (c *PrometheusCollector) AudioDropped() { c.audioChunksDropped.Inc() }
func (c *PrometheusCollector) AuthFailed()   { c.authFailuresTotal.Inc() }

func (c *PrometheusCollector) DirectoryRefreshed(size int) {
	c.directorySize.Set(float64(size))
}

func (c *PrometheusCollector) DirectoryRefreshFailed() { c.directoryRefreshFails.Inc() }

// Package metrics exposes Prometheus instrumentation for the game server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "blockwire").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures Config.
type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

// Metrics holds every collector the server updates.
type Metrics struct {
	Sessions      prometheus.Gauge
	Players       prometheus.Gauge
	Phase         *prometheus.GaugeVec
	Messages      *prometheus.CounterVec
	Relayed       *prometheus.CounterVec
	Drops         *prometheus.CounterVec
	DecodeErrors  prometheus.Counter
	SendErrors    prometheus.Counter
	GamesStarted  prometheus.Counter
	GameDuration  prometheus.Histogram
	BytesReceived prometheus.Counter
	BytesSent     prometheus.Counter
}

// New registers the collectors with the configured registry.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "blockwire",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)
	ns, labels := cfg.Namespace, cfg.ConstLabels

	return &Metrics{
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "sessions",
			Help: "Number of connected sessions, joined or not",
		}),
		Players: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "players",
			Help: "Number of sessions that completed the join handshake",
		}),
		Phase: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "phase",
			Help: "1 for the current server phase, 0 otherwise",
		}, []string{"phase"}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "messages_received_total",
			Help: "Messages received from clients by kind",
		}, []string{"kind"}),
		Relayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "messages_relayed_total",
			Help: "Gameplay messages forwarded to other players by kind",
		}, []string{"kind"}),
		Drops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "session_drops_total",
			Help: "Sessions dropped by the server by reason",
		}, []string{"reason"}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "decode_errors_total",
			Help: "Messages ignored because their body could not be decoded",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "send_errors_total",
			Help: "Payloads the server failed to queue for a client",
		}),
		GamesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "games_started_total",
			Help: "Games that reached the playing phase",
		}),
		GameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, ConstLabels: labels,
			Name:    "game_duration_seconds",
			Help:    "Time from start to game over",
			Buckets: []float64{15, 30, 60, 120, 300, 600, 1200},
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "frame_bytes_received_total",
			Help: "Frame payload bytes received from clients",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, ConstLabels: labels,
			Name: "frame_bytes_sent_total",
			Help: "Frame payload bytes queued for clients",
		}),
	}
}

// SetSessions records the session and joined-player counts.
func (m *Metrics) SetSessions(sessions, players int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(sessions))
	m.Players.Set(float64(players))
}

// SetPhase marks phase as current among all of phases.
func (m *Metrics) SetPhase(phase string, phases ...string) {
	if m == nil {
		return
	}
	for _, p := range phases {
		m.Phase.WithLabelValues(p).Set(0)
	}
	m.Phase.WithLabelValues(phase).Set(1)
}

func (m *Metrics) ObserveMessage(kind string, size int) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(kind).Inc()
	m.BytesReceived.Add(float64(size))
}

func (m *Metrics) ObserveRelay(kind string, recipients, size int) {
	if m == nil || recipients == 0 {
		return
	}
	m.Relayed.WithLabelValues(kind).Add(float64(recipients))
	m.BytesSent.Add(float64(recipients * size))
}

func (m *Metrics) ObserveSend(size int) {
	if m == nil {
		return
	}
	m.BytesSent.Add(float64(size))
}

func (m *Metrics) ObserveDrop(reason string) {
	if m == nil {
		return
	}
	m.Drops.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveDecodeError() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}

func (m *Metrics) ObserveSendError() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}

func (m *Metrics) ObserveGameStart() {
	if m == nil {
		return
	}
	m.GamesStarted.Inc()
}

func (m *Metrics) ObserveGameOver(d time.Duration) {
	if m == nil {
		return
	}
	m.GameDuration.Observe(d.Seconds())
}

// Package monitor streams attributed frame events to websocket subscribers.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"meetmedia/pkg/socket"
	"meetmedia/track"
)

// Event describes one attributed frame.
type Event struct {
	Kind                  track.Kind `json:"kind"`
	MID                   string     `json:"mid"`
	ContributingSource    uint32     `json:"csrc"`
	SynchronizationSource uint32     `json:"ssrc"`
	LoudestSpeaker        bool       `json:"loudest,omitempty"`
	Time                  time.Time  `json:"time"`
}

// Gauge counts connected subscribers.
type Gauge interface {
	IncrementSubscribers()
	DecrementSubscribers()
}

type nopGauge struct{}

func (nopGauge) IncrementSubscribers() {}
func (nopGauge) DecrementSubscribers() {}

type subscriber struct {
	id      string
	queue   chan Event
	dropped atomic.Uint64
}

// Hub fans events out to subscribers. Publishing never blocks: events for a
// subscriber whose queue is full are dropped.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	config      Config
	gauge       Gauge
	logger      zerolog.Logger
	httpServer  *http.Server
}

// Option configures a Hub.
type Option func(*Hub)

// WithGauge sets the gauge counting subscribers.
func WithGauge(g Gauge) Option {
	return func(h *Hub) {
		h.gauge = g
	}
}

// New creates a new Hub.
func New(config Config, opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[string]*subscriber),
		config:      config,
		gauge:       nopGauge{},
		logger:      log.Logger.With().Str("module", "monitor").Logger(),
	}
	if h.config.QueueSize < 1 {
		h.config.QueueSize = DefaultQueueSize
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnAudio publishes an audio frame event.
func (h *Hub) OnAudio(mid string, f track.AudioFrame) {
	h.Publish(Event{
		Kind:                  track.Audio,
		MID:                   mid,
		ContributingSource:    f.ContributingSource,
		SynchronizationSource: f.SynchronizationSource,
		LoudestSpeaker:        f.IsFromLoudestSpeaker,
		Time:                  time.Now(),
	})
}

// OnVideo publishes a video frame event.
func (h *Hub) OnVideo(mid string, f track.VideoFrame) {
	h.Publish(Event{
		Kind:                  track.Video,
		MID:                   mid,
		ContributingSource:    f.ContributingSource,
		SynchronizationSource: f.SynchronizationSource,
		Time:                  time.Now(),
	})
}

// Publish queues e for every subscriber.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subscribers {
		select {
		case s.queue <- e:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request to a websocket and serves it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := socket.New(w, r)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to create WebSocket")
		return
	}
	h.Serve(ws)
}

// Serve writes events to sock until it fails or the peer goes away.
func (h *Hub) Serve(sock socket.Socket) {
	sub := &subscriber{
		id:    shortuuid.New(),
		queue: make(chan Event, h.config.QueueSize),
	}
	h.add(sub)
	defer func() {
		h.remove(sub.id)
		if err := sock.Close(); err != nil {
			h.logger.Debug().Err(err).Str("subscriber", sub.id).Msg("Failed to close WebSocket")
		}
		h.logger.Info().Str("subscriber", sub.id).Uint64("dropped", sub.dropped.Load()).Msg("Subscriber left")
	}()

	// Subscribers only listen; reading detects when they leave.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var discard json.RawMessage
		for {
			if err := sock.ReadJSON(&discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case e := <-sub.queue:
			if err := sock.WriteJSON(e); err != nil {
				h.logger.Warn().Err(err).Str("subscriber", sub.id).Msg("Failed to send event")
				return
			}
		}
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subscribers[s.id] = s
	h.mu.Unlock()
	h.gauge.IncrementSubscribers()
	h.logger.Info().Str("subscriber", s.id).Msg("Subscriber joined")
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
	h.gauge.DecrementSubscribers()
}

// Start serves the websocket endpoint in the background.
func (h *Hub) Start() {
	if h.config.Port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(h.config.Path, h)
	h.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", h.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		h.logger.Info().Int("port", h.config.Port).Str("path", h.config.Path).Msg("Starting monitor server")
		if err := h.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error().Err(err).Msg("Error starting monitor server")
		}
	}()
}

// Stop closes the monitor server.
func (h *Hub) Stop() error {
	if h.httpServer != nil {
		return h.httpServer.Close()
	}
	return nil
}

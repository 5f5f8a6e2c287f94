// Package rtpsource keeps track of the RTP sources seen on received streams
// and groups received packets into frames.
package rtpsource

import (
	"slices"
	"sync"
	"time"

	"github.com/pion/rtp"

	"meetmedia/track"
)

// SourceTimeout is how long a source stays listed after its last packet.
const SourceTimeout = 10 * time.Second

// Tracker records the contributing and synchronization sources of the packets
// received on one stream. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	timeout time.Duration
	// sources is ordered from most to least recent and replaced, never
	// modified in place, so snapshots can share it.
	sources []track.Source
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock sets the clock used to expire sources.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithTimeout sets how long a source stays listed after its last packet.
func WithTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.timeout = d
	}
}

// NewTracker creates a new Tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		now:     time.Now,
		timeout: SourceTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe records the sources of a packet received at the given time. The
// CSRCs of the packet come first, in header order, then its SSRC.
func (t *Tracker) Observe(h *rtp.Header, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := make([]track.Source, 0, len(h.CSRC)+1+len(t.sources))
	for _, id := range h.CSRC {
		fresh = appendUnique(fresh, track.Source{Type: track.Contributing, ID: id, Timestamp: at})
	}
	fresh = appendUnique(fresh, track.Source{Type: track.Synchronization, ID: h.SSRC, Timestamp: at})
	n := len(fresh)

	for _, s := range t.sources {
		if at.Sub(s.Timestamp) > t.timeout || contains(fresh[:n], s) {
			continue
		}
		fresh = append(fresh, s)
	}
	t.sources = fresh
}

// Sources returns the sources that are not expired, most recent first.
func (t *Tracker) Sources() []track.Source {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	live := slices.IndexFunc(t.sources, func(s track.Source) bool {
		return now.Sub(s.Timestamp) > t.timeout
	})
	if live < 0 {
		live = len(t.sources)
	}
	return slices.Clone(t.sources[:live])
}

func appendUnique(sources []track.Source, s track.Source) []track.Source {
	if contains(sources, s) {
		return sources
	}
	return append(sources, s)
}

func contains(sources []track.Source, s track.Source) bool {
	return slices.ContainsFunc(sources, func(o track.Source) bool {
		return o.Type == s.Type && o.ID == s.ID
	})
}

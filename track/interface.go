// Package track attributes received audio and video frames to the remote
// sources that produced them.
package track

import "time"

// LoudestSpeakerCSRC is the reserved contributing source marking audio that
// belongs to whoever is currently the most active speaker. It never
// identifies a participant.
const LoudestSpeakerCSRC uint32 = 0xFFFFFFFF

// SourceType distinguishes contributing and synchronization sources.
type SourceType int

// Below are the kinds of RTP sources.
const (
	Contributing SourceType = iota
	Synchronization
)

func (t SourceType) String() string {
	switch t {
	case Contributing:
		return "CSRC"
	case Synchronization:
		return "SSRC"
	default:
		return "UNKNOWN"
	}
}

// Source is one entry of a track's source list.
type Source struct {
	Type      SourceType
	ID        uint32
	Timestamp time.Time
}

// SourceProvider exposes the sources currently known for a track. Sources
// returns a snapshot ordered from most to least recently active; callers may
// keep the slice, the provider never mutates it afterwards.
//
//go:generate mockgen -destination=mock_source.go -package=track . SourceProvider
type SourceProvider interface {
	Sources() []Source
}

// DropReason tells why a frame was not emitted.
type DropReason string

// Below are the reasons for dropping a frame.
const (
	DropUnsupportedFormat DropReason = "unsupported_format"
	DropShortPayload      DropReason = "short_payload"
	DropMissingCSRC       DropReason = "missing_csrc"
	DropMissingSSRC       DropReason = "missing_ssrc"
	DropMissingPacketInfo DropReason = "missing_packet_info"
)

// Kind is the media kind of a track.
type Kind string

// Below are the media kinds.
const (
	Audio Kind = "audio"
	Video Kind = "video"
)

// Observer is told about every frame the resolver emits or drops. It is
// called on the media thread and must not block.
type Observer interface {
	FrameAttributed(kind Kind)
	FrameDropped(kind Kind, reason DropReason)
}

type nopObserver struct{}

func (nopObserver) FrameAttributed(Kind)          {}
func (nopObserver) FrameDropped(Kind, DropReason) {}

package rtpsource

import (
	"slices"
	"time"

	"github.com/pion/rtp"

	"meetmedia/track"
)

// Frame is the set of RTP packets sharing one timestamp.
type Frame struct {
	Timestamp uint32
	Payloads  [][]byte
	infos     []track.PacketInfo
}

// PacketInfos returns the packets of the frame in arrival order.
func (f *Frame) PacketInfos() []track.PacketInfo {
	return f.infos
}

// Assembler groups consecutive RTP packets of a stream into frames. A frame
// is emitted when a packet carries the marker bit or when a packet with a
// new timestamp arrives. It is not safe for concurrent use.
type Assembler struct {
	onFrame func(*Frame)
	pending *Frame
}

// NewAssembler creates an Assembler calling onFrame for every frame.
func NewAssembler(onFrame func(*Frame)) *Assembler {
	return &Assembler{onFrame: onFrame}
}

// Push adds a packet received at the given time.
func (a *Assembler) Push(p *rtp.Packet, at time.Time) {
	if a.pending != nil && a.pending.Timestamp != p.Timestamp {
		a.Flush()
	}
	if a.pending == nil {
		a.pending = &Frame{Timestamp: p.Timestamp}
	}
	a.pending.Payloads = append(a.pending.Payloads, p.Payload)
	a.pending.infos = append(a.pending.infos, track.PacketInfo{
		SSRC:         p.SSRC,
		CSRCs:        slices.Clone(p.CSRC),
		RTPTimestamp: p.Timestamp,
		ReceiveTime:  at,
	})
	if p.Marker {
		a.Flush()
	}
}

// Flush emits the pending frame, if any.
func (a *Assembler) Flush() {
	if a.pending == nil {
		return
	}
	f := a.pending
	a.pending = nil
	a.onFrame(f)
}

package track

import (
	"time"

	"github.com/rs/zerolog"
)

// PacketInfo describes one RTP packet a video frame was assembled from.
type PacketInfo struct {
	SSRC         uint32
	CSRCs        []uint32
	RTPTimestamp uint32
	ReceiveTime  time.Time
}

// DecodedFrame is a video frame handed over by the media engine.
type DecodedFrame interface {
	// PacketInfos returns the packets of the frame in arrival order.
	PacketInfos() []PacketInfo
}

// VideoFrame is a video frame attributed to its sources. Frame is owned by
// the media engine and must not be kept after the callback returns.
type VideoFrame struct {
	Frame                 DecodedFrame
	ContributingSource    uint32
	SynchronizationSource uint32
}

// VideoTrack resolves the sources of the video frames of one remote track.
type VideoTrack struct {
	mid      string
	callback func(VideoFrame)
	logger   zerolog.Logger
	observer Observer
}

// NewVideoTrack creates a VideoTrack delivering frames to callback.
func NewVideoTrack(mid string, callback func(VideoFrame), opts ...Option) *VideoTrack {
	o := newOptions(mid, opts)
	return &VideoTrack{
		mid:      mid,
		callback: callback,
		logger:   o.logger,
		observer: o.observer,
	}
}

// OnFrame receives one video frame and forwards it with the sources of its
// first packet.
func (t *VideoTrack) OnFrame(frame DecodedFrame) {
	infos := frame.PacketInfos()
	if len(infos) == 0 {
		t.logger.Error().Msg("VideoFrame is missing packet infos")
		t.observer.FrameDropped(Video, DropMissingPacketInfo)
		return
	}
	first := infos[0]
	if len(first.CSRCs) == 0 {
		t.logger.Error().Msg("VideoFrame is missing CSRC")
		t.observer.FrameDropped(Video, DropMissingCSRC)
		return
	}

	// Only one CSRC is expected per video frame.
	t.callback(VideoFrame{
		Frame:                 frame,
		ContributingSource:    first.CSRCs[0],
		SynchronizationSource: first.SSRC,
	})
	t.observer.FrameAttributed(Video)
}

// MID returns the media id of the track.
func (t *VideoTrack) MID() string {
	return t.mid
}

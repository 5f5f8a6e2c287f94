// Package session joins a conference as a receive-only peer and routes the
// remote media to the track source resolvers.
package session

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"meetmedia/connector"
)

// Joiner exchanges the local offer for the conference's answer.
//
//go:generate mockgen -destination=mock_joiner.go -package=session . Joiner
type Joiner interface {
	ConnectActiveConference(
		ctx context.Context, joinEndpoint, conferenceID, accessToken, sdpOffer string,
	) (connector.Result, error)
}

// PCM is 16-bit native-endian interleaved audio produced by a decoder.
type PCM struct {
	Data             []byte
	SampleRate       int
	NumberOfChannels int
	NumberOfFrames   int
}

// AudioDecoder turns RTP audio packets into PCM. It returns false while it
// has no complete frame to emit.
type AudioDecoder interface {
	Decode(p *rtp.Packet) (PCM, bool, error)
}

// DecoderFactory creates the AudioDecoder of a remote track.
type DecoderFactory func(codec webrtc.RTPCodecParameters) (AudioDecoder, error)

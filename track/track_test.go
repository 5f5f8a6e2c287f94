package track_test

import (
	"encoding/binary"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetmedia/track"
)

func csrc(id uint32) track.Source {
	return track.Source{Type: track.Contributing, ID: id}
}

func ssrc(id uint32) track.Source {
	return track.Source{Type: track.Synchronization, ID: id}
}

// pcmBytes encodes samples in native (little-endian on test hosts) order.
func pcmBytes(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.NativeEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

type countingObserver struct {
	attributed map[track.Kind]int
	dropped    map[track.DropReason]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		attributed: map[track.Kind]int{},
		dropped:    map[track.DropReason]int{},
	}
}

func (o *countingObserver) FrameAttributed(kind track.Kind) {
	o.attributed[kind]++
}

func (o *countingObserver) FrameDropped(_ track.Kind, reason track.DropReason) {
	o.dropped[reason]++
}

func TestAudioTrackResolvesSources(t *testing.T) {
	tests := []struct {
		name        string
		sources     []track.Source
		wantEmit    bool
		wantLoudest bool
		wantCSRC    uint32
		wantSSRC    uint32
	}{
		{
			name:        "given loudest marker first when resolved then skip it and flag loudest",
			sources:     []track.Source{csrc(track.LoudestSpeakerCSRC), csrc(42), ssrc(7)},
			wantEmit:    true,
			wantLoudest: true,
			wantCSRC:    42,
			wantSSRC:    7,
		},
		{
			name:     "given several sources when resolved then take the most recent of each type",
			sources:  []track.Source{ssrc(8), csrc(3), ssrc(7), csrc(4)},
			wantEmit: true,
			wantCSRC: 3,
			wantSSRC: 8,
		},
		{
			name:        "given loudest marker after real csrc when resolved then still flag loudest",
			sources:     []track.Source{csrc(5), ssrc(1), csrc(track.LoudestSpeakerCSRC)},
			wantEmit:    true,
			wantLoudest: true,
			wantCSRC:    5,
			wantSSRC:    1,
		},
		{
			name:    "given no contributing sources when resolved then emit nothing",
			sources: []track.Source{ssrc(7)},
		},
		{
			name:    "given only loudest marker when resolved then emit nothing",
			sources: []track.Source{csrc(track.LoudestSpeakerCSRC), ssrc(7)},
		},
		{
			name:    "given no synchronization source when resolved then emit nothing",
			sources: []track.Source{csrc(42)},
		},
		{
			name: "given empty snapshot when resolved then emit nothing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := track.NewMockSourceProvider(ctrl)
			provider.EXPECT().Sources().Return(tt.sources).Times(1)

			var frames []track.AudioFrame
			at := track.NewAudioTrack("0", provider, func(f track.AudioFrame) {
				frames = append(frames, f)
			})
			at.OnData(pcmBytes(1, 2, 3, 4), 16, 48000, 2, 2, nil)

			if !tt.wantEmit {
				assert.Empty(t, frames)
				return
			}
			require.Len(t, frames, 1)
			assert.Equal(t, tt.wantLoudest, frames[0].IsFromLoudestSpeaker)
			assert.Equal(t, tt.wantCSRC, frames[0].ContributingSource)
			assert.Equal(t, tt.wantSSRC, frames[0].SynchronizationSource)
		})
	}
}

func TestAudioTrackBuildsFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := track.NewMockSourceProvider(ctrl)
	provider.EXPECT().Sources().Return([]track.Source{csrc(42), ssrc(7)}).Times(1)

	var got track.AudioFrame
	calls := 0
	at := track.NewAudioTrack("1", provider, func(f track.AudioFrame) {
		calls++
		got = f
		got.PCM16 = append([]int16(nil), f.PCM16...)
	})
	ts := int64(1234)
	at.OnData(pcmBytes(10, -20, 30, -40, 50, -60), 16, 16000, 2, 3, &ts)

	require.Equal(t, 1, calls)
	assert.Equal(t, []int16{10, -20, 30, -40, 50, -60}, got.PCM16)
	assert.Equal(t, 16, got.BitsPerSample)
	assert.Equal(t, 16000, got.SampleRate)
	assert.Equal(t, 2, got.NumberOfChannels)
	assert.Equal(t, 3, got.NumberOfFrames)
	require.NotNil(t, got.CaptureTimestampMs)
	assert.Equal(t, int64(1234), *got.CaptureTimestampMs)
	assert.Equal(t, "1", at.MID())
}

func TestAudioTrackDropsUnsupportedBitsPerSample(t *testing.T) {
	for _, bits := range []int{8, 24, 32, 0} {
		ctrl := gomock.NewController(t)
		provider := track.NewMockSourceProvider(ctrl)
		provider.EXPECT().Sources().Return([]track.Source{csrc(42), ssrc(7)}).AnyTimes()
		obs := newCountingObserver()

		called := false
		at := track.NewAudioTrack("0", provider, func(track.AudioFrame) { called = true }, track.WithObserver(obs))
		at.OnData(pcmBytes(1, 2), bits, 48000, 1, 2, nil)

		assert.False(t, called, "bits=%d", bits)
		assert.Equal(t, 1, obs.dropped[track.DropUnsupportedFormat], "bits=%d", bits)
	}
}

func TestAudioTrackDropsShortPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := track.NewMockSourceProvider(ctrl)
	provider.EXPECT().Sources().Return([]track.Source{csrc(42), ssrc(7)}).Times(1)
	obs := newCountingObserver()

	called := false
	at := track.NewAudioTrack("0", provider, func(track.AudioFrame) { called = true }, track.WithObserver(obs))
	at.OnData(pcmBytes(1, 2, 3), 16, 48000, 2, 2, nil)

	assert.False(t, called)
	assert.Equal(t, 1, obs.dropped[track.DropShortPayload])
}

func TestAudioTrackReportsMissingSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := track.NewMockSourceProvider(ctrl)
	gomock.InOrder(
		provider.EXPECT().Sources().Return(nil),
		provider.EXPECT().Sources().Return([]track.Source{csrc(3)}),
		provider.EXPECT().Sources().Return([]track.Source{csrc(3), ssrc(4)}),
	)
	obs := newCountingObserver()

	at := track.NewAudioTrack("0", provider, func(track.AudioFrame) {}, track.WithObserver(obs))
	for i := 0; i < 3; i++ {
		at.OnData(pcmBytes(1, 2), 16, 48000, 1, 2, nil)
	}

	assert.Equal(t, 1, obs.dropped[track.DropMissingCSRC])
	assert.Equal(t, 1, obs.dropped[track.DropMissingSSRC])
	assert.Equal(t, 1, obs.attributed[track.Audio])
}

type fakeFrame struct {
	infos []track.PacketInfo
}

func (f *fakeFrame) PacketInfos() []track.PacketInfo {
	return f.infos
}

func TestVideoTrackOnFrame(t *testing.T) {
	tests := []struct {
		name       string
		infos      []track.PacketInfo
		wantEmit   bool
		wantCSRC   uint32
		wantSSRC   uint32
		wantReason track.DropReason
	}{
		{
			name:     "given first packet with csrcs when resolved then take first csrc and ssrc",
			infos:    []track.PacketInfo{{SSRC: 9, CSRCs: []uint32{5, 6}}},
			wantEmit: true,
			wantCSRC: 5,
			wantSSRC: 9,
		},
		{
			name: "given several packets when resolved then use the first one",
			infos: []track.PacketInfo{
				{SSRC: 9, CSRCs: []uint32{5}},
				{SSRC: 10, CSRCs: []uint32{11}},
			},
			wantEmit: true,
			wantCSRC: 5,
			wantSSRC: 9,
		},
		{
			name:       "given no packet infos when resolved then drop",
			wantReason: track.DropMissingPacketInfo,
		},
		{
			name: "given first packet without csrc when resolved then drop",
			infos: []track.PacketInfo{
				{SSRC: 9},
				{SSRC: 9, CSRCs: []uint32{5}},
			},
			wantReason: track.DropMissingCSRC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := newCountingObserver()
			var frames []track.VideoFrame
			vt := track.NewVideoTrack("2", func(f track.VideoFrame) {
				frames = append(frames, f)
			}, track.WithObserver(obs))

			in := &fakeFrame{infos: tt.infos}
			vt.OnFrame(in)

			if !tt.wantEmit {
				assert.Empty(t, frames)
				assert.Equal(t, 1, obs.dropped[tt.wantReason])
				return
			}
			require.Len(t, frames, 1)
			assert.Same(t, in, frames[0].Frame)
			assert.Equal(t, tt.wantCSRC, frames[0].ContributingSource)
			assert.Equal(t, tt.wantSSRC, frames[0].SynchronizationSource)
			assert.Equal(t, 1, obs.attributed[track.Video])
		})
	}
}

func TestSourceTypeString(t *testing.T) {
	assert.Equal(t, "CSRC", track.Contributing.String())
	assert.Equal(t, "SSRC", track.Synchronization.String())
	assert.Equal(t, "UNKNOWN", track.SourceType(7).String())
}

package track

import (
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const pcmBitsPerSample = 16

// AudioFrame is a PCM audio frame attributed to its sources.
//
// PCM16 is borrowed from the media engine and is only valid during the
// callback that receives the frame. Copy it to keep it.
type AudioFrame struct {
	PCM16                 []int16
	BitsPerSample         int
	SampleRate            int
	NumberOfChannels      int
	NumberOfFrames        int
	CaptureTimestampMs    *int64
	IsFromLoudestSpeaker  bool
	ContributingSource    uint32
	SynchronizationSource uint32
}

// AudioTrack resolves the sources of the audio frames of one remote track.
type AudioTrack struct {
	mid      string
	sources  SourceProvider
	callback func(AudioFrame)
	logger   zerolog.Logger
	observer Observer
}

// Option configures a track.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	observer Observer
}

// WithLogger sets the logger of the track.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver sets the observer told about emitted and dropped frames.
func WithObserver(ob Observer) Option {
	return func(o *options) {
		o.observer = ob
	}
}

func newOptions(mid string, opts []Option) options {
	o := options{
		logger:   log.Logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With().Str("module", "track").Str("mid", mid).Logger()
	return o
}

// NewAudioTrack creates an AudioTrack delivering frames to callback.
func NewAudioTrack(mid string, sources SourceProvider, callback func(AudioFrame), opts ...Option) *AudioTrack {
	o := newOptions(mid, opts)
	return &AudioTrack{
		mid:      mid,
		sources:  sources,
		callback: callback,
		logger:   o.logger,
		observer: o.observer,
	}
}

// OnData receives one buffer of decoded audio. The callback runs
// synchronously and only when both a contributing and a synchronization
// source are known for the track.
func (t *AudioTrack) OnData(
	data []byte, bitsPerSample, sampleRate, numberOfChannels, numberOfFrames int, captureTimestampMs *int64,
) {
	if bitsPerSample != pcmBitsPerSample {
		t.logger.Error().Int("bits_per_sample", bitsPerSample).Msg("Unsupported bits per sample. Expected 16.")
		t.observer.FrameDropped(Audio, DropUnsupportedFormat)
		return
	}
	if numberOfChannels < 0 || numberOfFrames < 0 {
		t.logger.Error().Int("channels", numberOfChannels).Int("frames", numberOfFrames).Msg("Invalid audio layout")
		t.observer.FrameDropped(Audio, DropUnsupportedFormat)
		return
	}

	csrc, ssrc, loudest, hasCSRC, hasSSRC := resolveAudioSources(t.sources.Sources())
	if !hasCSRC || !hasSSRC {
		// Silent frames arrive without sources before real audio flows.
		if !hasCSRC {
			t.logger.Trace().Msg("AudioFrame is missing CSRC")
		}
		if !hasSSRC {
			t.logger.Trace().Msg("AudioFrame is missing SSRC")
		}
		if !hasCSRC {
			t.observer.FrameDropped(Audio, DropMissingCSRC)
		} else {
			t.observer.FrameDropped(Audio, DropMissingSSRC)
		}
		return
	}

	samples := numberOfChannels * numberOfFrames
	if len(data) < samples*2 {
		t.logger.Error().Int("bytes", len(data)).Int("samples", samples).Msg("Audio buffer shorter than its layout")
		t.observer.FrameDropped(Audio, DropShortPayload)
		return
	}

	t.callback(AudioFrame{
		PCM16:                 pcm16(data, samples),
		BitsPerSample:         bitsPerSample,
		SampleRate:            sampleRate,
		NumberOfChannels:      numberOfChannels,
		NumberOfFrames:        numberOfFrames,
		CaptureTimestampMs:    captureTimestampMs,
		IsFromLoudestSpeaker:  loudest,
		ContributingSource:    csrc,
		SynchronizationSource: ssrc,
	})
	t.observer.FrameAttributed(Audio)
}

// resolveAudioSources picks the most recent CSRC other than the loudest
// speaker marker and the most recent SSRC in one pass over sources, which are
// ordered from most to least recent.
func resolveAudioSources(sources []Source) (csrc, ssrc uint32, loudest, hasCSRC, hasSSRC bool) {
	for _, s := range sources {
		switch s.Type {
		case Contributing:
			if s.ID == LoudestSpeakerCSRC {
				loudest = true
			} else if !hasCSRC {
				csrc, hasCSRC = s.ID, true
			}
		case Synchronization:
			if !hasSSRC {
				ssrc, hasSSRC = s.ID, true
			}
		}
	}
	return csrc, ssrc, loudest, hasCSRC, hasSSRC
}

// pcm16 views the first n native-endian 16-bit samples of data without
// copying.
func pcm16(data []byte, n int) []int16 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(unsafe.SliceData(data))), n)
}

// MID returns the media id of the track.
func (t *AudioTrack) MID() string {
	return t.mid
}

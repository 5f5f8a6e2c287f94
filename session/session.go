package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"meetmedia/rtpsource"
	"meetmedia/track"
)

// ErrAlreadyConnected is returned when Connect is called twice.
var ErrAlreadyConnected = errors.New("session already connected")

// Session is one receive-only peer connection to a conference.
type Session struct {
	config  Config
	joiner  Joiner
	api     *webrtc.API
	sources *rtpsource.Factory

	onAudio    func(mid string, f track.AudioFrame)
	onVideo    func(mid string, f track.VideoFrame)
	newDecoder DecoderFactory
	observer   track.Observer
	logger     zerolog.Logger

	mu   sync.Mutex
	conn *webrtc.PeerConnection
	wg   sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithAudioHandler sets the callback receiving attributed audio frames.
func WithAudioHandler(fn func(mid string, f track.AudioFrame)) Option {
	return func(s *Session) {
		s.onAudio = fn
	}
}

// WithVideoHandler sets the callback receiving attributed video frames.
func WithVideoHandler(fn func(mid string, f track.VideoFrame)) Option {
	return func(s *Session) {
		s.onVideo = fn
	}
}

// WithAudioDecoder sets the factory of audio decoders. Without one, audio
// packets only refresh the source lists.
func WithAudioDecoder(fn DecoderFactory) Option {
	return func(s *Session) {
		s.newDecoder = fn
	}
}

// WithObserver sets the observer passed to every track.
func WithObserver(ob track.Observer) Option {
	return func(s *Session) {
		s.observer = ob
	}
}

// WithLogger sets the logger of the session.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New creates a Session. Nothing is negotiated until Connect.
func New(config Config, joiner Joiner, opts ...Option) (*Session, error) {
	s := &Session{
		config:  config,
		joiner:  joiner,
		sources: rtpsource.NewFactory(),
		onAudio: func(string, track.AudioFrame) {},
		onVideo: func(string, track.VideoFrame) {},
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("module", "session").Str("conference", config.ConferenceID).Logger()

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("failed to register codecs: %w", err)
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("failed to register interceptors: %w", err)
	}
	ir.Add(s.sources)

	se := webrtc.SettingEngine{}
	if err := config.setPortRange(&se); err != nil {
		return nil, err
	}

	s.api = webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
		webrtc.WithSettingEngine(se),
	)
	return s, nil
}

// Connect offers the receive-only transceivers to the conference and applies
// its answer. A transport failure is returned wrapped; a failure classified
// by the server is returned as a *status.Error.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return ErrAlreadyConnected
	}

	conn, err := s.api.NewPeerConnection(s.config.webrtcConfig())
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}
	if err = s.negotiate(ctx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			s.logger.Warn().Err(closeErr).Msg("Failed to close peer connection")
		}
		return err
	}
	s.conn = conn
	return nil
}

func (s *Session) negotiate(ctx context.Context, conn *webrtc.PeerConnection) error {
	if err := addRecvOnly(conn, webrtc.RTPCodecTypeAudio, s.config.AudioTracks); err != nil {
		return err
	}
	if err := addRecvOnly(conn, webrtc.RTPCodecTypeVideo, s.config.VideoTracks); err != nil {
		return err
	}
	conn.OnTrack(func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		s.handleTrack(conn, remote, receiver)
	})
	conn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Info().Str("state", state.String()).Msg("Connection state has changed")
	})

	offer, err := conn.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(conn)
	if err = conn.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	res, err := s.joiner.ConnectActiveConference(
		ctx, s.config.JoinEndpoint, s.config.ConferenceID, s.config.AccessToken, conn.LocalDescription().SDP,
	)
	if err != nil {
		return fmt.Errorf("failed to connect active conference: %w", err)
	}
	if !res.IsAnswer() {
		return res.Err()
	}

	if err = conn.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer, SDP: res.SDP()}); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	s.logger.Info().Int("audio", s.config.AudioTracks).Int("video", s.config.VideoTracks).Msg("Joined conference")
	return nil
}

func addRecvOnly(conn *webrtc.PeerConnection, kind webrtc.RTPCodecType, n int) error {
	for i := 0; i < n; i++ {
		if _, err := conn.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return fmt.Errorf("failed to add %s transceiver: %w", kind, err)
		}
	}
	return nil
}

func (s *Session) handleTrack(conn *webrtc.PeerConnection, remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	mid := midOf(conn, receiver)
	opts := []track.Option{track.WithLogger(s.logger)}
	if s.observer != nil {
		opts = append(opts, track.WithObserver(s.observer))
	}

	s.wg.Add(1)
	switch remote.Kind() {
	case webrtc.RTPCodecTypeVideo:
		go s.readVideo(mid, remote, opts)
	case webrtc.RTPCodecTypeAudio:
		go s.readAudio(mid, remote, opts)
	default:
		s.wg.Done()
		s.logger.Warn().Str("kind", remote.Kind().String()).Msg("Ignoring track of unknown kind")
	}
}

func midOf(conn *webrtc.PeerConnection, receiver *webrtc.RTPReceiver) string {
	for _, t := range conn.GetTransceivers() {
		if t.Receiver() == receiver {
			return t.Mid()
		}
	}
	return ""
}

func (s *Session) readVideo(mid string, remote *webrtc.TrackRemote, opts []track.Option) {
	defer s.wg.Done()
	vt := track.NewVideoTrack(mid, func(f track.VideoFrame) { s.onVideo(mid, f) }, opts...)
	asm := rtpsource.NewAssembler(func(f *rtpsource.Frame) { vt.OnFrame(f) })
	s.logger.Debug().Str("mid", mid).Uint32("ssrc", uint32(remote.SSRC())).Msg("Receiving video")

	for {
		p, _, err := remote.ReadRTP()
		if err != nil {
			s.logger.Debug().Err(err).Str("mid", mid).Msg("Video track ended")
			return
		}
		asm.Push(p, time.Now())
	}
}

func (s *Session) readAudio(mid string, remote *webrtc.TrackRemote, opts []track.Option) {
	defer s.wg.Done()
	tracker := s.sources.Tracker(uint32(remote.SSRC()))
	at := track.NewAudioTrack(mid, tracker, func(f track.AudioFrame) { s.onAudio(mid, f) }, opts...)
	s.logger.Debug().Str("mid", mid).Uint32("ssrc", uint32(remote.SSRC())).Msg("Receiving audio")

	var dec AudioDecoder
	if s.newDecoder != nil {
		var err error
		if dec, err = s.newDecoder(remote.Codec()); err != nil {
			s.logger.Error().Err(err).Str("mid", mid).Str("codec", remote.Codec().MimeType).Msg("Failed to create audio decoder")
		}
	}

	for {
		p, _, err := remote.ReadRTP()
		if err != nil {
			s.logger.Debug().Err(err).Str("mid", mid).Msg("Audio track ended")
			return
		}
		if dec == nil {
			continue
		}
		pcm, ok, err := dec.Decode(p)
		if err != nil {
			s.logger.Trace().Err(err).Str("mid", mid).Msg("Failed to decode audio")
			continue
		}
		if ok {
			at.OnData(pcm.Data, 16, pcm.SampleRate, pcm.NumberOfChannels, pcm.NumberOfFrames, nil)
		}
	}
}

// Close closes the peer connection and waits for the track readers to stop.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	s.wg.Wait()
	return err
}

package session

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Default values for session configuration.
const (
	DefaultAudioTracks = 3
	DefaultVideoTracks = 1
)

// Below is the Error message for the session configuration.
var (
	ErrMissingConference = errors.New("missing conference id")
	ErrMissingToken      = errors.New("missing access token")
	ErrInvalidTrackCount = errors.New("invalid track count")
	ErrInvalidPortRange  = errors.New("invalid UDP port range")
)

// Config defines the configuration of a media session.
type Config struct {
	JoinEndpoint string   // Base URL of the conferencing API
	ConferenceID string   // Meeting space to join
	AccessToken  string   // OAuth token of the joining user
	AudioTracks  int      // Receive-only audio transceivers to offer
	VideoTracks  int      // Receive-only video transceivers to offer
	ICEServers   []string // STUN/TURN URLs
	MinUDPPort   uint16   // Minimum UDP port for ICE, 0 leaves it unset
	MaxUDPPort   uint16   // Maximum UDP port for ICE, 0 leaves it unset
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ConferenceID == "" {
		return ErrMissingConference
	}
	if c.AccessToken == "" {
		return ErrMissingToken
	}
	if c.AudioTracks < 0 || c.VideoTracks < 0 || c.AudioTracks+c.VideoTracks == 0 {
		return fmt.Errorf("audio %d, video %d: %w", c.AudioTracks, c.VideoTracks, ErrInvalidTrackCount)
	}
	if (c.MinUDPPort == 0) != (c.MaxUDPPort == 0) || c.MinUDPPort > c.MaxUDPPort {
		return fmt.Errorf("MinUDPPort (%d), MaxUDPPort (%d): %w", c.MinUDPPort, c.MaxUDPPort, ErrInvalidPortRange)
	}
	return nil
}

// setPortRange applies the ephemeral UDP port range to the setting engine.
func (c Config) setPortRange(s *webrtc.SettingEngine) error {
	if c.MinUDPPort == 0 && c.MaxUDPPort == 0 {
		return nil
	}
	if err := s.SetEphemeralUDPPortRange(c.MinUDPPort, c.MaxUDPPort); err != nil {
		return fmt.Errorf("failed to set ephemeral UDP port range: %w", err)
	}
	return nil
}

func (c Config) webrtcConfig() webrtc.Configuration {
	if len(c.ICEServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: c.ICEServers}},
	}
}

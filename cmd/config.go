package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"meetmedia/connector"
	"meetmedia/metric"
	"meetmedia/monitor"
	"meetmedia/session"
)

// EnvPrefix prefixes the environment variables read by the application.
const EnvPrefix = "MEETMEDIA"

// Config is the configuration of the application.
type Config struct {
	Connector connector.Config
	Session   session.Config
	Metric    metric.Config
	Monitor   monitor.Config
	Debug     bool
}

// Validate validates every part of the configuration.
func (c Config) Validate() error {
	if err := c.Connector.Validate(); err != nil {
		return fmt.Errorf("connector: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Metric.Validate(); err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

// Parse parses the command line arguments. Values come from, in increasing
// precedence: defaults, the file given with -config, MEETMEDIA_* environment
// variables and flags set on the command line.
func Parse(w io.Writer, args []string) (Config, error) {
	fs := flag.NewFlagSet("meetmedia", flag.ContinueOnError)
	fs.SetOutput(w)
	configFile := fs.String("config", "", "config file path")
	fs.String("endpoint", connector.DefaultEndpoint, "join endpoint")
	fs.String("ca-cert", "", "CA certificate bundle used instead of the system roots")
	fs.Duration("timeout", connector.DefaultTimeout, "join request timeout")
	fs.String("conference", "", "conference id")
	fs.String("token", "", "access token")
	fs.Int("audio-tracks", session.DefaultAudioTracks, "number of audio tracks to receive")
	fs.Int("video-tracks", session.DefaultVideoTracks, "number of video tracks to receive")
	fs.String("ice", "", "comma separated STUN/TURN URLs")
	fs.Uint("min-udp-port", 0, "minimum UDP port for ICE")
	fs.Uint("max-udp-port", 0, "maximum UDP port for ICE")
	fs.Int("metrics-port", metric.DefaultMetricsPort, "metrics port, 0 disables")
	fs.String("metrics-path", metric.DefaultMetricsPath, "metrics path")
	fs.Int("monitor-port", 0, "frame event websocket port, 0 disables")
	fs.String("monitor-path", monitor.DefaultPath, "frame event websocket path")
	fs.Int("monitor-queue", monitor.DefaultQueueSize, "events buffered per monitor subscriber")
	fs.Bool("debug", false, "debug mode")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("failed to parse args: %w", err)
	}
	if fs.NArg() != 0 {
		return Config{}, errors.New("some args are not parsed")
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	fs.VisitAll(func(f *flag.Flag) {
		v.SetDefault(f.Name, f.DefValue)
	})
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	fs.Visit(func(f *flag.Flag) {
		v.Set(f.Name, f.Value.String())
	})

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Config {
	endpoint := v.GetString("endpoint")
	return Config{
		Connector: connector.Config{
			Endpoint:   endpoint,
			CACertPath: v.GetString("ca-cert"),
			Timeout:    v.GetDuration("timeout"),
		},
		Session: session.Config{
			JoinEndpoint: endpoint,
			ConferenceID: v.GetString("conference"),
			AccessToken:  v.GetString("token"),
			AudioTracks:  v.GetInt("audio-tracks"),
			VideoTracks:  v.GetInt("video-tracks"),
			ICEServers:   splitList(v.GetStringSlice("ice")),
			MinUDPPort:   v.GetUint16("min-udp-port"),
			MaxUDPPort:   v.GetUint16("max-udp-port"),
		},
		Metric: metric.Config{
			Port:           v.GetInt("metrics-port"),
			Path:           v.GetString("metrics-path"),
			UpdateInterval: metric.DefaultUpdateInterval,
		},
		Monitor: monitor.Config{
			Port:      v.GetInt("monitor-port"),
			Path:      v.GetString("monitor-path"),
			QueueSize: v.GetInt("monitor-queue"),
		},
		Debug: v.GetBool("debug"),
	}
}

// splitList accepts both YAML lists and comma separated strings.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

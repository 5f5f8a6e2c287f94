// Package connector negotiates a media session with the conferencing service
// over the HTTP offer/answer exchange.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"meetmedia/status"
)

const (
	contentType = "application/json;charset=UTF-8"
	joinPath    = "/spaces/%s:connectActiveConference"

	// outcomeTransportError is recorded when no response was received.
	outcomeTransportError = "TRANSPORT_ERROR"
	outcomeAnswer         = "ANSWER"
)

// JoinRequest holds the parameters of one connection attempt.
type JoinRequest struct {
	Endpoint     string
	ConferenceID string
	AccessToken  string
	Offer        string
}

// Request is a join request ready to be put on the wire.
type Request struct {
	URL    string
	Header http.Header
	Body   []byte
}

// BuildRequest builds the wire request for the given join parameters.
func BuildRequest(jr JoinRequest) (Request, error) {
	body, err := encodeOffer(jr.Offer)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode offer: %w", err)
	}

	header := make(http.Header, 2)
	header.Set("Content-Type", contentType)
	header.Set("Authorization", "Bearer "+jr.AccessToken)

	return Request{
		URL:    jr.Endpoint + fmt.Sprintf(joinPath, jr.ConferenceID),
		Header: header,
		Body:   body,
	}, nil
}

// encodeOffer serializes {"offer": sdp} compactly and without HTML escaping.
func encodeOffer(sdp string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Offer string `json:"offer"`
	}{Offer: sdp}); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Connector sends join requests to the conferencing service.
type Connector struct {
	transport  Transport
	caCertPath string
	logger     zerolog.Logger
	recorder   Recorder
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the logger used by the Connector.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Connector) {
		c.logger = l
	}
}

// WithRecorder sets the recorder notified of join outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *Connector) {
		c.recorder = r
	}
}

// WithCACertPath overrides the trust roots used by the transport.
func WithCACertPath(path string) Option {
	return func(c *Connector) {
		c.caCertPath = path
	}
}

// New creates a new instance of Connector.
func New(t Transport, opts ...Option) *Connector {
	c := &Connector{
		transport: t,
		logger:    log.Logger.With().Str("module", "connector").Logger(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCACertPath overrides the trust roots used by the transport. It must not
// be called concurrently with ConnectActiveConference.
func (c *Connector) SetCACertPath(path string) {
	c.caCertPath = path
}

// ConnectActiveConference sends the SDP offer to the join endpoint of the
// conference and returns the service's classified reply. The returned error
// is non-nil only when the transport failed; it is the transport's error.
func (c *Connector) ConnectActiveConference(
	ctx context.Context, joinEndpoint, conferenceID, accessToken, sdpOffer string,
) (Result, error) {
	if conferenceID == "" {
		return c.finish(Failure(status.New(status.InvalidArgument, "conference id is empty"))), nil
	}
	if sdpOffer == "" {
		return c.finish(Failure(status.New(status.InvalidArgument, "sdp offer is empty"))), nil
	}

	req, err := BuildRequest(JoinRequest{
		Endpoint:     joinEndpoint,
		ConferenceID: conferenceID,
		AccessToken:  accessToken,
		Offer:        sdpOffer,
	})
	if err != nil {
		return c.finish(Failure(status.New(status.Internal, err.Error()))), nil
	}

	c.logger.Debug().Str("url", req.URL).Msg("Connecting to conference")
	c.logger.Debug().Bytes("body", req.Body).Msg("Join request offer")

	body, err := c.transport.Send(ctx, req, c.caCertPath)
	if err != nil {
		c.recorder.RecordJoin(outcomeTransportError)
		return Result{}, err
	}

	c.logger.Debug().Bytes("body", body).Msg("Parsing join response")
	return c.finish(ParseResponse(body)), nil
}

func (c *Connector) finish(r Result) Result {
	if r.IsAnswer() {
		c.recorder.RecordJoin(outcomeAnswer)
	} else {
		c.recorder.RecordJoin(r.Err().Code.String())
	}
	return r
}

// ParseResponse classifies a raw join response body.
func ParseResponse(body []byte) Result {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return Failure(status.Newf(status.Unknown,
			"Unparseable or non-json response from Meet servers, %s", body))
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Failure(status.Newf(status.Unknown,
			"Unparseable or non-json response from Meet servers, %s", body))
	}

	if answer, ok := obj["answer"]; ok {
		sdp, ok := answer.(string)
		if !ok {
			return Failure(status.Newf(status.Unknown, "Received non-string `answer` field: %s", body))
		}
		return Answer(sdp)
	}

	if errField, ok := obj["error"]; ok {
		return Failure(status.New(errorCode(errField), string(body)))
	}

	dump, err := json.Marshal(obj)
	if err != nil {
		dump = body
	}
	return Failure(status.Newf(status.Unknown,
		"Received response without `answer` or `error` field: %s", dump))
}

// errorCode reads error.status. Anything other than a string status inside an
// object is Unknown.
func errorCode(errField any) status.Code {
	details, ok := errField.(map[string]any)
	if !ok {
		return status.Unknown
	}
	s, ok := details["status"].(string)
	if !ok {
		return status.Unknown
	}
	return status.FromString(s)
}

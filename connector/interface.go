// Package connector negotiates a media session with the conferencing service
// over the HTTP offer/answer exchange.
package connector

import "context"

// Transport sends one prepared join request and returns the raw response
// body. Network, TLS and deadline failures are returned as errors; any
// response that arrives, whatever its HTTP status, is returned as a body.
//
//go:generate mockgen -destination=mock_transport.go -package=connector . Transport
type Transport interface {
	Send(ctx context.Context, req Request, caCertPath string) ([]byte, error)
}

// Recorder observes the outcome of each join attempt.
type Recorder interface {
	RecordJoin(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordJoin(string) {}

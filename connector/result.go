package connector

import "meetmedia/status"

type resultKind int

const (
	kindFailure resultKind = iota
	kindAnswer
)

// Result is the outcome of a join attempt: either an SDP answer or a
// classified failure, never both.
type Result struct {
	kind   resultKind
	answer string
	err    *status.Error
}

// Answer creates a successful Result carrying the SDP answer.
func Answer(sdp string) Result {
	return Result{kind: kindAnswer, answer: sdp}
}

// Failure creates a failed Result.
func Failure(err *status.Error) Result {
	return Result{kind: kindFailure, err: err}
}

// IsAnswer reports whether the service answered the offer.
func (r Result) IsAnswer() bool {
	return r.kind == kindAnswer
}

// SDP returns the answer, or an empty string for a failure.
func (r Result) SDP() string {
	return r.answer
}

// Err returns the classified failure, or nil for an answer.
func (r Result) Err() *status.Error {
	if r.kind == kindAnswer {
		return nil
	}
	if r.err == nil {
		return status.New(status.Unknown, "empty result")
	}
	return r.err
}

package connector_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetmedia/connector"
	"meetmedia/status"
)

const (
	testEndpoint = "https://meet.googleapis.com"
	testSpace    = "abcdefg"
	testToken    = "bearer_token"
	testOffer    = "some sdp offer"
)

type fakeRecorder struct {
	outcomes []string
}

func (f *fakeRecorder) RecordJoin(outcome string) {
	f.outcomes = append(f.outcomes, outcome)
}

// newConnector returns a connector whose transport replies with body.
func newConnector(t *testing.T, body string, opts ...connector.Option) *connector.Connector {
	ctrl := gomock.NewController(t)
	tr := connector.NewMockTransport(ctrl)
	tr.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte(body), nil).Times(1)
	return connector.New(tr, opts...)
}

func connect(t *testing.T, c *connector.Connector) connector.Result {
	res, err := c.ConnectActiveConference(context.Background(), testEndpoint, testSpace, testToken, testOffer)
	require.NoError(t, err)
	return res
}

func TestBuildRequest(t *testing.T) {
	req, err := connector.BuildRequest(connector.JoinRequest{
		Endpoint:     "https://host",
		ConferenceID: "abcdefg",
		AccessToken:  "bearer_token",
		Offer:        "some sdp offer",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://host/spaces/abcdefg:connectActiveConference", req.URL)
	assert.Len(t, req.Header, 2)
	assert.Equal(t, []string{"application/json;charset=UTF-8"}, req.Header.Values("Content-Type"))
	assert.Equal(t, []string{"Bearer bearer_token"}, req.Header.Values("Authorization"))
	assert.Equal(t, `{"offer":"some sdp offer"}`, string(req.Body))
}

func TestBuildRequestKeepsSDPUnescaped(t *testing.T) {
	req, err := connector.BuildRequest(connector.JoinRequest{
		Endpoint:     "https://host",
		ConferenceID: "abc",
		Offer:        "v=0\r\na=group:BUNDLE 0 1 <x>&",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"offer":"v=0\r\na=group:BUNDLE 0 1 <x>&"}`, string(req.Body))
}

func TestPopulatesRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := connector.NewMockTransport(ctrl)

	var sent connector.Request
	var caPath string
	tr.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req connector.Request, ca string) ([]byte, error) {
			sent = req
			caPath = ca
			return []byte(`{"answer":"some sdp answer"}`), nil
		}).Times(1)

	c := connector.New(tr)
	c.SetCACertPath("some_ca_cert_path")
	_, err := c.ConnectActiveConference(context.Background(), testEndpoint, testSpace, testToken, testOffer)
	require.NoError(t, err)

	assert.Equal(t, "some_ca_cert_path", caPath)
	assert.Equal(t, "https://meet.googleapis.com/spaces/abcdefg:connectActiveConference", sent.URL)
	assert.Equal(t, "application/json;charset=UTF-8", sent.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer bearer_token", sent.Header.Get("Authorization"))
	assert.Equal(t, `{"offer":"some sdp offer"}`, string(sent.Body))
}

func TestReturnsAnswer(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "given answer only when connected then return answer",
			body: `{"answer":"some sdp answer"}`,
		},
		{
			name: "given answer with extra fields when connected then ignore them",
			body: `{"answer":"some sdp answer","trackSignaling":{"x":1}}`,
		},
		{
			name: "given answer with error when connected then prefer answer",
			body: `{"error":{"status":"NOT_FOUND"},"answer":"some sdp answer"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := connect(t, newConnector(t, tt.body))
			require.True(t, res.IsAnswer())
			assert.Equal(t, "some sdp answer", res.SDP())
			assert.Nil(t, res.Err())
		})
	}
}

func TestReturnsErrorFromResponse(t *testing.T) {
	tests := []struct {
		status string
		want   status.Code
	}{
		{"OK", status.OK},
		{"CANCELLED", status.Cancelled},
		{"UNKNOWN", status.Unknown},
		{"INVALID_ARGUMENT", status.InvalidArgument},
		{"DEADLINE_EXCEEDED", status.DeadlineExceeded},
		{"NOT_FOUND", status.NotFound},
		{"ALREADY_EXISTS", status.AlreadyExists},
		{"PERMISSION_DENIED", status.PermissionDenied},
		{"UNAUTHENTICATED", status.Unauthenticated},
		{"RESOURCE_EXHAUSTED", status.ResourceExhausted},
		{"FAILED_PRECONDITION", status.FailedPrecondition},
		{"ABORTED", status.Aborted},
		{"OUT_OF_RANGE", status.OutOfRange},
		{"UNIMPLEMENTED", status.Unimplemented},
		{"INTERNAL", status.Internal},
		{"UNAVAILABLE", status.Unavailable},
		{"DATA_LOSS", status.DataLoss},
		{"SOME_GARBAGE_STATUS", status.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			body, err := json.Marshal(map[string]any{
				"error": map[string]any{
					"status":  tt.status,
					"message": "some error message",
				},
			})
			require.NoError(t, err)

			res := connect(t, newConnector(t, string(body)))
			require.False(t, res.IsAnswer())
			assert.Equal(t, tt.want, res.Err().Code)
			assert.Contains(t, res.Err().Message, tt.status)
			assert.Contains(t, res.Err().Message, "some error message")
			assert.Equal(t, string(body), res.Err().Message)
		})
	}
}

func TestReturnsDefaultErrorWhenErrorDetailsAreMissing(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "given error without status when connected then return unknown",
			body: `{"error":{"":""}}`,
		},
		{
			name: "given non-string status when connected then return unknown",
			body: `{"error":{"status":5,"message":"numeric"}}`,
		},
		{
			name: "given non-object error when connected then return unknown",
			body: `{"error":"NOT_FOUND"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := connect(t, newConnector(t, tt.body))
			require.False(t, res.IsAnswer())
			assert.Equal(t, status.Unknown, res.Err().Code)
			assert.Equal(t, tt.body, res.Err().Message)
		})
	}
}

func TestReturnsErrorWhenResponseHasNeitherField(t *testing.T) {
	res := connect(t, newConnector(t, `{"":""}`))

	require.False(t, res.IsAnswer())
	assert.Equal(t, status.Unknown, res.Err().Code)
	assert.Contains(t, res.Err().Message, "Received response without `answer` or `error` field")
	assert.Contains(t, res.Err().Message, `{"":""}`)
}

func TestReturnsErrorWhenResponseIsNotJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "given plain text when connected then return unknown", body: "not json"},
		{name: "given json array when connected then return unknown", body: `["answer"]`},
		{name: "given json string when connected then return unknown", body: `"answer"`},
		{name: "given empty body when connected then return unknown", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := connect(t, newConnector(t, tt.body))
			require.False(t, res.IsAnswer())
			assert.Equal(t, status.Unknown, res.Err().Code)
			assert.Contains(t, res.Err().Message, "Unparseable or non-json response")
			assert.Contains(t, res.Err().Message, tt.body)
		})
	}
}

func TestReturnsUnknownWhenAnswerIsNotString(t *testing.T) {
	res := connect(t, newConnector(t, `{"answer":{"sdp":"x"}}`))
	require.False(t, res.IsAnswer())
	assert.Equal(t, status.Unknown, res.Err().Code)
}

func TestReturnsTransportErrorVerbatim(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := connector.NewMockTransport(ctrl)
	transportErr := errors.New("connection refused")
	tr.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, transportErr).Times(1)

	rec := &fakeRecorder{}
	c := connector.New(tr, connector.WithRecorder(rec))
	res, err := c.ConnectActiveConference(context.Background(), testEndpoint, testSpace, testToken, testOffer)

	assert.Same(t, transportErr, err)
	assert.False(t, res.IsAnswer())
	assert.Equal(t, []string{"TRANSPORT_ERROR"}, rec.outcomes)
}

func TestRejectsInvalidArgumentsWithoutSending(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := connector.NewMockTransport(ctrl)
	c := connector.New(tr)

	res, err := c.ConnectActiveConference(context.Background(), testEndpoint, "", testToken, testOffer)
	require.NoError(t, err)
	assert.Equal(t, status.InvalidArgument, res.Err().Code)

	res, err = c.ConnectActiveConference(context.Background(), testEndpoint, testSpace, testToken, "")
	require.NoError(t, err)
	assert.Equal(t, status.InvalidArgument, res.Err().Code)
}

func TestRecordsOutcome(t *testing.T) {
	rec := &fakeRecorder{}
	res := connect(t, newConnector(t, `{"error":{"status":"NOT_FOUND"}}`, connector.WithRecorder(rec)))
	assert.Equal(t, status.NotFound, res.Err().Code)

	res = connect(t, newConnector(t, `{"answer":"a"}`, connector.WithRecorder(rec)))
	assert.True(t, res.IsAnswer())

	assert.Equal(t, []string{"NOT_FOUND", "ANSWER"}, rec.outcomes)
}

func TestZeroResultIsFailure(t *testing.T) {
	var res connector.Result
	assert.False(t, res.IsAnswer())
	assert.Equal(t, status.Unknown, res.Err().Code)
}

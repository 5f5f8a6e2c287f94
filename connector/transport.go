package connector

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const maxBodySize = 1 << 20 // 1 MB

// ErrInvalidCACert is returned when the CA override holds no usable certificate.
var ErrInvalidCACert = errors.New("no certificates found in ca cert file")

// HTTPTransport sends join requests with net/http.
type HTTPTransport struct {
	timeout time.Duration
	client  *http.Client
}

// NewHTTPTransport creates a new HTTPTransport. A zero timeout means no
// deadline beyond the caller's context.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send posts the request and returns the response body regardless of the
// HTTP status code.
func (t *HTTPTransport) Send(ctx context.Context, req Request, caCertPath string) ([]byte, error) {
	client := t.client
	if caCertPath != "" {
		var err error
		if client, err = t.clientWithCA(caCertPath); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = req.Header.Clone()

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func(r io.ReadCloser) {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Str("module", "connector").Msg("failed to close response body")
		}
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// clientWithCA returns a client trusting only the certificates in path.
func (t *HTTPTransport) clientWithCA(path string) (*http.Client, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ca cert %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidCACert)
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableKeepAlives = true
	tr.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	return &http.Client{Transport: tr, Timeout: t.timeout}, nil
}

// Package services holds the shared HTTP plumbing for third-party providers.
//
// Each provider package (translate, speech, digilocker, places) exposes an
// interface with an HTTP-backed implementation and a placeholder used when
// no provider is configured.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"migrantconnect/telemetry"
)

// ErrUnavailable wraps every failure to reach or decode a provider.
var ErrUnavailable = errors.New("provider unavailable")

// maxResponseSize caps provider response bodies (synthesized audio included).
const maxResponseSize = 20 << 20

type ClientConfig struct {
	// Total timeout for the entire request. A context deadline can still override this.
	Timeout time.Duration

	DialTimeout     time.Duration
	TLSHandshake    time.Duration
	IdleConnTimeout time.Duration
	MaxIdleConns    int
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         30 * time.Second,
		DialTimeout:     5 * time.Second,
		TLSHandshake:    5 * time.Second,
		IdleConnTimeout: 90 * time.Second,
		MaxIdleConns:    50,
	}
}

// NewHTTPClient builds the client shared by all providers.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshake,
	}
	return &http.Client{Transport: tr, Timeout: cfg.Timeout}
}

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnavailable
}

// Do sends req inside a client span named after service and returns the
// response body of a 2xx reply.
func Do(client *http.Client, service string, req *http.Request) ([]byte, http.Header, error) {
	ctx, span := telemetry.Tracer().Start(req.Context(), service,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", service),
			attribute.String("http.request.method", req.Method),
		),
	)
	defer span.End()

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, service, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("%w: %s: read body: %v", ErrUnavailable, service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, nil, &StatusError{Service: service, Status: resp.StatusCode, Body: snippet}
	}
	return body, resp.Header, nil
}

// PostJSON encodes in, posts it to url and decodes the reply into out.
func PostJSON(ctx context.Context, client *http.Client, service, url, bearer string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	body, _, err := Do(client, service, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrUnavailable, service, err)
	}
	return nil
}

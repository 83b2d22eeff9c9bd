// Package relay re-posts encrypted telemetry envelopes to the remote
// collector without opening them.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// Origin is the outbound identity the remote collector checks.
const Origin = "https://globesuggest.com"

var (
	ErrInvalidJSON     = errors.New("relay: invalid JSON")
	ErrInvalidEnvelope = errors.New("relay: missing envelope keys")
	ErrNotConfigured   = errors.New("relay: remote ingest URL not configured")
	ErrUnreachable     = errors.New("relay: remote collector unreachable")
)

var envelopeKeys = []string{"alg", "key", "iv", "data"}

// HTTPClient matches net/http.Client Do signature for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	RemoteURL string
	APIKey    string
}

// Result is the outcome of a relayed post. Status is the remote HTTP status,
// which may be a 4xx or 5xx: rejection by the collector is not an error here.
type Result struct {
	Status int
}

type Forwarder struct {
	remoteURL  string
	apiKey     string
	httpClient HTTPClient
}

func NewForwarder(httpClient HTTPClient, cfg Config) *Forwarder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Forwarder{
		remoteURL:  strings.TrimSpace(cfg.RemoteURL),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// Validate checks that raw is a JSON object carrying the four envelope keys.
// The values are never inspected.
func Validate(raw []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		var parsed any
		if json.Unmarshal(raw, &parsed) == nil {
			return ErrInvalidEnvelope
		}
		return ErrInvalidJSON
	}
	if obj == nil {
		return ErrInvalidEnvelope
	}
	for _, k := range envelopeKeys {
		if _, ok := obj[k]; !ok {
			return ErrInvalidEnvelope
		}
	}
	return nil
}

// Forward validates raw and posts it unchanged to the remote collector.
func (f *Forwarder) Forward(ctx context.Context, raw []byte) (Result, error) {
	if err := Validate(raw); err != nil {
		return Result{}, err
	}
	if f.remoteURL == "" {
		return Result{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.remoteURL, bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", Origin)
	if f.apiKey != "" {
		req.Header.Set("X-Globesuggest-Api-Key", f.apiKey)
		req.Header.Set("X-GLOBE", f.apiKey)
	}

	log.Printf("relay: forwarding envelope to %s (len=%d)", f.remoteURL, len(raw))
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 400 {
		log.Printf("relay: remote %s rejected envelope with status %d", f.remoteURL, resp.StatusCode)
	}
	return Result{Status: resp.StatusCode}, nil
}

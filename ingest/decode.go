package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"globesuggest/api/envelope"
	"globesuggest/api/models"
)

// ErrInvalidPayload means the body was neither a plaintext snapshot nor an
// envelope this server could open.
var ErrInvalidPayload = errors.New("ingest: invalid payload")

// Decrypter opens telemetry envelopes. *envelope.Codec satisfies it.
type Decrypter interface {
	Decrypt(e envelope.Envelope) (map[string]any, error)
}

// Decode reads an ingest body. A JSON object carrying both "session" and
// "events" is taken as plaintext; anything else is treated as an envelope.
func Decode(body []byte, dec Decrypter) (models.IngestPayload, error) {
	raw := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if m, ok := envelope.DecodeObject(body); ok {
			raw = m
		}
	}

	data := raw
	_, hasSession := raw["session"]
	_, hasEvents := raw["events"]
	if !hasSession || !hasEvents {
		if dec == nil {
			return models.IngestPayload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, envelope.ErrNotConfigured)
		}
		opened, err := dec.Decrypt(envelope.FromMap(raw))
		if err != nil {
			return models.IngestPayload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		data = opened
	}

	session, _ := data["session"].(map[string]any)
	events, _ := data["events"].([]any)
	return models.IngestPayload{Session: session, Events: events}, nil
}

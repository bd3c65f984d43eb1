package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope is the wire shape of every API response. Failures may be signalled by the
// HTTP status, by a status mirrored in the body, or both.
type envelope struct {
	Status  json.Number     `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e envelope) bodyStatus() int {
	if e.Status == "" {
		return 0
	}
	n, err := e.Status.Int64()
	if err != nil {
		return 0
	}
	return int(n)
}

// Result is a successful API response.
type Result[T any] struct {
	Message string
	Data    T
}

// normalize turns an HTTP status and raw body into either a decoded payload or an
// *APIError. It is the only place the wire envelope is interpreted.
func normalize(statusCode int, body []byte, out any) (string, error) {
	var env envelope
	decodeErr := decodeEnvelope(body, &env)

	status := env.bodyStatus()
	if statusCode < 200 || statusCode > 299 || status >= 400 {
		if statusCode >= 200 && statusCode <= 299 {
			statusCode = status
		}
		return "", &APIError{Kind: KindHTTP, Status: statusCode, Message: env.Message}
	}

	if decodeErr != nil {
		return "", &APIError{Kind: KindDecode, Status: statusCode, Err: decodeErr}
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &APIError{
				Kind:    KindDecode,
				Status:  statusCode,
				Message: env.Message,
				Err:     fmt.Errorf("failed to decode response data: %w", err),
			}
		}
	}

	return env.Message, nil
}

func decodeEnvelope(body []byte, env *envelope) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, env); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	return nil
}

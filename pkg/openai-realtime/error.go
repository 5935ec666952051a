package openairealtime

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned by NewClient without an API key.
	ErrMissingAPIKey = errors.New("openai-realtime: API key is required")

	// ErrMissingToken means the session response carried no client_secret.value.
	ErrMissingToken = errors.New("openai-realtime: session response has no client secret")

	// ErrCredentialExpired is returned when signaling with an expired credential.
	ErrCredentialExpired = errors.New("openai-realtime: ephemeral credential expired")

	// ErrChannelNotReady is returned when sending before the event channel is open.
	ErrChannelNotReady = errors.New("openai-realtime: data channel not ready")

	// ErrSessionClosed is returned by operations that complete after HangUp.
	ErrSessionClosed = errors.New("openai-realtime: session closed")

	// ErrSessionActive is returned by Call and SetConfig while a session is
	// negotiating or connected.
	ErrSessionActive = errors.New("openai-realtime: session active")

	// ErrNoLocalTrack means the media endpoint produced no capture track.
	ErrNoLocalTrack = errors.New("openai-realtime: no local media track")

	// ErrMalformedEvent wraps inbound messages that cannot be decoded.
	ErrMalformedEvent = errors.New("openai-realtime: malformed event")

	// ErrDuplicateItem is returned by History.Append for a known item ID.
	ErrDuplicateItem = errors.New("openai-realtime: duplicate conversation item")
)

// Error represents an API error from OpenAI Realtime, either an HTTP
// failure during signaling or an "error" event on the data channel.
type Error struct {
	// Type is the error type (e.g., "invalid_request_error").
	Type string `json:"type,omitzero"`

	// Code is the error code (e.g., "invalid_value").
	Code string `json:"code,omitzero"`

	// Message is the human-readable error message.
	Message string `json:"message,omitzero"`

	// Param is the parameter that caused the error, if applicable.
	Param string `json:"param,omitzero"`

	// EventID is the ID of the client event that caused the error.
	EventID string `json:"event_id,omitzero"`

	// HTTPStatus is the HTTP status code, if applicable.
	HTTPStatus int `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := "openai-realtime"
	if e.HTTPStatus != 0 {
		prefix = fmt.Sprintf("openai-realtime: http %d", e.HTTPStatus)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Code, e.Message)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// BootstrapError is returned when the ephemeral credential could not be
// acquired. The call attempt is aborted; nothing is retried.
type BootstrapError struct {
	Err error
}

func (e *BootstrapError) Error() string {
	return "openai-realtime: create session: " + e.Err.Error()
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// Negotiation stages reported by NegotiationError.
const (
	StagePeerConnection       = "peer_connection"
	StageAddTrack             = "add_track"
	StageDataChannel          = "data_channel"
	StageCreateOffer          = "create_offer"
	StageSetLocalDescription  = "set_local_description"
	StageGatherCandidates     = "gather_candidates"
	StageExchangeOffer        = "exchange_offer"
	StageSetRemoteDescription = "set_remote_description"
)

// NegotiationError is returned when the offer/answer exchange fails.
type NegotiationError struct {
	Stage string
	Err   error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("openai-realtime: negotiation failed at %s: %v", e.Stage, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

package openairealtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/haivivi/rtcall/pkg/jsontime"
)

// Signaler performs the HTTP side of a realtime call. Client implements it.
type Signaler interface {
	// RequestSession exchanges the API key for an ephemeral credential.
	RequestSession(ctx context.Context, config SessionConfig) (*EphemeralCredential, error)

	// ExchangeOffer posts the local SDP offer and returns the remote answer.
	ExchangeOffer(ctx context.Context, offerSDP string, cred *EphemeralCredential, model string) (string, error)
}

// sessionRequest is the body sent to {url}/sessions.
type sessionRequest struct {
	Model        string   `json:"model"`
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions,omitzero"`
	Voice        string   `json:"voice"`
	Temperature  float64  `json:"temperature"`
}

// sessionResponse is the response from the session creation API.
type sessionResponse struct {
	ID           string        `json:"id"`
	Object       string        `json:"object"`
	Model        string        `json:"model"`
	ClientSecret *clientSecret `json:"client_secret"`
}

type clientSecret struct {
	Value     string        `json:"value"`
	ExpiresAt jsontime.Unix `json:"expires_at"`
}

// maxErrorBody caps how much of a failed response is kept in an Error.
const maxErrorBody = 4 << 10

// RequestSession creates a realtime session and returns its ephemeral
// credential. Every failure is a *BootstrapError.
func (c *Client) RequestSession(ctx context.Context, config SessionConfig) (*EphemeralCredential, error) {
	config = config.WithDefaults()
	body, err := json.Marshal(sessionRequest{
		Model:        config.Model,
		Modalities:   config.Modalities,
		Instructions: config.Instructions,
		Voice:        config.Voice,
		Temperature:  config.Temperature,
	})
	if err != nil {
		return nil, &BootstrapError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.httpURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, &BootstrapError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.config.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.config.organization != "" {
		req.Header.Set("OpenAI-Organization", c.config.organization)
	}
	if c.config.project != "" {
		req.Header.Set("OpenAI-Project", c.config.project)
	}

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return nil, &BootstrapError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BootstrapError{Err: responseError(resp, "session_creation_failed")}
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &BootstrapError{Err: fmt.Errorf("decode session response: %w", err)}
	}
	if sr.ClientSecret == nil || sr.ClientSecret.Value == "" {
		return nil, &BootstrapError{Err: ErrMissingToken}
	}

	return &EphemeralCredential{
		Token:     sr.ClientSecret.Value,
		ExpiresAt: sr.ClientSecret.ExpiresAt.Time(),
	}, nil
}

// ExchangeOffer sends the SDP offer and returns the answer verbatim.
// Every failure is a *NegotiationError at StageExchangeOffer.
func (c *Client) ExchangeOffer(ctx context.Context, offerSDP string, cred *EphemeralCredential, model string) (string, error) {
	fail := func(err error) (string, error) {
		return "", &NegotiationError{Stage: StageExchangeOffer, Err: err}
	}
	if cred.Expired(c.config.now()) {
		return fail(ErrCredentialExpired)
	}

	endpoint := c.config.httpURL + "?model=" + url.QueryEscape(model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(responseError(resp, "sdp_exchange_failed"))
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(err)
	}
	if len(bytes.TrimSpace(answer)) == 0 {
		return fail(fmt.Errorf("empty SDP answer"))
	}
	return string(answer), nil
}

// responseError builds an *Error from a non-2xx response, using the JSON
// error body when the server sent one.
func responseError(resp *http.Response, code string) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var wrapped struct {
		Error *Error `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		wrapped.Error.HTTPStatus = resp.StatusCode
		return wrapped.Error
	}
	return &Error{
		Code:       code,
		Message:    strings.TrimSpace(string(body)),
		HTTPStatus: resp.StatusCode,
	}
}

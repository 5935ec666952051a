package openairealtime

import (
	"net/http"
	"time"
)

const (
	// DefaultHTTPURL is the default realtime endpoint. Sessions are created
	// at {url}/sessions and SDP offers are posted to {url}?model=...
	DefaultHTTPURL = "https://api.openai.com/v1/realtime"
)

// Client performs the two HTTP signaling exchanges of a realtime call:
// session creation with the long-lived API key, and the SDP offer/answer
// exchange with the resulting ephemeral credential.
type Client struct {
	config *clientConfig
}

// clientConfig holds the client configuration.
type clientConfig struct {
	apiKey       string
	organization string
	project      string
	httpURL      string
	httpClient   *http.Client
	now          func() time.Time
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new OpenAI Realtime client.
//
// The apiKey is required and can be obtained from:
// https://platform.openai.com/api-keys
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := &clientConfig{
		apiKey:     apiKey,
		httpURL:    DefaultHTTPURL,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{config: cfg}, nil
}

// WithOrganization sets the organization ID for API requests.
func WithOrganization(orgID string) Option {
	return func(c *clientConfig) {
		c.organization = orgID
	}
}

// WithProject sets the project ID for API requests.
func WithProject(projectID string) Option {
	return func(c *clientConfig) {
		c.project = projectID
	}
}

// WithHTTPURL sets the realtime endpoint.
func WithHTTPURL(url string) Option {
	return func(c *clientConfig) {
		if url != "" {
			c.httpURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the clock used for credential expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		c.now = now
	}
}

// Ensure Client satisfies Signaler.
var _ Signaler = (*Client)(nil)

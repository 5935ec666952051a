package openairealtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_RequestSession(t *testing.T) {
	var got struct {
		path, auth, org, project, contentType string
		body                                  map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.org = r.Header.Get("OpenAI-Organization")
		got.project = r.Header.Get("OpenAI-Project")
		got.contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got.body)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"sess_1","object":"realtime.session","model":"m",
			"client_secret":{"value":"ek_abc123","expires_at":1735689600}}`)
	}))
	defer srv.Close()

	client, err := NewClient("sk-long-lived",
		WithHTTPURL(srv.URL+"/v1/realtime"),
		WithOrganization("org-1"),
		WithProject("proj-1"),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	cred, err := client.RequestSession(context.Background(), SessionConfig{
		Instructions: "be brief",
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("RequestSession error: %v", err)
	}

	if got.path != "/v1/realtime/sessions" {
		t.Errorf("path = %q", got.path)
	}
	if got.auth != "Bearer sk-long-lived" {
		t.Errorf("Authorization = %q", got.auth)
	}
	if got.org != "org-1" || got.project != "proj-1" {
		t.Errorf("org/project = %q/%q", got.org, got.project)
	}
	if got.contentType != "application/json" {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	if got.body["model"] != DefaultModel || got.body["voice"] != DefaultVoice ||
		got.body["instructions"] != "be brief" || got.body["temperature"] != 0.7 {
		t.Errorf("body = %v", got.body)
	}
	if mods, _ := got.body["modalities"].([]any); len(mods) != 2 {
		t.Errorf("modalities = %v", got.body["modalities"])
	}

	if cred.Token != "ek_abc123" {
		t.Errorf("Token = %q", cred.Token)
	}
	if want := time.Unix(1735689600, 0); !cred.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", cred.ExpiresAt, want)
	}
}

func TestClient_RequestSessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "json error body",
			status: http.StatusUnauthorized,
			body:   `{"error":{"type":"invalid_request_error","code":"invalid_api_key","message":"Incorrect API key"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *Error
				if !errors.As(err, &apiErr) {
					t.Fatalf("error = %v, want *Error", err)
				}
				if apiErr.HTTPStatus != 401 || apiErr.Code != "invalid_api_key" {
					t.Errorf("api error = %+v", apiErr)
				}
			},
		},
		{
			name:   "plain error body",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				var apiErr *Error
				if !errors.As(err, &apiErr) || apiErr.Message != "boom" || apiErr.HTTPStatus != 500 {
					t.Errorf("error = %v", err)
				}
			},
		},
		{
			name:   "missing token",
			status: http.StatusOK,
			body:   `{"id":"sess_1","client_secret":{"expires_at":1}}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrMissingToken) {
					t.Errorf("error = %v, want ErrMissingToken", err)
				}
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"client_secret":`,
			check:  func(t *testing.T, err error) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client, _ := NewClient("sk", WithHTTPURL(srv.URL))
			cred, err := client.RequestSession(context.Background(), SessionConfig{})
			if cred != nil {
				t.Errorf("credential = %v, want nil", cred)
			}
			var bootErr *BootstrapError
			if !errors.As(err, &bootErr) {
				t.Fatalf("error = %v, want *BootstrapError", err)
			}
			tt.check(t, err)
		})
	}
}

func TestClient_ExchangeOffer(t *testing.T) {
	var gotAuth, gotType, gotModel, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotModel = r.URL.Query().Get("model")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/sdp")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, "v=0\r\nanswer\r\n")
	}))
	defer srv.Close()

	client, _ := NewClient("sk-long-lived", WithHTTPURL(srv.URL))
	cred := &EphemeralCredential{Token: "ek_1", ExpiresAt: time.Now().Add(time.Minute)}

	answer, err := client.ExchangeOffer(context.Background(), "v=0\r\noffer\r\n", cred, "gpt-4o mini")
	if err != nil {
		t.Fatalf("ExchangeOffer error: %v", err)
	}
	if answer != "v=0\r\nanswer\r\n" {
		t.Errorf("answer = %q", answer)
	}
	if gotAuth != "Bearer ek_1" {
		t.Errorf("Authorization = %q, want the ephemeral token", gotAuth)
	}
	if gotType != "application/sdp" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotModel != "gpt-4o mini" {
		t.Errorf("model = %q", gotModel)
	}
	if gotBody != "v=0\r\noffer\r\n" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestClient_ExchangeOfferErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("model") {
		case "empty":
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "bad sdp", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	now := time.Unix(1000, 0)
	client, _ := NewClient("sk", WithHTTPURL(srv.URL), WithClock(func() time.Time { return now }))
	valid := &EphemeralCredential{Token: "ek", ExpiresAt: now.Add(time.Minute)}

	tests := []struct {
		name  string
		cred  *EphemeralCredential
		model string
		is    error
	}{
		{"bad request", valid, "m", nil},
		{"empty answer", valid, "empty", nil},
		{"expired", &EphemeralCredential{Token: "ek", ExpiresAt: now}, "m", ErrCredentialExpired},
		{"no credential", nil, "m", ErrCredentialExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ExchangeOffer(context.Background(), "v=0", tt.cred, tt.model)
			var negErr *NegotiationError
			if !errors.As(err, &negErr) || negErr.Stage != StageExchangeOffer {
				t.Fatalf("error = %v, want NegotiationError at %s", err, StageExchangeOffer)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewClient(\"\") error = %v, want ErrMissingAPIKey", err)
	}
}

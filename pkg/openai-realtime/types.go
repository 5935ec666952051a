package openairealtime

import (
	"fmt"
	"time"
)

// Models supported by the OpenAI Realtime API.
const (
	// ModelGPT4oRealtimePreview is the GPT-4o realtime preview model.
	ModelGPT4oRealtimePreview = "gpt-4o-realtime-preview"
	// ModelGPT4oRealtimePreview20241217 is a specific version.
	ModelGPT4oRealtimePreview20241217 = "gpt-4o-realtime-preview-2024-12-17"
	// ModelGPT4oMiniRealtimePreview is the GPT-4o mini realtime preview model.
	ModelGPT4oMiniRealtimePreview = "gpt-4o-mini-realtime-preview"
	// ModelGPT4oMiniRealtimePreview20241217 is a specific version.
	ModelGPT4oMiniRealtimePreview20241217 = "gpt-4o-mini-realtime-preview-2024-12-17"
)

// Voice options for audio output.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
)

// Voices lists every known voice.
var Voices = []string{
	VoiceAlloy, VoiceAsh, VoiceBallad, VoiceCoral,
	VoiceEcho, VoiceSage, VoiceShimmer, VoiceVerse,
}

// Modality types.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// Conversation item roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Session defaults.
const (
	DefaultModel                = ModelGPT4oMiniRealtimePreview20241217
	DefaultVoice                = VoiceAlloy
	DefaultTemperature          = 0.8
	DefaultMaxConversationItems = 10

	MinTemperature           = 0.6
	MaxTemperature           = 1.2
	MaxConversationItemLimit = 100
)

// SessionConfig describes the session requested from the server. It must not
// change while a session is being negotiated or is connected.
type SessionConfig struct {
	// Model is the realtime model ID.
	// Default: gpt-4o-mini-realtime-preview-2024-12-17
	Model string `json:"model" yaml:"model"`

	// Modalities requested from the model.
	// Default: ["audio", "text"]
	Modalities []string `json:"modalities" yaml:"modalities"`

	// Instructions is the system prompt.
	Instructions string `json:"instructions,omitzero" yaml:"instructions"`

	// Voice is the voice ID for audio output.
	// Default: alloy
	Voice string `json:"voice" yaml:"voice"`

	// Temperature controls randomness (0.6-1.2).
	// Default: 0.8
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxConversationItems bounds the local history. Older items are deleted
	// on the server as new ones arrive, which keeps per-turn cost flat.
	// Default: 10
	MaxConversationItems int `json:"-" yaml:"max_conversation_items"`
}

// DefaultSessionConfig returns a SessionConfig with every field defaulted.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{}.WithDefaults()
}

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if len(c.Modalities) == 0 {
		c.Modalities = []string{ModalityAudio, ModalityText}
	} else {
		c.Modalities = append([]string(nil), c.Modalities...)
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxConversationItems == 0 {
		c.MaxConversationItems = DefaultMaxConversationItems
	}
	return c
}

// Validate reports the first out-of-range field.
func (c SessionConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("openai-realtime: model is required")
	}
	if c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		return fmt.Errorf("openai-realtime: temperature %.2f out of range [%.1f, %.1f]",
			c.Temperature, MinTemperature, MaxTemperature)
	}
	if c.MaxConversationItems < 1 || c.MaxConversationItems > MaxConversationItemLimit {
		return fmt.Errorf("openai-realtime: max conversation items %d out of range [1, %d]",
			c.MaxConversationItems, MaxConversationItemLimit)
	}
	for _, m := range c.Modalities {
		if m != ModalityAudio && m != ModalityText {
			return fmt.Errorf("openai-realtime: unknown modality %q", m)
		}
	}
	return nil
}

// EphemeralCredential is the short-lived token used for SDP signaling.
type EphemeralCredential struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the credential is no longer usable at now.
// A credential without an expiry never expires.
func (c *EphemeralCredential) Expired(now time.Time) bool {
	if c == nil || c.Token == "" {
		return true
	}
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// String returns a masked form safe for logs.
func (c *EphemeralCredential) String() string {
	if c == nil {
		return "<nil>"
	}
	tok := c.Token
	if len(tok) > 8 {
		tok = tok[:4] + "..." + tok[len(tok)-4:]
	} else {
		tok = "****"
	}
	return fmt.Sprintf("%s (expires %s)", tok, c.ExpiresAt.Format(time.RFC3339))
}

// ConversationItem represents an item in the conversation.
type ConversationItem struct {
	ID      string        `json:"id,omitzero"`
	Object  string        `json:"object,omitzero"`
	Type    string        `json:"type,omitzero"` // "message", "function_call", "function_call_output"
	Status  string        `json:"status,omitzero"`
	Role    string        `json:"role,omitzero"` // "user", "assistant", "system"
	Content []ContentPart `json:"content,omitzero"`
}

// Transcript joins the text and transcripts of all content parts.
func (it ConversationItem) Transcript() string {
	var out string
	for _, p := range it.Content {
		s := p.Transcript
		if s == "" {
			s = p.Text
		}
		if s == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += s
	}
	return out
}

func (it ConversationItem) clone() ConversationItem {
	it.Content = append([]ContentPart(nil), it.Content...)
	return it
}

// ContentPart represents a part of message content.
type ContentPart struct {
	Type       string `json:"type,omitzero"` // "input_text", "input_audio", "text", "audio"
	Text       string `json:"text,omitzero"`
	Transcript string `json:"transcript,omitzero"`
	Audio      string `json:"audio,omitzero"` // base64 encoded
}

// SessionResource is the session state reported by the server.
type SessionResource struct {
	ID           string   `json:"id,omitzero"`
	Object       string   `json:"object,omitzero"`
	Model        string   `json:"model,omitzero"`
	Modalities   []string `json:"modalities,omitzero"`
	Instructions string   `json:"instructions,omitzero"`
	Voice        string   `json:"voice,omitzero"`
	Temperature  float64  `json:"temperature,omitzero"`
}

package openairealtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client event types (sent from client to server).
const (
	EventTypeSessionUpdate          = "session.update"
	EventTypeConversationItemDelete = "conversation.item.delete"
	EventTypeResponseCreate         = "response.create"
)

// Server event types (sent from server to client).
const (
	// Error event
	EventTypeError = "error"

	// Session events
	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	// Conversation events
	EventTypeConversationItemCreated                          = "conversation.item.created"
	EventTypeConversationItemDeleted                          = "conversation.item.deleted"
	EventTypeConversationItemInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"

	// Response audio transcript events
	EventTypeResponseAudioTranscriptDone = "response.audio_transcript.done"
)

// EventTypeInvalid labels inbound messages that could not be decoded.
// It never appears on the wire.
const EventTypeInvalid = "invalid"

// Direction tells whether an event was received or sent.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// ServerEvent is one decoded message from the event channel. The concrete
// type is one of the *Event structs in this file; UnknownEvent covers the
// rest of the protocol.
type ServerEvent interface {
	EventType() string
	serverEvent()
}

// ItemCreatedEvent is conversation.item.created.
type ItemCreatedEvent struct {
	EventID        string           `json:"event_id"`
	PreviousItemID string           `json:"previous_item_id,omitzero"`
	Item           ConversationItem `json:"item"`
}

// ItemDeletedEvent is conversation.item.deleted, the server confirmation of
// a delete request.
type ItemDeletedEvent struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
}

// TranscriptEvent carries a final transcript for one content part. It is
// produced for both user input transcription and assistant audio.
type TranscriptEvent struct {
	Type         string `json:"type"`
	EventID      string `json:"event_id"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Transcript   string `json:"transcript"`
}

// SessionCreatedEvent is session.created.
type SessionCreatedEvent struct {
	EventID string          `json:"event_id"`
	Session SessionResource `json:"session"`
}

// ErrorEvent is an error reported by the server on the event channel.
type ErrorEvent struct {
	EventID string `json:"event_id"`
	Err     Error  `json:"error"`
}

// UnknownEvent is any well-formed event without a dedicated variant.
type UnknownEvent struct {
	Type    string
	EventID string
	Raw     []byte
}

func (ItemCreatedEvent) EventType() string    { return EventTypeConversationItemCreated }
func (ItemDeletedEvent) EventType() string    { return EventTypeConversationItemDeleted }
func (e TranscriptEvent) EventType() string   { return e.Type }
func (SessionCreatedEvent) EventType() string { return EventTypeSessionCreated }
func (ErrorEvent) EventType() string          { return EventTypeError }
func (e UnknownEvent) EventType() string      { return e.Type }

func (ItemCreatedEvent) serverEvent()    {}
func (ItemDeletedEvent) serverEvent()    {}
func (TranscriptEvent) serverEvent()     {}
func (SessionCreatedEvent) serverEvent() {}
func (ErrorEvent) serverEvent()          {}
func (UnknownEvent) serverEvent()        {}

// ParseServerEvent decodes one data channel message. Errors wrap
// ErrMalformedEvent.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var head struct {
		EventID string `json:"event_id"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	var (
		ev  ServerEvent
		err error
	)
	switch head.Type {
	case EventTypeConversationItemCreated:
		var e ItemCreatedEvent
		if err = json.Unmarshal(data, &e); err == nil && e.Item.ID == "" {
			err = fmt.Errorf("item without id")
		}
		ev = e
	case EventTypeConversationItemDeleted:
		var e ItemDeletedEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventTypeConversationItemInputAudioTranscriptionCompleted,
		EventTypeResponseAudioTranscriptDone:
		var e TranscriptEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventTypeSessionCreated:
		var e SessionCreatedEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventTypeError:
		var e ErrorEvent
		err = json.Unmarshal(data, &e)
		if err == nil && e.Err.EventID == "" {
			e.Err.EventID = e.EventID
		}
		ev = e
	default:
		ev = UnknownEvent{Type: head.Type, EventID: head.EventID, Raw: data}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, head.Type, err)
	}
	return ev, nil
}

// ClientEvent is an event sent to the server. The wire "type" field is
// added during marshaling.
type ClientEvent interface {
	EventType() string
	clientEvent()
}

// DeleteItemEvent is conversation.item.delete.
type DeleteItemEvent struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
}

// SessionUpdateEvent is session.update. Only non-zero fields are sent.
type SessionUpdateEvent struct {
	EventID string        `json:"event_id"`
	Session SessionUpdate `json:"session"`
}

// SessionUpdate holds the session fields that may change mid-session.
type SessionUpdate struct {
	Modalities   []string `json:"modalities,omitzero"`
	Instructions string   `json:"instructions,omitzero"`
	Voice        string   `json:"voice,omitzero"`
	Temperature  float64  `json:"temperature,omitzero"`
}

// ResponseCreateEvent is response.create.
type ResponseCreateEvent struct {
	EventID  string           `json:"event_id"`
	Response *ResponseOptions `json:"response,omitzero"`
}

// ResponseOptions overrides session settings for a single response.
type ResponseOptions struct {
	Modalities   []string `json:"modalities,omitzero"`
	Instructions string   `json:"instructions,omitzero"`
	Voice        string   `json:"voice,omitzero"`
}

func (DeleteItemEvent) EventType() string     { return EventTypeConversationItemDelete }
func (SessionUpdateEvent) EventType() string  { return EventTypeSessionUpdate }
func (ResponseCreateEvent) EventType() string { return EventTypeResponseCreate }

func (DeleteItemEvent) clientEvent()     {}
func (SessionUpdateEvent) clientEvent()  {}
func (ResponseCreateEvent) clientEvent() {}

// MarshalClientEvent encodes ev with its type tag, generating an event ID
// when ev has none.
func MarshalClientEvent(ev ClientEvent) ([]byte, error) {
	switch e := ev.(type) {
	case DeleteItemEvent:
		if e.EventID == "" {
			e.EventID = generateEventID()
		}
		type alias DeleteItemEvent
		return json.Marshal(struct {
			Type string `json:"type"`
			alias
		}{e.EventType(), alias(e)})
	case SessionUpdateEvent:
		if e.EventID == "" {
			e.EventID = generateEventID()
		}
		type alias SessionUpdateEvent
		return json.Marshal(struct {
			Type string `json:"type"`
			alias
		}{e.EventType(), alias(e)})
	case ResponseCreateEvent:
		if e.EventID == "" {
			e.EventID = generateEventID()
		}
		type alias ResponseCreateEvent
		return json.Marshal(struct {
			Type string `json:"type"`
			alias
		}{e.EventType(), alias(e)})
	default:
		return nil, fmt.Errorf("openai-realtime: unsupported client event %T", ev)
	}
}

// generateEventID generates a unique event ID.
func generateEventID() string {
	return "evt_" + uuid.NewString()
}

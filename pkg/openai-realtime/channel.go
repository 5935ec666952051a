package openairealtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v3"
)

// eventChannel runs the JSON event protocol over the oai-events data channel.
// mu serializes history mutation with channel sends, so an eviction and its
// delete request form one step.
type eventChannel struct {
	history  *History
	logger   *slog.Logger
	observer Observer

	mu        sync.Mutex
	dc        DataChannel
	sessionID string
	closed    bool
}

func newEventChannel(history *History, logger *slog.Logger, observer Observer) *eventChannel {
	return &eventChannel{
		history:  history,
		logger:   logger,
		observer: observer,
	}
}

// attach makes dc the channel used for sending and routes its messages to
// the handler. A later attach replaces the earlier channel.
func (c *eventChannel) attach(dc DataChannel) {
	label := dc.Label()
	dc.OnOpen(func() {
		c.logger.Debug("event channel open", "label", label)
	})
	dc.OnClose(func() {
		c.logger.Debug("event channel closed", "label", label)
	})
	dc.OnMessage(c.handleMessage)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = dc.Close()
		return
	}
	c.dc = dc
	c.mu.Unlock()
}

// send writes ev if the channel is open, and returns ErrChannelNotReady
// otherwise.
func (c *eventChannel) send(ev ClientEvent) error {
	c.mu.Lock()
	err := c.sendLocked(ev)
	c.mu.Unlock()

	if err == nil {
		c.observer.OnEvent(DirectionOutbound, ev.EventType())
	}
	return err
}

func (c *eventChannel) sendLocked(ev ClientEvent) error {
	if c.closed || c.dc == nil || c.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotReady
	}
	data, err := MarshalClientEvent(ev)
	if err != nil {
		return err
	}

	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		str := string(data)
		if len(str) > 500 {
			str = str[:500] + "..."
		}
		c.logger.Debug("sending event", "content", str)
	}

	if err := c.dc.SendText(string(data)); err != nil {
		return fmt.Errorf("openai-realtime: send %s: %w", ev.EventType(), err)
	}
	return nil
}

// handleMessage decodes and dispatches one inbound message. Bad messages are
// logged and dropped; the channel stays open.
func (c *eventChannel) handleMessage(data []byte) {
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		msgStr := string(data)
		if len(msgStr) > 1000 {
			msgStr = msgStr[:1000] + "..."
		}
		c.logger.Debug("received message", "len", len(data), "content", msgStr)
	}

	ev, err := ParseServerEvent(data)
	if err != nil {
		c.logger.Warn("dropping inbound event", "error", err)
		c.observer.OnEvent(DirectionInbound, EventTypeInvalid)
		return
	}
	c.observer.OnEvent(DirectionInbound, ev.EventType())

	switch e := ev.(type) {
	case ItemCreatedEvent:
		c.itemCreated(e.Item)

	case ItemDeletedEvent:
		c.logger.Debug("item deleted", "item_id", e.ItemID)

	case TranscriptEvent:
		if !c.history.SetTranscript(e.ItemID, e.ContentIndex, e.Transcript) {
			c.logger.Debug("transcript for unknown item", "item_id", e.ItemID)
		}

	case SessionCreatedEvent:
		c.mu.Lock()
		c.sessionID = e.Session.ID
		c.mu.Unlock()
		c.logger.Info("session created", "session_id", e.Session.ID, "model", e.Session.Model)

	case ErrorEvent:
		c.logger.Warn("server error", "type", e.Err.Type, "code", e.Err.Code, "message", e.Err.Message)
		c.observer.OnStatusChange("Error: " + e.Err.Message)

	case UnknownEvent:
		c.logger.Debug("ignoring event", "type", e.Type)
	}
}

// itemCreated appends item and, when the bound is crossed, evicts the oldest
// item and asks the server to delete it before releasing the lock.
func (c *eventChannel) itemCreated(item ConversationItem) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	evicted, err := c.history.Append(item)
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, ErrDuplicateItem) {
			c.logger.Warn("ignoring duplicate item", "item_id", item.ID)
		}
		return
	}
	var sendErr error
	if evicted != nil {
		sendErr = c.sendLocked(DeleteItemEvent{ItemID: evicted.ID})
	}
	c.mu.Unlock()

	c.logger.Debug("item created", "item_id", item.ID, "role", item.Role)
	if evicted == nil {
		return
	}
	if sendErr != nil {
		c.logger.Warn("delete evicted item", "item_id", evicted.ID, "error", sendErr)
		return
	}
	c.logger.Debug("evicted item", "item_id", evicted.ID)
	c.observer.OnEvent(DirectionOutbound, EventTypeConversationItemDelete)
}

func (c *eventChannel) currentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// close closes the channel and stops further sends and history updates.
func (c *eventChannel) close() {
	c.mu.Lock()
	dc := c.dc
	c.dc = nil
	c.closed = true
	c.mu.Unlock()

	if dc != nil {
		if err := dc.Close(); err != nil {
			c.logger.Debug("close event channel", "error", err)
		}
	}
}

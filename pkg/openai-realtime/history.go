package openairealtime

import "sync"

// History is the ordered, size-bounded list of conversation items known to
// the session. Items are kept in arrival order and are unique by ID.
type History struct {
	mu    sync.RWMutex
	max   int
	items []ConversationItem
}

// NewHistory returns an empty history holding at most max items.
// A non-positive max selects DefaultMaxConversationItems.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxConversationItems
	}
	return &History{max: max}
}

// Max returns the bound.
func (h *History) Max() int {
	return h.max
}

// Append adds item to the end of the history. If that makes the history
// longer than its bound, the oldest item is removed in the same step and
// returned so the caller can delete it on the server.
func (h *History) Append(item ConversationItem) (evicted *ConversationItem, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.indexLocked(item.ID) >= 0 {
		return nil, ErrDuplicateItem
	}
	h.items = append(h.items, item.clone())
	if len(h.items) <= h.max {
		return nil, nil
	}

	oldest := h.items[0]
	h.items[0] = ConversationItem{}
	h.items = h.items[1:]
	return &oldest, nil
}

// SetTranscript sets the transcript of one content part of item id.
// It reports whether the item was found.
func (h *History) SetTranscript(id string, contentIndex int, transcript string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.indexLocked(id)
	if i < 0 || contentIndex < 0 {
		return false
	}
	it := &h.items[i]
	for len(it.Content) <= contentIndex {
		it.Content = append(it.Content, ContentPart{})
	}
	it.Content[contentIndex].Transcript = transcript
	return true
}

// Items returns a copy of the history, oldest first.
func (h *History) Items() []ConversationItem {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ConversationItem, len(h.items))
	for i, it := range h.items {
		out[i] = it.clone()
	}
	return out
}

// Len returns the number of items.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Clear removes every item.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}

func (h *History) indexLocked(id string) int {
	for i := range h.items {
		if h.items[i].ID == id {
			return i
		}
	}
	return -1
}

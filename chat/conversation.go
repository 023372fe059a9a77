package chat

import (
	"sync"
	"time"
)

// Status is the per-message delivery state. Sending, delivered and read
// advance monotonically; failed is a terminal branch of sending that only
// RetryMessage leaves.
type Status string

const (
	StatusSending   Status = "sending"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

var statusRank = map[Status]int{
	StatusSending:   0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// Message is one chat entry. Optimistic local messages carry a TempID and
// no ID until the server acknowledges them.
type Message struct {
	ID          string    `json:"id,omitempty"`
	TempID      string    `json:"tempId,omitempty"`
	ChatID      string    `json:"chatId"`
	SenderID    string    `json:"senderId"`
	Body        string    `json:"body"`
	Attachments []string  `json:"attachments,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Conversation holds the locally observed message order for one chat. All
// methods are safe for concurrent use; the read loop and the sender both
// touch it.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
	byID     map[string]int
	byTempID map[string]int
}

func NewConversation() *Conversation {
	return &Conversation{
		byID:     make(map[string]int),
		byTempID: make(map[string]int),
	}
}

// Append adds a message, ignoring duplicates of an id already present.
// It reports whether the message was actually added.
func (c *Conversation) Append(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.ID != "" {
		if _, ok := c.byID[msg.ID]; ok {
			return false
		}
	}

	c.messages = append(c.messages, msg)
	idx := len(c.messages) - 1
	if msg.ID != "" {
		c.byID[msg.ID] = idx
	}
	if msg.TempID != "" {
		c.byTempID[msg.TempID] = idx
	}
	return true
}

// Resolve swaps the optimistic entry for the server-acknowledged message,
// keeping its position. Status only upgrades: an ack arriving after a
// delivered or read receipt must not rewind it.
func (c *Conversation) Resolve(tempID string, saved Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byTempID[tempID]
	if !ok {
		return false
	}

	current := c.messages[idx]
	if saved.Status == "" || statusRank[saved.Status] < statusRank[current.Status] {
		saved.Status = current.Status
	}
	// The server persisted it, so even an entry that was flipped to failed
	// (or is still sending) is at least delivered now.
	if saved.Status == StatusSending || saved.Status == StatusFailed {
		saved.Status = StatusDelivered
	}
	c.messages[idx] = saved

	delete(c.byTempID, tempID)
	if saved.ID != "" {
		c.byID[saved.ID] = idx
	}
	return true
}

// Fail flips an optimistic entry to failed so the UI can offer a retry.
func (c *Conversation) Fail(tempID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byTempID[tempID]
	if !ok {
		return false
	}
	c.messages[idx].Status = StatusFailed
	return true
}

// Retrying moves a failed entry back to sending. Only failed entries
// qualify: a message still in flight must not be re-emitted.
func (c *Conversation) Retrying(tempID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byTempID[tempID]
	if !ok {
		return false
	}
	if c.messages[idx].Status != StatusFailed {
		return false
	}
	c.messages[idx].Status = StatusSending
	return true
}

// MarkDelivered upgrades a message to delivered. A message already read
// stays read.
func (c *Conversation) MarkDelivered(id string) bool {
	return c.upgrade(id, StatusDelivered)
}

// MarkRead upgrades a message to read.
func (c *Conversation) MarkRead(id string) bool {
	return c.upgrade(id, StatusRead)
}

func (c *Conversation) upgrade(id string, to Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byID[id]
	if !ok {
		return false
	}
	if statusRank[to] <= statusRank[c.messages[idx].Status] {
		return false
	}
	c.messages[idx].Status = to
	return true
}

// Messages returns a snapshot in arrival order.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Get looks a message up by server id.
func (c *Conversation) Get(id string) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byID[id]
	if !ok {
		return Message{}, false
	}
	return c.messages[idx], true
}

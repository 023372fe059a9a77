package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	reconnectAttempts = 5
	reconnectDelay    = 2 * time.Second
	writeTimeout      = 10 * time.Second
)

var (
	ErrNotConnected  = errors.New("chat: not connected")
	ErrUnknownTempID = errors.New("chat: no pending message for temp id")
	ErrNotRetryable  = errors.New("chat: message is not in a failed state")
	ErrGaveUp        = errors.New("chat: reconnect attempts exhausted")
)

// Attachment is a file the sender wants carried with a message. It is
// uploaded through the Uploader before anything touches the wire.
type Attachment struct {
	Name string
	Data []byte
}

// Uploader stores attachment bytes with an external object store and
// returns the public URL to embed in the message.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// outbound is the retained payload of an optimistic send, kept so
// RetryMessage can replay it verbatim.
type outbound struct {
	chatID string
	msg    Message
}

// Client maintains one chat socket. It reconnects on its own with a
// bounded attempt count; callers observe connectivity through Connected
// and the optional state callback, they never redial themselves.
type Client struct {
	url      string
	userID   string
	uploader Uploader
	log      *logrus.Entry

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	chatID    string
	pending   map[string]outbound

	conv *Conversation

	// reconnect policy, defaulted in NewClient
	reconnectAttempts int
	reconnectDelay    time.Duration

	onState   func(connected bool)
	onTyping  func(userID string, active bool)
	quit      chan struct{}
	closeOnce sync.Once
}

// NewClient prepares a disconnected client. Call Connect to dial.
func NewClient(url, userID string, up Uploader, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		url:               url,
		userID:            userID,
		uploader:          up,
		log:               log.WithField("component", "chat"),
		pending:           make(map[string]outbound),
		conv:              NewConversation(),
		reconnectAttempts: reconnectAttempts,
		reconnectDelay:    reconnectDelay,
		quit:              make(chan struct{}),
	}
}

// OnStateChange registers a connectivity observer. Must be called before
// Connect.
func (c *Client) OnStateChange(fn func(connected bool)) {
	c.onState = fn
}

// Conversation exposes the local message state.
func (c *Client) Conversation() *Conversation {
	return c.conv
}

// Connected reports the current socket state.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect dials the socket, retrying a bounded number of times, and starts
// the read loop.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.setConn(conn)
	go c.readLoop()
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	var lastErr error
	for i := 0; i < c.reconnectAttempts; i++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.log.WithError(err).WithField("attempt", i+1).Warn("chat socket dial failed")

		if i == c.reconnectAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.quit:
			return nil, ErrGaveUp
		case <-time.After(c.reconnectDelay):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrGaveUp, lastErr)
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if c.onState != nil {
		c.onState(true)
	}
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	if c.onState != nil {
		c.onState(false)
	}
}

// Close shuts the socket down for good; no reconnect follows. Safe to
// call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// JoinChat announces the user in a chat room. Subsequent sends go to this
// room until the next JoinChat.
func (c *Client) JoinChat(chatID string) error {
	c.mu.Lock()
	c.chatID = chatID
	c.mu.Unlock()

	return c.emit(EventJoinChat, joinChatPayload{ChatID: chatID, UserID: c.userID})
}

// Send uploads any attachments, appends an optimistic sending entry, and
// emits the message. The returned temp id keys the later acknowledgement.
// An upload failure aborts the send before any local state is touched.
func (c *Client) Send(ctx context.Context, body string, attachments []Attachment) (string, error) {
	c.mu.Lock()
	chatID := c.chatID
	c.mu.Unlock()
	if chatID == "" {
		return "", fmt.Errorf("chat: no chat joined")
	}

	urls := make([]string, 0, len(attachments))
	for _, att := range attachments {
		url, err := c.uploader.Upload(ctx, att.Name, att.Data)
		if err != nil {
			return "", fmt.Errorf("failed to upload attachment %q: %w", att.Name, err)
		}
		urls = append(urls, url)
	}

	msg := Message{
		TempID:      uuid.NewString(),
		ChatID:      chatID,
		SenderID:    c.userID,
		Body:        body,
		Attachments: urls,
		Status:      StatusSending,
		CreatedAt:   time.Now().UTC(),
	}

	c.conv.Append(msg)
	c.mu.Lock()
	c.pending[msg.TempID] = outbound{chatID: chatID, msg: msg}
	c.mu.Unlock()

	if err := c.emit(EventMessage, messagePayload{Message: msg, ChatID: chatID}); err != nil {
		c.conv.Fail(msg.TempID)
		return msg.TempID, err
	}
	return msg.TempID, nil
}

// RetryMessage resends a failed message with its original payload and temp
// id, flipping it back to sending.
func (c *Client) RetryMessage(tempID string) error {
	c.mu.Lock()
	out, ok := c.pending[tempID]
	c.mu.Unlock()
	if !ok {
		return ErrUnknownTempID
	}

	if !c.conv.Retrying(tempID) {
		return ErrNotRetryable
	}

	if err := c.emit(EventMessage, messagePayload{Message: out.msg, ChatID: out.chatID}); err != nil {
		c.conv.Fail(tempID)
		return err
	}
	return nil
}

// Typing signals a typing indicator to the room.
func (c *Client) Typing(active bool) error {
	kind := EventTypingStart
	if !active {
		kind = EventTypingStop
	}
	return c.emit(kind, typingPayload{UserID: c.userID})
}

func (c *Client) emit(kind EventKind, payload interface{}) error {
	frame, err := encodeEvent(kind, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.quit:
				return
			default:
			}

			c.markDisconnected()
			c.log.WithError(err).Warn("chat socket dropped, reconnecting")

			next, dialErr := c.dial(context.Background())
			if dialErr != nil {
				c.log.WithError(dialErr).Error("chat socket gone for good")
				return
			}
			c.setConn(next)
			if chatID := c.currentChatID(); chatID != "" {
				if err := c.JoinChat(chatID); err != nil {
					c.log.WithError(err).Warn("failed to rejoin chat after reconnect")
				}
			}
			continue
		}

		c.handleFrame(frame)
	}
}

func (c *Client) currentChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// handleFrame decodes one inbound frame and dispatches it. Every member of
// the event set is handled here; anything else is logged and dropped.
func (c *Client) handleFrame(frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.log.WithError(err).Warn("undecodable chat frame dropped")
		return
	}

	switch env.Event {
	case EventMessage:
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.WithError(err).Warn("bad message payload")
			return
		}
		if p.Message.Status == "" {
			p.Message.Status = StatusDelivered
		}
		c.conv.Append(p.Message)

	case EventMessageSaved:
		var p messageSavedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.WithError(err).Warn("bad message-saved payload")
			return
		}
		if c.conv.Resolve(p.TempID, p.Message) {
			c.mu.Lock()
			delete(c.pending, p.TempID)
			c.mu.Unlock()
		}

	case EventMessageError:
		var p messageErrorPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.WithError(err).Warn("bad message-error payload")
			return
		}
		c.conv.Fail(p.TempID)
		c.log.WithFields(logrus.Fields{"tempId": p.TempID, "reason": p.Error}).
			Warn("message rejected by server")

	case EventMessageDelivered:
		var p messageDeliveredPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.WithError(err).Warn("bad message-delivered payload")
			return
		}
		c.conv.MarkDelivered(p.MessageID)

	case EventMessageRead:
		var p messageReadPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.WithError(err).Warn("bad message-read payload")
			return
		}
		c.conv.MarkRead(p.MessageID)

	case EventTypingStart, EventTypingStop:
		var p typingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.WithError(err).Warn("bad typing payload")
			return
		}
		c.notifyTyping(p.UserID, env.Event == EventTypingStart)

	case EventJoinChat:
		// echo of our own join, nothing to do

	default:
		c.log.WithField("event", env.Event).Warn("unknown chat event dropped")
	}
}

// OnTyping registers a typing-indicator observer.
func (c *Client) OnTyping(fn func(userID string, active bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTyping = fn
}

func (c *Client) notifyTyping(userID string, active bool) {
	c.mu.Lock()
	fn := c.onTyping
	c.mu.Unlock()
	if fn != nil {
		fn(userID, active)
	}
}

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type fakeUploader struct {
	err   error
	calls int
}

func (u *fakeUploader) Upload(_ context.Context, name string, _ []byte) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return "https://files.example/" + name, nil
}

// socketServer runs handler for each websocket connection and records
// every frame it receives.
type socketServer struct {
	*httptest.Server
	frames chan envelope
}

func newSocketServer(t *testing.T, handler func(conn *websocket.Conn, env envelope)) *socketServer {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := &socketServer{frames: make(chan envelope, 16)}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				continue
			}
			srv.frames <- env
			if handler != nil {
				handler(conn, env)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *socketServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func mustWrite(conn *websocket.Conn, kind EventKind, payload interface{}) {
	frame, err := encodeEvent(kind, payload)
	if err != nil {
		panic(err)
	}
	_ = conn.WriteMessage(websocket.TextMessage, frame)
}

func TestSendOptimisticThenSaved(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn, env envelope) {
		if env.Event != EventMessage {
			return
		}
		var p messagePayload
		require.NoError(t, json.Unmarshal(env.Data, &p))
		saved := p.Message
		saved.ID = "srv-1"
		saved.TempID = ""
		mustWrite(conn, EventMessageSaved, messageSavedPayload{Message: saved, TempID: p.Message.TempID})
	})

	c := NewClient(srv.wsURL(), "alice", &fakeUploader{}, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.JoinChat("chat-1"))

	tempID, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.NotEmpty(t, tempID)

	// Optimistic entry is visible immediately, before any ack.
	msgs := c.Conversation().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Body)

	require.Eventually(t, func() bool {
		msgs := c.Conversation().Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1" && msgs[0].Status == StatusDelivered
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSendUploadsBeforeWire(t *testing.T) {
	srv := newSocketServer(t, nil)
	up := &fakeUploader{}

	c := NewClient(srv.wsURL(), "alice", up, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.JoinChat("chat-1"))

	_, err := c.Send(context.Background(), "with file", []Attachment{{Name: "cv.pdf", Data: []byte("x")}})
	require.NoError(t, err)
	require.Equal(t, 1, up.calls)

	msgs := c.Conversation().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, []string{"https://files.example/cv.pdf"}, msgs[0].Attachments)
}

func TestUploadFailureAbortsWithoutOptimisticEntry(t *testing.T) {
	srv := newSocketServer(t, nil)
	up := &fakeUploader{err: errors.New("bucket unavailable")}

	c := NewClient(srv.wsURL(), "alice", up, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.JoinChat("chat-1"))

	_, err := c.Send(context.Background(), "doomed", []Attachment{{Name: "a", Data: []byte("x")}})
	require.Error(t, err)
	require.Empty(t, c.Conversation().Messages())
}

func TestMessageErrorThenRetry(t *testing.T) {
	rejectOnce := true
	srv := newSocketServer(t, func(conn *websocket.Conn, env envelope) {
		if env.Event != EventMessage {
			return
		}
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		if rejectOnce {
			rejectOnce = false
			mustWrite(conn, EventMessageError, messageErrorPayload{TempID: p.Message.TempID, Error: "rate limited"})
			return
		}
		saved := p.Message
		saved.ID = "srv-2"
		saved.TempID = ""
		mustWrite(conn, EventMessageSaved, messageSavedPayload{Message: saved, TempID: p.Message.TempID})
	})

	c := NewClient(srv.wsURL(), "alice", &fakeUploader{}, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.JoinChat("chat-1"))

	tempID, err := c.Send(context.Background(), "flaky", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := c.Conversation().Messages()
		return len(msgs) == 1 && msgs[0].Status == StatusFailed
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, c.RetryMessage(tempID))

	require.Eventually(t, func() bool {
		msgs := c.Conversation().Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-2" && msgs[0].Status == StatusDelivered
	}, 3*time.Second, 20*time.Millisecond)

	// The pending payload is gone once acknowledged.
	require.ErrorIs(t, c.RetryMessage(tempID), ErrUnknownTempID)
}

func TestInboundBroadcastAndReceipts(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn, env envelope) {
		if env.Event != EventJoinChat {
			return
		}
		mustWrite(conn, EventMessage, messagePayload{
			Message: Message{ID: "m1", ChatID: "chat-1", SenderID: "bob", Body: "hi"},
			ChatID:  "chat-1",
		})
		mustWrite(conn, EventMessage, messagePayload{
			Message: Message{ID: "m1", ChatID: "chat-1", SenderID: "bob", Body: "hi"},
			ChatID:  "chat-1",
		})
		mustWrite(conn, EventMessageRead, messageReadPayload{MessageID: "m1", UserID: "alice"})
		mustWrite(conn, EventMessageDelivered, messageDeliveredPayload{MessageID: "m1"})
	})

	c := NewClient(srv.wsURL(), "alice", &fakeUploader{}, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.JoinChat("chat-1"))

	require.Eventually(t, func() bool {
		msg, ok := c.Conversation().Get("m1")
		return ok && msg.Status == StatusRead
	}, 3*time.Second, 20*time.Millisecond)

	// Duplicate broadcast produced one entry; late delivered kept read.
	require.Len(t, c.Conversation().Messages(), 1)
	msg, _ := c.Conversation().Get("m1")
	require.Equal(t, StatusRead, msg.Status)
}

func TestTypingIndicators(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn, env envelope) {
		if env.Event == EventTypingStart {
			mustWrite(conn, EventTypingStart, typingPayload{UserID: "bob"})
		}
	})

	c := NewClient(srv.wsURL(), "alice", &fakeUploader{}, testLogger())
	typing := make(chan bool, 1)
	c.OnTyping(func(userID string, active bool) {
		if userID == "bob" {
			typing <- active
		}
	})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.Typing(true))

	select {
	case active := <-typing:
		require.True(t, active)
	case <-time.After(3 * time.Second):
		t.Fatal("no typing event received")
	}
}

func TestRetryRequiresFailedSend(t *testing.T) {
	srv := newSocketServer(t, nil)

	c := NewClient(srv.wsURL(), "alice", &fakeUploader{}, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.JoinChat("chat-1"))

	tempID, err := c.Send(context.Background(), "in flight", nil)
	require.NoError(t, err)

	// No ack arrived, the message is still sending: retrying would emit a
	// duplicate, so it must be refused.
	require.ErrorIs(t, c.RetryMessage(tempID), ErrNotRetryable)

	// The wire saw the message exactly once.
	require.Equal(t, 1, countFrames(srv, EventMessage, 300*time.Millisecond))
}

func TestReconnectRejoinsChat(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	joins := make(chan string, 4)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env envelope
			if json.Unmarshal(frame, &env) != nil || env.Event != EventJoinChat {
				continue
			}
			var p joinChatPayload
			_ = json.Unmarshal(env.Data, &p)
			joins <- p.ChatID

			// Drop the first connection right after the join to force
			// the client through its reconnect path.
			if n == 1 {
				conn.Close()
				return
			}
		}
	}))
	defer srv.Close()

	c := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), "alice", &fakeUploader{}, testLogger())
	c.reconnectDelay = 20 * time.Millisecond
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.JoinChat("chat-1"))

	for i := 0; i < 2; i++ {
		select {
		case id := <-joins:
			require.Equal(t, "chat-1", id)
		case <-time.After(3 * time.Second):
			t.Fatalf("join %d never arrived", i+1)
		}
	}

	require.Eventually(t, c.Connected, 3*time.Second, 20*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, conns)
}

func TestConnectGivesUpAfterBoundedAttempts(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1", "alice", &fakeUploader{}, testLogger())
	c.reconnectAttempts = 2
	c.reconnectDelay = time.Millisecond

	err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrGaveUp)
}

func TestCloseTwice(t *testing.T) {
	srv := newSocketServer(t, nil)

	c := NewClient(srv.wsURL(), "alice", &fakeUploader{}, testLogger())
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	require.NotPanics(t, func() { _ = c.Close() })
}

// countFrames drains the server's received frames for the window and counts
// those of the given kind.
func countFrames(srv *socketServer, kind EventKind, window time.Duration) int {
	deadline := time.After(window)
	count := 0
	for {
		select {
		case env := <-srv.frames:
			if env.Event == kind {
				count++
			}
		case <-deadline:
			return count
		}
	}
}

func TestUnknownEventDropped(t *testing.T) {
	c := NewClient("ws://unused", "alice", &fakeUploader{}, testLogger())

	c.handleFrame([]byte(`{"event":"presence-ping","data":{}}`))
	c.handleFrame([]byte(`not json`))

	require.Empty(t, c.Conversation().Messages())
}

func TestEmitWhileDisconnected(t *testing.T) {
	c := NewClient("ws://unused", "alice", &fakeUploader{}, testLogger())
	require.ErrorIs(t, c.JoinChat("chat-1"), ErrNotConnected)
}

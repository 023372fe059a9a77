package chat

import (
	"encoding/json"
	"fmt"
)

// EventKind enumerates every event the chat socket speaks. The set is
// closed: decodeEvent and the client dispatch handle each kind explicitly
// and drop anything else.
type EventKind string

const (
	EventJoinChat         EventKind = "join-chat"
	EventMessage          EventKind = "message"
	EventMessageSaved     EventKind = "message-saved"
	EventMessageError     EventKind = "message-error"
	EventMessageDelivered EventKind = "message-delivered"
	EventMessageRead      EventKind = "message-read"
	EventTypingStart      EventKind = "typing-start"
	EventTypingStop       EventKind = "typing-stop"
)

type envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinChatPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type messagePayload struct {
	Message Message `json:"message"`
	ChatID  string  `json:"chatId"`
}

type messageSavedPayload struct {
	Message Message `json:"message"`
	TempID  string  `json:"tempId"`
}

type messageErrorPayload struct {
	TempID string `json:"tempId"`
	Error  string `json:"error"`
}

type messageDeliveredPayload struct {
	MessageID string `json:"messageId"`
}

type messageReadPayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type typingPayload struct {
	UserID string `json:"userId"`
}

func encodeEvent(kind EventKind, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return json.Marshal(envelope{Event: kind, Data: data})
}

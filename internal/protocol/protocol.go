// Package protocol defines the frames exchanged between chat clients and the server.
//
// Every frame is a JSON object with a "type" discriminant. Client requests may
// carry an "id" which the server echoes on the matching control reply.
package protocol

import (
	"errors"
	"fmt"

	"parley/internal/models"

	"github.com/goccy/go-json"
)

var ErrMalformedFrame = errors.New("malformed frame")

// OutgoingKind enumerates client to server messages.
type OutgoingKind string

const (
	OutLogin         OutgoingKind = "0"
	OutCreateAccount OutgoingKind = "1"
	OutMessage       OutgoingKind = "2"
	OutFetchChat     OutgoingKind = "3"
)

func (k OutgoingKind) Valid() bool {
	switch k {
	case OutLogin, OutCreateAccount, OutMessage, OutFetchChat:
		return true
	default:
		return false
	}
}

func (k OutgoingKind) String() string {
	switch k {
	case OutLogin:
		return "LOGIN"
	case OutCreateAccount:
		return "CREATE_ACCOUNT"
	case OutMessage:
		return "MESSAGE"
	case OutFetchChat:
		return "FETCH_CHAT"
	default:
		return fmt.Sprintf("UNKNOWN(%s)", string(k))
	}
}

// IncomingKind enumerates server to client messages.
type IncomingKind string

const (
	InMessage                 IncomingKind = "0"
	InSuccessfulLogin         IncomingKind = "1"
	InSuccessfulCreateAccount IncomingKind = "2"
	InInvalidUsername         IncomingKind = "3"
	InDuplicateUsername       IncomingKind = "4"
	InChatHistory             IncomingKind = "5"
	// InTimeout is synthesized by the client and never crosses the wire.
	InTimeout IncomingKind = "6"
	InError   IncomingKind = "7"
)

// Valid reports whether the kind may appear in a frame.
func (k IncomingKind) Valid() bool {
	switch k {
	case InMessage,
		InSuccessfulLogin,
		InSuccessfulCreateAccount,
		InInvalidUsername,
		InDuplicateUsername,
		InChatHistory,
		InError:
		return true
	default:
		return false
	}
}

// IsReply reports whether the kind answers a request.
// Live messages and local timeouts are not replies.
func (k IncomingKind) IsReply() bool {
	return k.Valid() && k != InMessage
}

func (k IncomingKind) String() string {
	switch k {
	case InMessage:
		return "MESSAGE"
	case InSuccessfulLogin:
		return "SUCCESSFUL_LOGIN"
	case InSuccessfulCreateAccount:
		return "SUCCESSFUL_CREATE_ACCOUNT"
	case InInvalidUsername:
		return "INVALID_USERNAME"
	case InDuplicateUsername:
		return "DUPLICATE_USERNAME"
	case InChatHistory:
		return "CHAT_HISTORY"
	case InTimeout:
		return "TIMEOUT"
	case InError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%s)", string(k))
	}
}

// OutgoingMessage is a request sent by a client.
type OutgoingMessage struct {
	Type     OutgoingKind `json:"type"`
	ID       uint64       `json:"id,omitempty"`
	Username string       `json:"username,omitempty"` // LOGIN, CREATE_ACCOUNT, FETCH_CHAT
	To       string       `json:"to,omitempty"`       // MESSAGE
	Message  string       `json:"message,omitempty"`  // MESSAGE
}

// IncomingMessage is a frame sent by the server, or a locally synthesized timeout.
type IncomingMessage struct {
	Type     IncomingKind          `json:"type"`
	ID       uint64                `json:"id,omitempty"`
	From     string                `json:"from,omitempty"`    // MESSAGE
	Message  string                `json:"message,omitempty"` // MESSAGE
	Payload  string                `json:"payload,omitempty"` // ERROR reason
	Messages []models.HistoryEntry `json:"messages,omitempty"`
}

func Login(username string) OutgoingMessage {
	return OutgoingMessage{Type: OutLogin, Username: username}
}

func CreateAccount(username string) OutgoingMessage {
	return OutgoingMessage{Type: OutCreateAccount, Username: username}
}

func Message(to, text string) OutgoingMessage {
	return OutgoingMessage{Type: OutMessage, To: to, Message: text}
}

func FetchChat(username string) OutgoingMessage {
	return OutgoingMessage{Type: OutFetchChat, Username: username}
}

// Control builds a reply that carries no data besides its kind.
func Control(kind IncomingKind, id uint64) IncomingMessage {
	return IncomingMessage{Type: kind, ID: id}
}

func Error(id uint64, reason string) IncomingMessage {
	return IncomingMessage{Type: InError, ID: id, Payload: reason}
}

func Live(from, text string) IncomingMessage {
	return IncomingMessage{Type: InMessage, From: from, Message: text}
}

func History(id uint64, entries []models.HistoryEntry) IncomingMessage {
	return IncomingMessage{Type: InChatHistory, ID: id, Messages: entries}
}

func EncodeOutgoing(msg OutgoingMessage) ([]byte, error) {
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: cannot encode outgoing type %s", ErrMalformedFrame, msg.Type)
	}
	return json.Marshal(msg)
}

func EncodeIncoming(msg IncomingMessage) ([]byte, error) {
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: cannot encode incoming type %s", ErrMalformedFrame, msg.Type)
	}
	return json.Marshal(msg)
}

func DecodeOutgoing(frame []byte) (OutgoingMessage, error) {
	var msg OutgoingMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return OutgoingMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !msg.Type.Valid() {
		return OutgoingMessage{}, fmt.Errorf("%w: unknown outgoing type %q", ErrMalformedFrame, string(msg.Type))
	}
	return msg, nil
}

func DecodeIncoming(frame []byte) (IncomingMessage, error) {
	var msg IncomingMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return IncomingMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if !msg.Type.Valid() {
		return IncomingMessage{}, fmt.Errorf("%w: unknown incoming type %q", ErrMalformedFrame, string(msg.Type))
	}
	return msg, nil
}

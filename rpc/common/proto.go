package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Cmd  string   `json:"cmd,omitempty"`  // Used for: Command (request)
	Args [][]byte `json:"args,omitempty"` // Used for: Command (request)

	// Reply fields
	Kind  ReplyKind `json:"kind,omitempty"`  // Used for: Command (response)
	Int   int64     `json:"int,omitempty"`   // Used for: integer replies
	Value []byte    `json:"value,omitempty"` // Used for: status and bulk replies, Auth (request)
	Items []Item    `json:"items,omitempty"` // Used for: array replies
	Err   string    `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message

	// Batch holds the sub messages of a Batch request or response, in order
	Batch []Message `json:"batch,omitempty"`

	// Meta information (session token)
	Meta []byte `json:"meta,omitempty"`
}

// Item is one element of an array reply. Nil marks a missing element.
type Item struct {
	Value []byte `json:"value,omitempty"`
	Nil   bool   `json:"nil,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewCommandRequest creates a new Command request
func NewCommandRequest(cmd string, args [][]byte) *Message {
	return &Message{
		MsgType: MsgTCommand,
		Cmd:     cmd,
		Args:    args,
	}
}

// NewBatchRequest creates a new Batch request from command requests
func NewBatchRequest(cmds []Message) *Message {
	return &Message{
		MsgType: MsgTBatch,
		Batch:   cmds,
	}
}

// NewBatchResponse creates a new Batch response
func NewBatchResponse(replies []Message) *Message {
	return &Message{
		MsgType: MsgTBatch,
		Batch:   replies,
	}
}

// NewAuthRequest creates a new Auth request
func NewAuthRequest(password string) *Message {
	return &Message{
		MsgType: MsgTAuth,
		Value:   []byte(password),
	}
}

// NewAuthResponse creates a new Auth response carrying the session token
func NewAuthResponse(token []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTAuth,
		Kind:    ReplyStatus,
		Value:   []byte("OK"),
		Meta:    token,
	}
	if err != nil {
		msg.Kind = ReplyNone
		msg.Value = nil
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSuccess:
		return "success"
	case MsgTError:
		return "error"
	case MsgTCommand:
		return "command"
	case MsgTBatch:
		return "batch"
	case MsgTAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "unknown":
		*t = MsgTUnknown
	case "success":
		*t = MsgTSuccess
	case "error":
		*t = MsgTError
	case "command":
		*t = MsgTCommand
	case "batch":
		*t = MsgTBatch
	case "auth":
		*t = MsgTAuth
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Keyspace operations

	MsgTCommand // Execute a single command
	MsgTBatch   // Execute several commands in order

	// Session operations

	MsgTAuth // Authenticate and obtain a session token
)

// --------------------------------------------------------------------------
// Reply Kind Definition
// --------------------------------------------------------------------------

// ReplyKind tells how the reply fields of a message are to be interpreted.
type ReplyKind uint8

const (
	ReplyNone   ReplyKind = iota // No reply (requests, errors)
	ReplyNil                     // Missing value
	ReplyStatus                  // Status string in Value (e.g. "OK")
	ReplyInt                     // Integer in Int
	ReplyBulk                    // Binary safe string in Value
	ReplyArray                   // Elements in Items
)

// String returns the string representation of a ReplyKind.
func (k ReplyKind) String() string {
	switch k {
	case ReplyNil:
		return "nil"
	case ReplyStatus:
		return "status"
	case ReplyInt:
		return "int"
	case ReplyBulk:
		return "bulk"
	case ReplyArray:
		return "array"
	default:
		return "none"
	}
}

// MarshalJSON encodes a ReplyKind as its name
func (k ReplyKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a ReplyKind from its name
func (k *ReplyKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "none":
		*k = ReplyNone
	case "nil":
		*k = ReplyNil
	case "status":
		*k = ReplyStatus
	case "int":
		*k = ReplyInt
	case "bulk":
		*k = ReplyBulk
	case "array":
		*k = ReplyArray
	default:
		return fmt.Errorf("unknown reply kind: %s", s)
	}

	return nil
}

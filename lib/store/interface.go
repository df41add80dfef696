package store

import (
	"strconv"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that creates a new, empty keyspace.
// The node server uses it to create one keyspace per namespace.
type Factory func() IStore

// IStore is the interface of a single keyspace executing Redis style commands.
// Every command returns exactly one Reply; failures are reported in Reply.Err and
// never as a panic.
type IStore interface {
	// Exec executes one command. The command name is case-insensitive, args are the
	// raw arguments (for keyed commands the key is args[0]).
	Exec(cmd string, args [][]byte) Reply
	// Size returns the number of keys in the keyspace, including keys whose
	// expiry has passed but which were not yet collected.
	Size() int
	// Flush removes every key from the keyspace.
	Flush()
}

// --------------------------------------------------------------------------
// Reply Type
// --------------------------------------------------------------------------

// ReplyKind tells which field of a Reply holds the result.
type ReplyKind uint8

const (
	KindNil    ReplyKind = iota // Missing value
	KindStatus                  // Status string in Value (e.g. "OK")
	KindInt                     // Integer in Int
	KindBulk                    // Binary safe string in Value
	KindArray                   // Elements in Items
	KindError                   // Error in Err
)

// Item is one element of an array reply. Nil marks a missing element.
type Item struct {
	Value []byte
	Nil   bool
}

// Reply is the result of a single command.
type Reply struct {
	Kind  ReplyKind
	Int   int64
	Value []byte
	Items []Item
	Err   *Error
}

// OK returns the "OK" status reply
func OK() Reply { return Reply{Kind: KindStatus, Value: []byte("OK")} }

// Status returns a status reply
func Status(s string) Reply { return Reply{Kind: KindStatus, Value: []byte(s)} }

// Int returns an integer reply
func Int(n int64) Reply { return Reply{Kind: KindInt, Int: n} }

// Bool returns the integer reply 1 for true and 0 for false
func Bool(b bool) Reply {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Bulk returns a bulk string reply
func Bulk(b []byte) Reply { return Reply{Kind: KindBulk, Value: b} }

// Float returns a bulk reply holding the shortest representation of f
func Float(f float64) Reply {
	return Bulk([]byte(strconv.FormatFloat(f, 'f', -1, 64)))
}

// Nil returns the nil reply
func Nil() Reply { return Reply{Kind: KindNil} }

// Array returns an array reply
func Array(items []Item) Reply {
	if items == nil {
		items = []Item{}
	}
	return Reply{Kind: KindArray, Items: items}
}

// Values returns an array reply without nil elements
func Values(values [][]byte) Reply {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = Item{Value: v}
	}
	return Array(items)
}

// Fail returns an error reply
func Fail(code RetCode, msg string) Reply {
	return Reply{Kind: KindError, Err: NewError(code, msg)}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface. The message is prefixed with the
// error class of the code, the way Redis servers report errors.
func (e *Error) Error() string {
	return e.Code.Prefix() + " " + e.Msg
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Command is unknown or not supported by the keyspace.
	RetCInvalidOperation                    // 3: Invalid operation (e.g. index out of range, no such key).
	RetCWrongType                           // 4: Operation against a key holding the wrong kind of value.
	RetCSyntax                              // 5: Syntax error or wrong number of arguments.
	RetCNotInteger                          // 6: Value or argument is not an integer or out of range.
	RetCNotFloat                            // 7: Value or argument is not a valid float.
	RetCNoAuth                              // 8: Authentication required.
)

// Prefix returns the error class reported in front of the message
func (c RetCode) Prefix() string {
	switch c {
	case RetCWrongType:
		return "WRONGTYPE"
	case RetCNoAuth:
		return "NOAUTH"
	default:
		return "ERR"
	}
}

// Common error messages
const (
	errWrongType = "Operation against a key holding the wrong kind of value"
	errNotInt    = "value is not an integer or out of range"
	errNotFloat  = "value is not a valid float"
	errSyntax    = "syntax error"
)

// WrongType returns the reply for operations on a key of another type
func WrongType() Reply { return Fail(RetCWrongType, errWrongType) }

// NotInteger returns the reply for arguments or values that are no integers
func NotInteger() Reply { return Fail(RetCNotInteger, errNotInt) }

// NotFloat returns the reply for arguments or values that are no floats
func NotFloat() Reply { return Fail(RetCNotFloat, errNotFloat) }

// SyntaxError returns the generic syntax error reply
func SyntaxError() Reply { return Fail(RetCSyntax, errSyntax) }

// WrongArgs returns the reply for a command called with a wrong number of arguments
func WrongArgs(cmd string) Reply {
	return Fail(RetCSyntax, "wrong number of arguments for '"+cmd+"' command")
}

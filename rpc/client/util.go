package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/shardkv/rpc/common"
)

// --------------------------------------------------------------------------
// Reply Errors
// --------------------------------------------------------------------------

// ReplyError is an error reported by the node, e.g. "WRONGTYPE Operation against a key
// holding the wrong kind of value". Transport failures are never ReplyErrors.
type ReplyError struct {
	Msg string
}

func (e *ReplyError) Error() string {
	return e.Msg
}

// Prefix returns the error class (the first word of the message, e.g. "ERR")
func (e *ReplyError) Prefix() string {
	prefix, _, _ := strings.Cut(e.Msg, " ")
	return prefix
}

// --------------------------------------------------------------------------
// Argument Encoding
// --------------------------------------------------------------------------

// EncodeArg converts a command argument to the byte string sent to the node.
// Strings and byte slices are sent unchanged, numbers in their decimal form and
// bools as "1" or "0". Other values are formatted with fmt.Sprint.
func EncodeArg(arg any) ([]byte, error) {
	switch v := arg.(type) {
	case nil:
		return nil, fmt.Errorf("nil is not a valid argument")
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
	case bool:
		if v {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	default:
		return []byte(fmt.Sprint(v)), nil
	}
}

// EncodeArgs converts all arguments with EncodeArg
func EncodeArgs(args []any) ([][]byte, error) {
	out := make([][]byte, len(args))
	for i, arg := range args {
		b, err := EncodeArg(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Reply Decoding
// --------------------------------------------------------------------------

// DecodeReply converts a response message into a Go value: nil, string (status and
// bulk replies), int64 or []any (elements are strings or nil). Error responses are
// returned as *ReplyError.
func DecodeReply(msg *common.Message) (any, error) {
	if msg.MsgType == common.MsgTError || msg.Err != "" {
		return nil, &ReplyError{Msg: msg.Err}
	}
	switch msg.Kind {
	case common.ReplyNil:
		return nil, nil
	case common.ReplyStatus, common.ReplyBulk:
		return string(msg.Value), nil
	case common.ReplyInt:
		return msg.Int, nil
	case common.ReplyArray:
		out := make([]any, len(msg.Items))
		for i, item := range msg.Items {
			if !item.Nil {
				out[i] = string(item.Value)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected reply kind %s in %s response", msg.Kind, msg.MsgType)
	}
}

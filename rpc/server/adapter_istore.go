package server

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/shardkv/lib/store"
	"github.com/ValentinKolb/shardkv/rpc/common"
)

// NewIStoreServerAdapter returns the adapter executing command and batch requests
// against a keyspace
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse("ERR handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTCommand:
		resp := adapter.exec(req, s)
		return &resp
	case common.MsgTBatch:
		replies := make([]common.Message, len(req.Batch))
		for i := range req.Batch {
			if req.Batch[i].MsgType != common.MsgTCommand {
				replies[i] = *common.NewErrorResponse(
					fmt.Sprintf("ERR batch element %d is not a command: %s", i, req.Batch[i].MsgType))
				continue
			}
			replies[i] = adapter.exec(&req.Batch[i], s)
		}
		return common.NewBatchResponse(replies)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("ERR unsupported message type: %s", req.MsgType),
		)
	}
}

// exec runs one command. Keyspace wide commands are answered here, everything
// else is executed by the store.
func (adapter *iStoreServerAdapterImpl) exec(req *common.Message, s store.IStore) common.Message {
	switch strings.ToLower(req.Cmd) {
	case "ping":
		if len(req.Args) > 0 {
			return ReplyToMessage(store.Bulk(req.Args[0]))
		}
		return ReplyToMessage(store.Status("PONG"))
	case "echo":
		if len(req.Args) != 1 {
			return ReplyToMessage(store.WrongArgs("echo"))
		}
		return ReplyToMessage(store.Bulk(req.Args[0]))
	case "dbsize":
		return ReplyToMessage(store.Int(int64(s.Size())))
	case "flushdb":
		s.Flush()
		return ReplyToMessage(store.OK())
	default:
		return ReplyToMessage(s.Exec(req.Cmd, req.Args))
	}
}

// ReplyToMessage converts a keyspace reply into a response message
func ReplyToMessage(r store.Reply) common.Message {
	switch r.Kind {
	case store.KindError:
		if r.Err == nil {
			return *common.NewErrorResponse("ERR unknown error")
		}
		return *common.NewErrorResponse(r.Err.Error())
	case store.KindNil:
		return common.Message{MsgType: common.MsgTSuccess, Kind: common.ReplyNil}
	case store.KindStatus:
		return common.Message{MsgType: common.MsgTSuccess, Kind: common.ReplyStatus, Value: nonNil(r.Value)}
	case store.KindInt:
		return common.Message{MsgType: common.MsgTSuccess, Kind: common.ReplyInt, Int: r.Int}
	case store.KindBulk:
		return common.Message{MsgType: common.MsgTSuccess, Kind: common.ReplyBulk, Value: nonNil(r.Value)}
	case store.KindArray:
		items := make([]common.Item, len(r.Items))
		for i, it := range r.Items {
			items[i] = common.Item{Value: it.Value, Nil: it.Nil}
		}
		return common.Message{MsgType: common.MsgTSuccess, Kind: common.ReplyArray, Items: items}
	default:
		return *common.NewErrorResponse(fmt.Sprintf("ERR unknown reply kind %d", r.Kind))
	}
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/shardkv/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Layout: 1 byte MsgType, 2 bytes flags (big endian), then every field whose flag is set,
// in flag order. Byte strings are prefixed with their uint32 length, lists with their
// uint32 element count. Batch elements are nested messages prefixed with their length.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasCmd   uint16 = 1 << 0
	hasArgs  uint16 = 1 << 1
	hasKind  uint16 = 1 << 2
	hasInt   uint16 = 1 << 3
	hasValue uint16 = 1 << 4
	hasItems uint16 = 1 << 5
	hasErr   uint16 = 1 << 6
	hasBatch uint16 = 1 << 7
	hasMeta  uint16 = 1 << 8
)

const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Allocate the exact size once
	result := make([]byte, 0, b.sizeBytes(msg))
	return b.appendMessage(result, &msg), nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	*msg = common.Message{}
	r := reader{data: data}
	if err := b.readMessage(&r, msg); err != nil {
		return err
	}
	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// appendMessage appends the encoding of msg to buf
func (b binarySerializerImpl) appendMessage(buf []byte, msg *common.Message) []byte {
	var flags uint16
	if msg.Cmd != "" {
		flags |= hasCmd
	}
	if msg.Args != nil {
		flags |= hasArgs
	}
	if msg.Kind != common.ReplyNone {
		flags |= hasKind
	}
	if msg.Int != 0 {
		flags |= hasInt
	}
	if msg.Value != nil {
		flags |= hasValue
	}
	if msg.Items != nil {
		flags |= hasItems
	}
	if msg.Err != "" {
		flags |= hasErr
	}
	if msg.Batch != nil {
		flags |= hasBatch
	}
	if msg.Meta != nil {
		flags |= hasMeta
	}

	// Write header
	buf = append(buf, byte(msg.MsgType))
	buf = binary.BigEndian.AppendUint16(buf, flags)

	if flags&hasCmd != 0 {
		buf = appendBytes(buf, []byte(msg.Cmd))
	}
	if flags&hasArgs != 0 {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(msg.Args)))
		for _, arg := range msg.Args {
			buf = appendBytes(buf, arg)
		}
	}
	if flags&hasKind != 0 {
		buf = append(buf, byte(msg.Kind))
	}
	if flags&hasInt != 0 {
		buf = binary.BigEndian.AppendUint64(buf, uint64(msg.Int))
	}
	if flags&hasValue != 0 {
		buf = appendBytes(buf, msg.Value)
	}
	if flags&hasItems != 0 {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(msg.Items)))
		for _, item := range msg.Items {
			if item.Nil {
				buf = append(buf, 1)
				continue
			}
			buf = append(buf, 0)
			buf = appendBytes(buf, item.Value)
		}
	}
	if flags&hasErr != 0 {
		buf = appendBytes(buf, []byte(msg.Err))
	}
	if flags&hasBatch != 0 {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(msg.Batch)))
		for i := range msg.Batch {
			buf = binary.BigEndian.AppendUint32(buf, uint32(b.sizeBytes(msg.Batch[i])))
			buf = b.appendMessage(buf, &msg.Batch[i])
		}
	}
	if flags&hasMeta != 0 {
		buf = appendBytes(buf, msg.Meta)
	}
	return buf
}

// appendBytes appends a length prefixed byte string
func appendBytes(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// reader is a bounds checked cursor over the input
type reader struct {
	data []byte
	pos  int
}

func (r *reader) next(n int, field string) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("data too short for %s", field)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) uint32(field string) (int, error) {
	b, err := r.next(4, field+" length")
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(b)), nil
}

// bytes reads a length prefixed byte string. The result is a copy and never nil.
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.uint32(field)
	if err != nil {
		return nil, err
	}
	b, err := r.next(n, field+" data")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// count reads a list length and checks that at least min bytes per element remain
func (r *reader) count(field string, min int) (int, error) {
	n, err := r.uint32(field)
	if err != nil {
		return 0, err
	}
	if n*min > len(r.data)-r.pos {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	return n, nil
}

func (b binarySerializerImpl) readMessage(r *reader, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	header, err := r.next(headerSize, "message header")
	if err != nil {
		return err
	}
	msg.MsgType = common.MessageType(header[0])
	flags := binary.BigEndian.Uint16(header[1:3])

	if flags&hasCmd != 0 {
		cmd, err := r.bytes("cmd")
		if err != nil {
			return err
		}
		msg.Cmd = string(cmd)
	}
	if flags&hasArgs != 0 {
		n, err := r.count("args", 4)
		if err != nil {
			return err
		}
		msg.Args = make([][]byte, n)
		for i := range msg.Args {
			if msg.Args[i], err = r.bytes("arg"); err != nil {
				return err
			}
		}
	}
	if flags&hasKind != 0 {
		kind, err := r.next(1, "reply kind")
		if err != nil {
			return err
		}
		msg.Kind = common.ReplyKind(kind[0])
	}
	if flags&hasInt != 0 {
		i, err := r.next(8, "int")
		if err != nil {
			return err
		}
		msg.Int = int64(binary.BigEndian.Uint64(i))
	}
	if flags&hasValue != 0 {
		if msg.Value, err = r.bytes("value"); err != nil {
			return err
		}
	}
	if flags&hasItems != 0 {
		n, err := r.count("items", 1)
		if err != nil {
			return err
		}
		msg.Items = make([]common.Item, n)
		for i := range msg.Items {
			isNil, err := r.next(1, "item flag")
			if err != nil {
				return err
			}
			if isNil[0] != 0 {
				msg.Items[i].Nil = true
				continue
			}
			if msg.Items[i].Value, err = r.bytes("item"); err != nil {
				return err
			}
		}
	}
	if flags&hasErr != 0 {
		e, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}
	if flags&hasBatch != 0 {
		n, err := r.count("batch", 4+headerSize)
		if err != nil {
			return err
		}
		msg.Batch = make([]common.Message, n)
		for i := range msg.Batch {
			size, err := r.uint32("batch element")
			if err != nil {
				return err
			}
			data, err := r.next(size, "batch element")
			if err != nil {
				return err
			}
			sub := reader{data: data}
			if err := b.readMessage(&sub, &msg.Batch[i]); err != nil {
				return fmt.Errorf("batch element %d: %w", i, err)
			}
			if sub.pos != len(data) {
				return fmt.Errorf("batch element %d: trailing bytes", i)
			}
		}
	}
	if flags&hasMeta != 0 {
		if msg.Meta, err = r.bytes("meta"); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 2 bytes for flags
	size := headerSize

	// Add sizes for fields that require length encoding
	if msg.Cmd != "" {
		size += 4 + len(msg.Cmd)
	}
	if msg.Args != nil {
		size += 4
		for _, arg := range msg.Args {
			size += 4 + len(arg)
		}
	}
	if msg.Kind != common.ReplyNone {
		size += 1
	}
	if msg.Int != 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Items != nil {
		size += 4
		for _, item := range msg.Items {
			size += 1
			if !item.Nil {
				size += 4 + len(item.Value)
			}
		}
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Batch != nil {
		size += 4
		for _, sub := range msg.Batch {
			size += 4 + b.sizeBytes(sub)
		}
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

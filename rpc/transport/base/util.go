package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	// frameHeaderSize is namespace (8) + requestID (8) + payload length (4)
	frameHeaderSize = 20
	// maxFrameSize bounds the payload of a single frame. Larger frames indicate a corrupt stream.
	maxFrameSize = 256 << 20
)

// writeFrame writes one frame to the connection:
//
//	| namespace uint64 | requestID uint64 | length uint32 | payload |
//
// All integers are big endian. Header and payload go out in a single writev.
func writeFrame(conn net.Conn, namespace uint64, requestID uint64, data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds the limit of %d bytes", len(data), maxFrameSize)
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], namespace)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads one frame into buf. A buf that is nil or too small is replaced
// by a freshly allocated one, so the returned payload may or may not alias buf.
func readFrame(conn net.Conn, buf []byte) (namespace uint64, requestID uint64, data []byte, err error) {
	if len(buf) < frameHeaderSize {
		buf = make([]byte, frameHeaderSize)
	}

	if _, err = io.ReadFull(conn, buf[:frameHeaderSize]); err != nil {
		return 0, 0, nil, err
	}
	namespace = binary.BigEndian.Uint64(buf[:8])
	requestID = binary.BigEndian.Uint64(buf[8:16])
	length := int(binary.BigEndian.Uint32(buf[16:20]))

	if length == 0 {
		return namespace, requestID, []byte{}, nil
	}
	if length > maxFrameSize {
		return 0, 0, nil, fmt.Errorf("frame of %d bytes exceeds the limit of %d bytes", length, maxFrameSize)
	}
	if len(buf) < length {
		buf = make([]byte, length)
	}

	if _, err = io.ReadFull(conn, buf[:length]); err != nil {
		return 0, 0, nil, err
	}
	return namespace, requestID, buf[:length], nil
}

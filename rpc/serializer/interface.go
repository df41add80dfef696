package serializer

import "github.com/ValentinKolb/shardkv/rpc/common"

// IRPCSerializer is the interface for all Message serializers
type IRPCSerializer interface {
	// Serialize encodes a Message into a new byte slice
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg. msg is reset first, so no field of a previous
	// message survives. The decoded message does not alias b.
	Deserialize(b []byte, msg *common.Message) error
}

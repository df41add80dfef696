package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/shardkv/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Command request
		{
			MsgType: common.MsgTCommand,
			Cmd:     "set",
			Args:    [][]byte{[]byte("test-key"), []byte("test-value")},
		},

		// Bulk reply
		{
			MsgType: common.MsgTCommand,
			Kind:    common.ReplyBulk,
			Value:   []byte("test-value"),
		},

		// Integer reply (negative)
		{
			MsgType: common.MsgTCommand,
			Kind:    common.ReplyInt,
			Int:     -42,
		},

		// Nil reply
		{
			MsgType: common.MsgTCommand,
			Kind:    common.ReplyNil,
		},

		// Array reply with a missing element
		{
			MsgType: common.MsgTCommand,
			Kind:    common.ReplyArray,
			Items:   []common.Item{{Value: []byte("a")}, {Nil: true}, {Value: []byte("c")}},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Auth request and response
		{
			MsgType: common.MsgTAuth,
			Value:   []byte("secret"),
		},
		{
			MsgType: common.MsgTAuth,
			Kind:    common.ReplyStatus,
			Value:   []byte("OK"),
			Meta:    []byte("0f8fad5b-d9cb-469f-a165-70867728950e"),
		},

		// Batch request with session token
		{
			MsgType: common.MsgTBatch,
			Batch: []common.Message{
				{MsgType: common.MsgTCommand, Cmd: "incr", Args: [][]byte{[]byte("counter")}},
				{MsgType: common.MsgTCommand, Cmd: "get", Args: [][]byte{[]byte("key")}},
			},
			Meta: []byte("token"),
		},

		// Batch response mixing reply kinds and errors
		{
			MsgType: common.MsgTBatch,
			Batch: []common.Message{
				{MsgType: common.MsgTCommand, Kind: common.ReplyInt, Int: 1},
				{MsgType: common.MsgTCommand, Err: "WRONGTYPE Operation against a key holding the wrong kind of value"},
				{MsgType: common.MsgTCommand, Kind: common.ReplyStatus, Value: []byte("OK")},
			},
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTAuth; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTCommand,
				Kind:    common.ReplyBulk,
				Value:   []byte{},
			},
		},
		{
			name: "Empty argument",
			msg: common.Message{
				MsgType: common.MsgTCommand,
				Cmd:     "set",
				Args:    [][]byte{[]byte("k"), {}},
			},
		},
		{
			name: "Empty arg list but not nil",
			msg: common.Message{
				MsgType: common.MsgTCommand,
				Cmd:     "ping",
				Args:    [][]byte{},
			},
		},
		{
			name: "Empty array reply",
			msg: common.Message{
				MsgType: common.MsgTCommand,
				Kind:    common.ReplyArray,
				Items:   []common.Item{},
			},
		},
		{
			name: "Empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTSuccess,
				Meta:    []byte{},
			},
		},
		{
			name: "Nested batch",
			msg: common.Message{
				MsgType: common.MsgTBatch,
				Batch: []common.Message{
					{MsgType: common.MsgTBatch, Batch: []common.Message{{MsgType: common.MsgTSuccess}}},
					{},
				},
			},
		},
		{
			name: "Large integer",
			msg: common.Message{
				MsgType: common.MsgTCommand,
				Kind:    common.ReplyInt,
				Int:     -1 << 62,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// The size calculation must match the encoding
			if size := (binarySerializerImpl{}).sizeBytes(tc.msg); size != len(data) {
				t.Errorf("Size mismatch: calculated %d, encoded %d", size, len(data))
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// The binary format keeps the difference between nil and empty slices
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v", tc.msg, result)
			}
		})
	}
}

// TestDeserializeResetsMessage tests that fields of a reused message do not leak into the next one
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTSuccess, Int: 1})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			msg := common.Message{MsgType: common.MsgTCommand, Cmd: "get", Err: "old", Items: []common.Item{{Nil: true}}}
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if msg.Cmd != "" || msg.Err != "" || msg.Items != nil || msg.MsgType != common.MsgTSuccess || msg.Int != 1 {
				t.Errorf("Stale fields after deserialize: %+v", msg)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Message type and half of the flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for cmd",
			data:        []byte{3, 0, 1, 0, 0, 0, 5, 'g', 'e', 't'}, // Claims cmd length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{3, 0, 16, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Huge arg count",
			data:        []byte{3, 0, 2, 0xff, 0xff, 0xff, 0xff},
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        []byte{1, 0, 0, 42},
			expectError: true,
		},
		{
			name:        "Truncated batch element",
			data:        []byte{4, 0, 128, 0, 0, 0, 1, 0, 0, 0, 9, 1, 0, 0},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

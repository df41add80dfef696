package ring

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/go-faster/city"
	"github.com/spaolacci/murmur3"
)

// HashFunc maps a string onto the signed 32-bit ring space.
type HashFunc func(s string) int32

// CRC32 computes the IEEE CRC-32 checksum of the UTF-8 bytes of s and reinterprets
// it as a two's complement int32, so checksums above 0x7fffffff become value - 2^32.
// This is the default ring hash and must stay bit-compatible with every other client
// resolving the same key space.
func CRC32(s string) int32 {
	return int32(crc32.ChecksumIEEE([]byte(s)))
}

// Murmur3 hashes s with the 32-bit murmur3 function (seed 0)
func Murmur3(s string) int32 {
	return int32(murmur3.Sum32([]byte(s)))
}

// City hashes s with the 32-bit CityHash function
func City(s string) int32 {
	return int32(city.Hash32([]byte(s)))
}

// Hash is the default hash function of the ring (CRC32).
func Hash(s string) int32 {
	return CRC32(s)
}

// ParseHashFunc returns the hash function for the given name (crc32, murmur3, city).
// An empty name selects crc32.
func ParseHashFunc(name string) (HashFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "crc32":
		return CRC32, nil
	case "murmur3", "murmur":
		return Murmur3, nil
	case "city", "cityhash":
		return City, nil
	default:
		return nil, fmt.Errorf("unknown hash function %q (expected one of crc32, murmur3, city)", name)
	}
}

package hash

import (
	"github.com/cespare/xxhash/v2"
)

// Integer covers the built-in integer types usable as identity-hashed keys.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// IdentityHash maps an integer key to itself. The directory indexes on the
// low bits of the hash, so consecutive integer keys spread evenly across
// buckets without any mixing.
func IdentityHash[K Integer](key K) uint64 {
	return uint64(key)
}

// HashString hashes a string key with xxhash.
func HashString(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Package hash provides a 64-bit content hash, exposed to the cp layer
// as cpool.Key; the constant-pool dedup tables are keyed by string and do
// not use it.
package hash

import "github.com/cespare/xxhash/v2"

// Bytes computes the xxHash64 of data.
func Bytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// String computes the xxHash64 of a string.
func String(s string) uint64 {
	return xxhash.Sum64String(s)
}

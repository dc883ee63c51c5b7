// Package hash provides the identifier hash used to admit strings into a
// stream's dictionary.
package hash

import "github.com/cespare/xxhash/v2"

// ID returns the 64-bit identifier for a string, used as the dictionary's
// admission-index key and as the seed for collision detection.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

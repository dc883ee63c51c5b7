package pool

import "sync"

// stringSlicePool reuses []string backing arrays handed out by
// GetStringSlice. The encoder does not draw from it: its pending dict-add
// batch (§4.4 step 2) is a slice the Encoder keeps itself.
var stringSlicePool = sync.Pool{
	New: func() any { return &[]string{} },
}

// GetStringSlice retrieves and resizes a string slice from the pool.
//
// The returned slice will have the exact length specified by size. If the
// pooled slice has insufficient capacity, a new slice is allocated. The
// caller must call the returned cleanup function to return the slice to
// the pool.
func GetStringSlice(size int) ([]string, func()) {
	ptr, _ := stringSlicePool.Get().(*[]string)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]string, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { stringSlicePool.Put(ptr) }
}

package pool

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ByteBuffer Tests
// =============================================================================

func TestNewByteBuffer(t *testing.T) {
	capacity := 1024
	bb := NewByteBuffer(capacity)

	require.NotNil(t, bb)
	require.NotNil(t, bb.B)
	assert.Equal(t, 0, len(bb.B), "new buffer should have zero length")
	assert.Equal(t, capacity, cap(bb.B), "new buffer should have specified capacity")
}

func TestByteBuffer_Bytes(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	bb.B = append(bb.B, []byte("hello")...)

	bytes := bb.Bytes()

	assert.Equal(t, []byte("hello"), bytes)
	assert.True(t, &bb.B[0] == &bytes[0], "Bytes() should return the same underlying slice")
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	bb.B = append(bb.B, []byte("some data")...)
	originalCap := cap(bb.B)

	bb.Reset()

	assert.Equal(t, 0, len(bb.B), "Reset should clear the buffer length")
	assert.Equal(t, originalCap, cap(bb.B), "Reset should preserve capacity")
}

func TestByteBuffer_Len(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)

	assert.Equal(t, 0, bb.Len(), "empty buffer should have zero length")

	bb.B = append(bb.B, []byte("test")...)
	assert.Equal(t, 4, bb.Len(), "buffer length should match data")

	bb.B = append(bb.B, []byte(" data")...)
	assert.Equal(t, 9, bb.Len(), "buffer length should update after append")
}

func TestByteBuffer_MustWrite(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)

	bb.MustWrite([]byte("hello"))
	assert.Equal(t, []byte("hello"), bb.B)

	bb.MustWrite([]byte(" world"))
	assert.Equal(t, []byte("hello world"), bb.B)
}

func TestByteBuffer_MustWrite_EmptyData(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)

	bb.MustWrite([]byte{})
	assert.Equal(t, 0, bb.Len())

	bb.MustWrite([]byte("data"))
	bb.MustWrite([]byte{})
	assert.Equal(t, []byte("data"), bb.B)
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)

	n, err := bb.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("hello"), bb.B)
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	bb.B = append(bb.B, []byte("test data")...)

	var buf bytes.Buffer
	n, err := bb.WriteTo(&buf)

	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "test data", buf.String())
}

func TestByteBuffer_WriteTo_ErrorPropagation(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	bb.B = append(bb.B, []byte("test")...)

	errorWriter := &errorWriter{err: io.ErrShortWrite}
	n, err := bb.WriteTo(errorWriter)

	assert.Error(t, err)
	assert.Equal(t, io.ErrShortWrite, err)
	assert.Equal(t, int64(0), n)
}

// =============================================================================
// ByteBuffer Grow Tests
// =============================================================================

func TestByteBuffer_Grow_SufficientCapacity(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	originalCap := cap(bb.B)

	bb.Grow(100)

	assert.Equal(t, originalCap, cap(bb.B), "should not reallocate when capacity is sufficient")
}

func TestByteBuffer_Grow_SmallBuffer(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	bb.B = append(bb.B, make([]byte, RecordBufferDefaultSize)...)

	bb.Grow(1024)

	assert.GreaterOrEqual(t, cap(bb.B), RecordBufferDefaultSize+1024, "should have at least requested capacity")
	assert.Equal(t, RecordBufferDefaultSize, len(bb.B), "length should not change")
}

func TestByteBuffer_Grow_LargeBuffer(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	largeSize := 4*RecordBufferDefaultSize + 1024
	bb.B = make([]byte, largeSize)

	bb.Grow(2048)

	assert.GreaterOrEqual(t, cap(bb.B), largeSize+2048, "should have at least requested capacity")
}

func TestByteBuffer_Grow_PreservesData(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	testData := []byte("important data that must be preserved")
	bb.B = append(bb.B, testData...)

	bb.Grow(RecordBufferDefaultSize * 2)

	assert.Equal(t, testData, bb.B, "data should be preserved after growth")
}

func TestByteBuffer_Grow_ZeroBytes(t *testing.T) {
	bb := NewByteBuffer(RecordBufferDefaultSize)
	originalCap := cap(bb.B)

	bb.Grow(0)

	assert.Equal(t, originalCap, cap(bb.B), "Grow(0) should not change capacity")
}

// =============================================================================
// Pool Tests
// =============================================================================

func TestGetRecordBuffer(t *testing.T) {
	bb := GetRecordBuffer()

	require.NotNil(t, bb)
	require.NotNil(t, bb.B)
	assert.Equal(t, 0, len(bb.B), "pooled buffer should be empty")
	assert.GreaterOrEqual(t, cap(bb.B), RecordBufferDefaultSize, "pooled buffer should have at least default capacity")
}

func TestPutRecordBuffer_NilBuffer(t *testing.T) {
	assert.NotPanics(t, func() {
		PutRecordBuffer(nil)
	})
}

func TestGetPut_BufferReuse(t *testing.T) {
	bb1 := GetRecordBuffer()
	bb1.B = append(bb1.B, []byte("test data")...)

	PutRecordBuffer(bb1)

	bb2 := GetRecordBuffer()
	assert.Equal(t, 0, len(bb2.B), "buffer from pool should be reset")
}

func TestPool_ResetsClearsData(t *testing.T) {
	bb := GetRecordBuffer()
	bb.B = append(bb.B, []byte("sensitive data")...)

	PutRecordBuffer(bb)

	assert.Equal(t, 0, len(bb.B), "PutRecordBuffer should reset the buffer")
}

func TestPool_MultipleGetsAndPuts(t *testing.T) {
	buffers := make([]*ByteBuffer, 10)

	for i := range buffers {
		buffers[i] = GetRecordBuffer()
		require.NotNil(t, buffers[i])
		buffers[i].MustWrite([]byte("data"))
	}

	for _, bb := range buffers {
		PutRecordBuffer(bb)
	}

	for i := 0; i < 10; i++ {
		bb := GetRecordBuffer()
		assert.Equal(t, 0, bb.Len(), "each buffer should be reset")
		PutRecordBuffer(bb)
	}
}

func TestPool_ConcurrentAccess(t *testing.T) {
	const numGoroutines = 100
	const numIterations = 1000

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < numIterations; j++ {
				bb := GetRecordBuffer()
				bb.MustWrite([]byte("data"))
				assert.Equal(t, 4, bb.Len())
				PutRecordBuffer(bb)
			}
		}()
	}

	wg.Wait()
}

// =============================================================================
// ByteBufferPool Tests
// =============================================================================

func TestNewByteBufferPool(t *testing.T) {
	pool := NewByteBufferPool(8192, 65536)

	require.NotNil(t, pool)

	bb := pool.Get()
	require.NotNil(t, bb)
	assert.GreaterOrEqual(t, cap(bb.B), 8192, "buffer should have at least default size")

	pool.Put(bb)
}

func TestByteBufferPool_CustomSizes(t *testing.T) {
	tests := []struct {
		name         string
		defaultSize  int
		maxThreshold int
	}{
		{"Small pool", 1024, 4096},
		{"Medium pool", 16384, 131072},
		{"No threshold", 8192, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewByteBufferPool(tt.defaultSize, tt.maxThreshold)
			bb := pool.Get()
			assert.GreaterOrEqual(t, cap(bb.B), tt.defaultSize)
			pool.Put(bb)
		})
	}
}

func TestByteBufferPool_MaxThreshold_Discard(t *testing.T) {
	pool := NewByteBufferPool(1024, 4096)

	bb := pool.Get()
	bb.Grow(10000)

	assert.Greater(t, cap(bb.B), 4096, "buffer should have grown beyond threshold")

	pool.Put(bb)

	bb2 := pool.Get()
	assert.LessOrEqual(t, cap(bb2.B), 4096*2, "should not reuse buffer larger than threshold")
}

func TestByteBufferPool_MaxThreshold_Zero(t *testing.T) {
	pool := NewByteBufferPool(1024, 0)

	bb := pool.Get()
	bb.Grow(1024 * 1024)

	assert.Greater(t, cap(bb.B), 100000, "buffer should have grown to large size")

	pool.Put(bb)

	bb2 := pool.Get()
	assert.NotNil(t, bb2)
}

// =============================================================================
// Integration Tests
// =============================================================================

func TestByteBuffer_GrowAndWrite(t *testing.T) {
	bb := GetRecordBuffer()
	defer PutRecordBuffer(bb)

	bb.Grow(100 * 1024)
	initialCap := cap(bb.B)

	data := make([]byte, 50*1024)
	bb.MustWrite(data)

	assert.Equal(t, initialCap, cap(bb.B))
	assert.Equal(t, 50*1024, bb.Len())
}

func TestByteBuffer_ResetAndReuse(t *testing.T) {
	bb := GetRecordBuffer()
	defer PutRecordBuffer(bb)

	bb.MustWrite([]byte("first"))
	assert.Equal(t, 5, bb.Len())

	bb.Reset()
	assert.Equal(t, 0, bb.Len())

	bb.MustWrite([]byte("second"))
	assert.Equal(t, 6, bb.Len())
	assert.Equal(t, []byte("second"), bb.B)
}

// =============================================================================
// Helper Types
// =============================================================================

type errorWriter struct {
	err error
}

func (ew *errorWriter) Write(p []byte) (n int, err error) {
	return 0, ew.err
}

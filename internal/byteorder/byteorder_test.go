package byteorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPut(t *testing.T) {
	buf := make([]byte, 2)
	Put(buf, 0x1234)
	assert.Equal(t, []byte{0x34, 0x12}, buf)

	buf = make([]byte, 4)
	Put(buf, 0xAABBCCDD)
	assert.Equal(t, []byte{0xDD, 0xCC, 0xBB, 0xAA}, buf)

	// Truncated to destination width
	buf = make([]byte, 1)
	Put(buf, 0xFFEE)
	assert.Equal(t, []byte{0xEE}, buf)
}

func TestUint(t *testing.T) {
	assert.EqualValues(t, 0x1234, Uint([]byte{0x34, 0x12}))
	assert.EqualValues(t, 0, Uint(nil))
	assert.EqualValues(t, 0x0807060504030201, Uint([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}))
}

func TestSignExtend(t *testing.T) {
	assert.Equal(t, ^uint64(0), SignExtend(0xFFFF, 2))
	assert.EqualValues(t, 0x7FFF, SignExtend(0x7FFF, 2))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFF80), SignExtend(0x80, 1))
	assert.EqualValues(t, 0x12, SignExtend(0x12, 0))
}

// Package byteorder converts between host integers and the CANopen wire
// representation, which is always little endian.
package byteorder

import "encoding/binary"

// Put writes the len(dst) least significant bytes of v into dst, little endian.
// dst may be at most 8 bytes long.
func Put(dst []byte, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(dst, buf[:len(dst)])
}

// Uint reads up to 8 little endian bytes from src, zero extended.
// Bytes after the 8th are ignored.
func Uint(src []byte) uint64 {
	var buf [8]byte
	copy(buf[:], src)
	return binary.LittleEndian.Uint64(buf[:])
}

// SignExtend treats the n low bytes of v as a two's complement value
// and extends its sign bit to 64 bits.
func SignExtend(v uint64, n int) uint64 {
	if n <= 0 || n >= 8 {
		return v
	}
	shift := uint(8 * n)
	if v&(1<<(shift-1)) != 0 {
		return v | ^uint64(0)<<shift
	}
	return v &^ (^uint64(0) << shift)
}

package sdosync

import (
	"fmt"
	"unsafe"

	"github.com/samsamfire/sdosync/internal/byteorder"
	"github.com/samsamfire/sdosync/pkg/sdo"
)

// Integer is the closed set of integer kinds that can be transferred
type Integer interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64
}

// Width of T in bytes on the wire
func sizeOf[T Integer]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

func signed[T Integer]() bool {
	var v T
	return ^v < 0
}

// Decode wire bytes into T, shorter payloads are sign or zero extended
func decode[T Integer](data []byte) T {
	v := byteorder.Uint(data)
	if signed[T]() {
		v = byteorder.SignExtend(v, len(data))
	}
	return T(v)
}

func encode[T Integer](value T) []byte {
	data := make([]byte, sizeOf[T]())
	byteorder.Put(data, uint64(value))
	return data
}

// Read an entry from a remote node and decode it as T.
// The zero value is returned along with any error.
func ReadAs[T Integer](c *Client, nodeId uint8, index uint16, subindex uint8) (T, error) {
	var value T
	req, err := c.Read(nodeId, index, subindex)
	if err != nil {
		return value, err
	}
	defer req.Unref()

	data := req.Data()
	if len(data) > sizeOf[T]() {
		return value, fmt.Errorf("%w : node x%x x%x|x%x : %v bytes into %T", ErrRange, nodeId, index, subindex, len(data), value)
	}
	return decode[T](data), nil
}

// Encode value in wire order as the payload of info and write it to a remote node
func WriteAs[T Integer](c *Client, nodeId uint8, info *sdo.RequestInfo, value T) error {
	if info == nil {
		return c.Write(nodeId, nil)
	}
	info.Data = encode(value)
	return c.Write(nodeId, info)
}

func (c *Client) ReadInt8(nodeId uint8, index uint16, subindex uint8) (int8, error) {
	return ReadAs[int8](c, nodeId, index, subindex)
}

func (c *Client) ReadUint8(nodeId uint8, index uint16, subindex uint8) (uint8, error) {
	return ReadAs[uint8](c, nodeId, index, subindex)
}

func (c *Client) ReadInt16(nodeId uint8, index uint16, subindex uint8) (int16, error) {
	return ReadAs[int16](c, nodeId, index, subindex)
}

func (c *Client) ReadUint16(nodeId uint8, index uint16, subindex uint8) (uint16, error) {
	return ReadAs[uint16](c, nodeId, index, subindex)
}

func (c *Client) ReadInt32(nodeId uint8, index uint16, subindex uint8) (int32, error) {
	return ReadAs[int32](c, nodeId, index, subindex)
}

func (c *Client) ReadUint32(nodeId uint8, index uint16, subindex uint8) (uint32, error) {
	return ReadAs[uint32](c, nodeId, index, subindex)
}

func (c *Client) ReadInt64(nodeId uint8, index uint16, subindex uint8) (int64, error) {
	return ReadAs[int64](c, nodeId, index, subindex)
}

func (c *Client) ReadUint64(nodeId uint8, index uint16, subindex uint8) (uint64, error) {
	return ReadAs[uint64](c, nodeId, index, subindex)
}

func (c *Client) WriteInt8(nodeId uint8, info *sdo.RequestInfo, value int8) error {
	return WriteAs(c, nodeId, info, value)
}

func (c *Client) WriteUint8(nodeId uint8, info *sdo.RequestInfo, value uint8) error {
	return WriteAs(c, nodeId, info, value)
}

func (c *Client) WriteInt16(nodeId uint8, info *sdo.RequestInfo, value int16) error {
	return WriteAs(c, nodeId, info, value)
}

func (c *Client) WriteUint16(nodeId uint8, info *sdo.RequestInfo, value uint16) error {
	return WriteAs(c, nodeId, info, value)
}

func (c *Client) WriteInt32(nodeId uint8, info *sdo.RequestInfo, value int32) error {
	return WriteAs(c, nodeId, info, value)
}

func (c *Client) WriteUint32(nodeId uint8, info *sdo.RequestInfo, value uint32) error {
	return WriteAs(c, nodeId, info, value)
}

func (c *Client) WriteInt64(nodeId uint8, info *sdo.RequestInfo, value int64) error {
	return WriteAs(c, nodeId, info, value)
}

func (c *Client) WriteUint64(nodeId uint8, info *sdo.RequestInfo, value uint64) error {
	return WriteAs(c, nodeId, info, value)
}

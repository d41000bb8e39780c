package network

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samsamfire/sdosync/pkg/od"
	"github.com/samsamfire/sdosync/pkg/sdo"
	"github.com/samsamfire/sdosync/pkg/sdosync"
)

var (
	ErrDatatype  = errors.New("unsupported datatype")
	ErrValue     = errors.New("invalid value for datatype")
	ErrEdsFormat = errors.New("eds storage format is not supported")
)

// Datatype names accepted by [Network.ReadValue] and [Network.WriteValue]
var Datatypes = []string{"i8", "u8", "i16", "u16", "i32", "u32", "i64", "u64"}

var datatypeBits = map[string]int{
	"i8": 8, "u8": 8,
	"i16": 16, "u16": 16,
	"i32": 32, "u32": 32,
	"i64": 64, "u64": 64,
}

// Read an integer entry from a remote node as the given datatype
// Returned value is an int64 for signed datatypes, uint64 otherwise
func (network *Network) ReadValue(nodeId uint8, index uint16, subindex uint8, datatype string) (any, error) {
	c := network.syncClient
	switch datatype {
	case "i8":
		v, err := c.ReadInt8(nodeId, index, subindex)
		return int64(v), err
	case "u8":
		v, err := c.ReadUint8(nodeId, index, subindex)
		return uint64(v), err
	case "i16":
		v, err := c.ReadInt16(nodeId, index, subindex)
		return int64(v), err
	case "u16":
		v, err := c.ReadUint16(nodeId, index, subindex)
		return uint64(v), err
	case "i32":
		v, err := c.ReadInt32(nodeId, index, subindex)
		return int64(v), err
	case "u32":
		v, err := c.ReadUint32(nodeId, index, subindex)
		return uint64(v), err
	case "i64":
		return c.ReadInt64(nodeId, index, subindex)
	case "u64":
		return c.ReadUint64(nodeId, index, subindex)
	default:
		return nil, fmt.Errorf("%w : %q", ErrDatatype, datatype)
	}
}

// Write an integer entry of a remote node
// value is parsed according to datatype, hexadecimal values are accepted
func (network *Network) WriteValue(nodeId uint8, index uint16, subindex uint8, datatype string, value string) error {
	bits, ok := datatypeBits[datatype]
	if !ok {
		return fmt.Errorf("%w : %q", ErrDatatype, datatype)
	}
	info := &sdo.RequestInfo{Index: index, Subindex: subindex}
	c := network.syncClient
	if datatype[0] == 'i' {
		v, err := strconv.ParseInt(value, 0, bits)
		if err != nil {
			return fmt.Errorf("%w : %v", ErrValue, err)
		}
		switch bits {
		case 8:
			return c.WriteInt8(nodeId, info, int8(v))
		case 16:
			return c.WriteInt16(nodeId, info, int16(v))
		case 32:
			return c.WriteInt32(nodeId, info, int32(v))
		default:
			return c.WriteInt64(nodeId, info, v)
		}
	}
	v, err := strconv.ParseUint(value, 0, bits)
	if err != nil {
		return fmt.Errorf("%w : %v", ErrValue, err)
	}
	switch bits {
	case 8:
		return c.WriteUint8(nodeId, info, uint8(v))
	case 16:
		return c.WriteUint16(nodeId, info, uint16(v))
	case 32:
		return c.WriteUint32(nodeId, info, uint32(v))
	default:
		return c.WriteUint64(nodeId, info, v)
	}
}

// Read raw bytes of an entry, e.g. a string or a domain
func (network *Network) ReadBytes(nodeId uint8, index uint16, subindex uint8) ([]byte, error) {
	req, err := network.syncClient.Read(nodeId, index, subindex)
	if err != nil {
		return nil, err
	}
	defer req.Unref()
	return append([]byte(nil), req.Data()...), nil
}

// Read object dictionary using object 1021 (EDS storage) of a remote node
// Only the plain ASCII storage format is supported
func (network *Network) ReadEDS(nodeId uint8) (*od.ObjectDictionary, error) {
	rawEds, err := network.ReadBytes(nodeId, od.EntryStoreEDS, 0)
	if err != nil {
		return nil, err
	}
	// Storage format is optional, 0 means ASCII
	format, err := network.syncClient.ReadUint8(nodeId, od.EntryStorageFormat, 0)
	if err != nil && !errors.Is(err, sdosync.ErrTransfer) {
		return nil, err
	}
	if format != 0 {
		return nil, fmt.Errorf("%w : %v", ErrEdsFormat, format)
	}
	return od.Parse(rawEds, nodeId)
}

package od

import (
	"fmt"
	"strconv"
)

// CANopen basic datatypes
const (
	BOOLEAN        uint8 = 0x01
	INTEGER8       uint8 = 0x02
	INTEGER16      uint8 = 0x03
	INTEGER32      uint8 = 0x04
	UNSIGNED8      uint8 = 0x05
	UNSIGNED16     uint8 = 0x06
	UNSIGNED32     uint8 = 0x07
	REAL32         uint8 = 0x08
	VISIBLE_STRING uint8 = 0x09
	OCTET_STRING   uint8 = 0x0A
	UNICODE_STRING uint8 = 0x0B
	DOMAIN         uint8 = 0x0F
	REAL64         uint8 = 0x11
	INTEGER64      uint8 = 0x15
	UNSIGNED64     uint8 = 0x1B
)

// EDS object types
const (
	ObjectTypeDOMAIN uint8 = 2
	ObjectTypeVAR    uint8 = 7
	ObjectTypeARRAY  uint8 = 8
	ObjectTypeRECORD uint8 = 9
)

// Communication profile entries
const (
	EntryDeviceType                 uint16 = 0x1000
	EntryCobIdSYNC                  uint16 = 0x1005
	EntryCommunicationCyclePeriod   uint16 = 0x1006
	EntrySynchronousWindowLength    uint16 = 0x1007
	EntryManufacturerDeviceName     uint16 = 0x1008
	EntryManufacturerHardwareVer    uint16 = 0x1009
	EntryManufacturerSoftwareVer    uint16 = 0x100A
	EntryCobIdTIME                  uint16 = 0x1012
	EntryConsumerHeartbeatTime      uint16 = 0x1016
	EntryProducerHeartbeatTime      uint16 = 0x1017
	EntryIdentityObject             uint16 = 0x1018
	EntrySynchronousCounterOverflow uint16 = 0x1019
	EntryStoreEDS                   uint16 = 0x1021
	EntryStorageFormat              uint16 = 0x1022
	EntryRPDOCommunicationStart     uint16 = 0x1400
	EntryRPDOMappingStart           uint16 = 0x1600
	EntryTPDOCommunicationStart     uint16 = 0x1800
	EntryTPDOMappingStart           uint16 = 0x1A00
)

const MaxMappedEntriesPdo uint8 = 8

// Object dictionary object attribute
const (
	AttributeSdoR  uint8 = 0x01 // SDO server may read from the variable
	AttributeSdoW  uint8 = 0x02 // SDO server may write to the variable
	AttributeSdoRw uint8 = 0x03 // SDO server may read from or write to the variable
	// Shorter value, than specified variable size, may be
	// written to the variable. Used for VISIBLE_STRING and OCTET_STRING.
	AttributeStr uint8 = 0x80
)

type ODR int8

const (
	ErrNo           ODR = 0
	ErrUnsuppAccess ODR = 2
	ErrWriteOnly    ODR = 3
	ErrReadonly     ODR = 4
	ErrIdxNotExist  ODR = 5
	ErrTypeMismatch ODR = 11
	ErrDataLong     ODR = 12
	ErrDataShort    ODR = 13
	ErrSubNotExist  ODR = 14
	ErrDevIncompat  ODR = 9
)

var odrDescriptionMap = map[ODR]string{
	ErrUnsuppAccess: "unsupported access",
	ErrWriteOnly:    "write only entry",
	ErrReadonly:     "read only entry",
	ErrIdxNotExist:  "index does not exist",
	ErrTypeMismatch: "type mismatch",
	ErrDataLong:     "data too long",
	ErrDataShort:    "data too short",
	ErrSubNotExist:  "subindex does not exist",
	ErrDevIncompat:  "device incompatibility",
}

func (odr ODR) Error() string {
	description, ok := odrDescriptionMap[odr]
	if ok {
		return fmt.Sprintf("OD error %v : %v", strconv.Itoa(int(odr)), description)
	}
	return fmt.Sprintf("OD error %v", strconv.Itoa(int(odr)))
}

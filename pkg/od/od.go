package od

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// A Variable is a single (index, subindex) entry of the object dictionary
type Variable struct {
	Name      string
	Index     uint16
	SubIndex  uint8
	DataType  uint8
	Attribute uint8
	value     []byte
}

// Data length of the variable in bytes
func (v *Variable) DataLength() uint32 {
	return uint32(len(v.value))
}

func (v *Variable) HasAttribute(attribute uint8) bool {
	return v.Attribute&attribute != 0
}

// ObjectDictionary is a thread safe store of variables, addressed by index and subindex
type ObjectDictionary struct {
	mu        sync.RWMutex
	variables map[uint32]*Variable
}

func NewOD() *ObjectDictionary {
	return &ObjectDictionary{variables: make(map[uint32]*Variable)}
}

func key(index uint16, subindex uint8) uint32 {
	return uint32(index)<<8 | uint32(subindex)
}

// Add a variable of a given datatype, with value given as an EDS formatted string
// String like datatypes are always variable length
func (od *ObjectDictionary) AddVariableType(
	index uint16,
	subindex uint8,
	name string,
	datatype uint8,
	attribute uint8,
	value string,
) (*Variable, error) {
	encoded, err := EncodeFromString(value, datatype)
	if err != nil {
		return nil, err
	}
	if isStringType(datatype) {
		attribute |= AttributeStr
	}
	variable := &Variable{
		Name:      name,
		Index:     index,
		SubIndex:  subindex,
		DataType:  datatype,
		Attribute: attribute,
		value:     encoded,
	}
	od.addVariable(variable)
	return variable, nil
}

func (od *ObjectDictionary) addVariable(variable *Variable) {
	od.mu.Lock()
	defer od.mu.Unlock()
	k := key(variable.Index, variable.SubIndex)
	if _, ok := od.variables[k]; ok {
		log.Warnf("[OD] overwriting entry x%x|x%x", variable.Index, variable.SubIndex)
	}
	od.variables[k] = variable
}

// Get the variable at index and subindex
func (od *ObjectDictionary) Variable(index uint16, subindex uint8) (*Variable, error) {
	od.mu.RLock()
	defer od.mu.RUnlock()
	variable, ok := od.variables[key(index, subindex)]
	if ok {
		return variable, nil
	}
	if od.hasIndex(index) {
		return nil, ErrSubNotExist
	}
	return nil, ErrIdxNotExist
}

func (od *ObjectDictionary) hasIndex(index uint16) bool {
	for k := range od.variables {
		if uint16(k>>8) == index {
			return true
		}
	}
	return false
}

// Read a copy of the raw value stored at index and subindex
// This ignores the access attribute
func (od *ObjectDictionary) Get(index uint16, subindex uint8) ([]byte, error) {
	variable, err := od.Variable(index, subindex)
	if err != nil {
		return nil, err
	}
	od.mu.RLock()
	defer od.mu.RUnlock()
	return append([]byte(nil), variable.value...), nil
}

// Write the raw value stored at index and subindex
// Length must match the declared length, except for string like entries
func (od *ObjectDictionary) Set(index uint16, subindex uint8, value []byte) error {
	variable, err := od.Variable(index, subindex)
	if err != nil {
		return err
	}
	od.mu.Lock()
	defer od.mu.Unlock()
	if !variable.HasAttribute(AttributeStr) {
		if len(value) > len(variable.value) {
			return ErrDataLong
		}
		if len(value) < len(variable.value) {
			return ErrDataShort
		}
	}
	variable.value = append(variable.value[:0], value...)
	return nil
}

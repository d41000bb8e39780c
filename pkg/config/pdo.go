package config

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/sdosync/pkg/od"
	"github.com/samsamfire/sdosync/pkg/sdosync"
)

// PDO numbering, RPDOs come first then TPDOs
const (
	MinPdoNumber   = uint16(1)
	MaxRpdoNumber  = uint16(512)
	MinTpdoNumber  = MaxRpdoNumber + 1
	MaxTpdoNumber  = MaxRpdoNumber + 512
	pdoValidBit    = cobIdConsumerBit
	pdoCanIdClear  = 0xFFFFF800
	subPdoCobId    = 1
	subPdoTransmit = 2
	subPdoInhibit  = 3
	subPdoEvent    = 5
)

var ErrPdoNumber = errors.New("pdo number or length is incorrect")

type PDOMappingParameter struct {
	Index      uint16
	Subindex   uint8
	LengthBits uint8
}

// Holds a PDO configuration
type PDOConfigurationParameter struct {
	CanId            uint16
	TransmissionType uint8
	InhibitTime      uint16
	EventTimer       uint16
	Mappings         []PDOMappingParameter
}

func pdoType(pdoNb uint16) string {
	if pdoNb <= MaxRpdoNumber {
		return "RPDO"
	}
	return "TPDO"
}

func mappingIndex(pdoNb uint16) uint16 {
	if pdoNb <= MaxRpdoNumber {
		return od.EntryRPDOMappingStart + pdoNb - 1
	}
	return od.EntryTPDOMappingStart + pdoNb - MinTpdoNumber
}

func communicationIndex(pdoNb uint16) uint16 {
	if pdoNb <= MaxRpdoNumber {
		return od.EntryRPDOCommunicationStart + pdoNb - 1
	}
	return od.EntryTPDOCommunicationStart + pdoNb - MinTpdoNumber
}

func checkPdoNumber(pdoNb uint16) error {
	if pdoNb < MinPdoNumber || pdoNb > MaxTpdoNumber {
		return ErrPdoNumber
	}
	return nil
}

func (config *NodeConfigurator) ReadCobIdPDO(pdoNb uint16) (uint32, error) {
	if err := checkPdoNumber(pdoNb); err != nil {
		return 0, err
	}
	return config.client.ReadUint32(config.nodeId, communicationIndex(pdoNb), subPdoCobId)
}

func (config *NodeConfigurator) ReadEnabledPDO(pdoNb uint16) (bool, error) {
	cobId, err := config.ReadCobIdPDO(pdoNb)
	if err != nil {
		return false, err
	}
	return cobId&pdoValidBit == 0, nil
}

func (config *NodeConfigurator) ReadTransmissionType(pdoNb uint16) (uint8, error) {
	return config.client.ReadUint8(config.nodeId, communicationIndex(pdoNb), subPdoTransmit)
}

func (config *NodeConfigurator) ReadInhibitTime(pdoNb uint16) (uint16, error) {
	return config.client.ReadUint16(config.nodeId, communicationIndex(pdoNb), subPdoInhibit)
}

func (config *NodeConfigurator) ReadEventTimer(pdoNb uint16) (uint16, error) {
	return config.client.ReadUint16(config.nodeId, communicationIndex(pdoNb), subPdoEvent)
}

func (config *NodeConfigurator) ReadNbMappings(pdoNb uint16) (uint8, error) {
	return config.client.ReadUint8(config.nodeId, mappingIndex(pdoNb), 0)
}

func (config *NodeConfigurator) ReadMappings(pdoNb uint16) ([]PDOMappingParameter, error) {
	nbMappings, err := config.ReadNbMappings(pdoNb)
	if err != nil {
		return nil, err
	}
	mappings := make([]PDOMappingParameter, 0, nbMappings)
	for i := uint8(1); i <= nbMappings; i++ {
		rawMap, err := config.client.ReadUint32(config.nodeId, mappingIndex(pdoNb), i)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, PDOMappingParameter{
			LengthBits: uint8(rawMap),
			Subindex:   uint8(rawMap >> 8),
			Index:      uint16(rawMap >> 16),
		})
	}
	return mappings, nil
}

// Reads configuration of a single PDO
func (config *NodeConfigurator) ReadConfigurationPDO(pdoNb uint16) (PDOConfigurationParameter, error) {
	conf := PDOConfigurationParameter{}
	cobId, err := config.ReadCobIdPDO(pdoNb)
	if err != nil {
		return conf, err
	}
	conf.CanId = uint16(cobId & cobIdCanIdMask)
	conf.TransmissionType, err = config.ReadTransmissionType(pdoNb)
	if err != nil {
		return conf, err
	}
	// Optional
	conf.InhibitTime, _ = config.ReadInhibitTime(pdoNb)
	// Optional
	conf.EventTimer, _ = config.ReadEventTimer(pdoNb)
	conf.Mappings, err = config.ReadMappings(pdoNb)
	log.Debugf("[CONFIG][%v] read configuration nb %v : %+v", pdoType(pdoNb), pdoNb, conf)
	return conf, err
}

// Reads configuration of a range of PDOs
// Stops at the first PDO whose communication object cannot be read
func (config *NodeConfigurator) ReadConfigurationRangePDO(pdoStartNb uint16, pdoEndNb uint16) ([]PDOConfigurationParameter, error) {
	if pdoStartNb < MinPdoNumber || pdoEndNb > MaxTpdoNumber || pdoStartNb > pdoEndNb {
		return nil, ErrPdoNumber
	}
	pdos := make([]PDOConfigurationParameter, 0)
	for pdoNb := pdoStartNb; pdoNb <= pdoEndNb; pdoNb++ {
		if _, err := config.ReadCobIdPDO(pdoNb); errors.Is(err, sdosync.ErrTransfer) {
			log.Debugf("[CONFIG][%v] no more pdo after nb %v", pdoType(pdoNb), pdoNb-1)
			break
		}
		conf, err := config.ReadConfigurationPDO(pdoNb)
		if err != nil {
			log.Errorf("[CONFIG][%v] failed to read configuration nb %v : %v", pdoType(pdoNb), pdoNb, err)
			return pdos, err
		}
		pdos = append(pdos, conf)
	}
	return pdos, nil
}

// Reads complete PDO configuration (RPDO, TPDO)
// Returns RPDOs and TPDOs configurations in two separate lists
func (config *NodeConfigurator) ReadConfigurationAllPDO() (rpdos []PDOConfigurationParameter, tpdos []PDOConfigurationParameter, err error) {
	rpdos, err = config.ReadConfigurationRangePDO(MinPdoNumber, MaxRpdoNumber)
	if err != nil {
		return rpdos, tpdos, err
	}
	tpdos, err = config.ReadConfigurationRangePDO(MinTpdoNumber, MaxTpdoNumber)
	return rpdos, tpdos, err
}

func (config *NodeConfigurator) writeCobIdPDO(pdoNb uint16, update func(uint32) uint32) error {
	cobId, err := config.ReadCobIdPDO(pdoNb)
	if err != nil {
		return err
	}
	return config.client.WriteUint32(config.nodeId, entry(communicationIndex(pdoNb), subPdoCobId), update(cobId))
}

func (config *NodeConfigurator) DisablePDO(pdoNb uint16) error {
	return config.writeCobIdPDO(pdoNb, func(cobId uint32) uint32 { return cobId | pdoValidBit })
}

func (config *NodeConfigurator) EnablePDO(pdoNb uint16) error {
	return config.writeCobIdPDO(pdoNb, func(cobId uint32) uint32 { return cobId &^ pdoValidBit })
}

func (config *NodeConfigurator) WriteCanIdPDO(pdoNb uint16, canId uint16) error {
	return config.writeCobIdPDO(pdoNb, func(cobId uint32) uint32 {
		return cobId&pdoCanIdClear | uint32(canId)&cobIdCanIdMask
	})
}

func (config *NodeConfigurator) WriteTransmissionType(pdoNb uint16, transType uint8) error {
	return config.client.WriteUint8(config.nodeId, entry(communicationIndex(pdoNb), subPdoTransmit), transType)
}

func (config *NodeConfigurator) WriteInhibitTime(pdoNb uint16, inhibitTime uint16) error {
	return config.client.WriteUint16(config.nodeId, entry(communicationIndex(pdoNb), subPdoInhibit), inhibitTime)
}

func (config *NodeConfigurator) WriteEventTimer(pdoNb uint16, eventTimer uint16) error {
	return config.client.WriteUint16(config.nodeId, entry(communicationIndex(pdoNb), subPdoEvent), eventTimer)
}

// Clear all the PDO mappings, number of entries first then every entry
func (config *NodeConfigurator) ClearMappings(pdoNb uint16) error {
	index := mappingIndex(pdoNb)
	err := config.client.WriteUint8(config.nodeId, entry(index, 0), 0)
	if err != nil {
		return err
	}
	for i := uint8(1); i <= od.MaxMappedEntriesPdo; i++ {
		err := config.client.WriteUint32(config.nodeId, entry(index, i), 0)
		if err != nil {
			return err
		}
	}
	return nil
}

// Write new PDO mapping
// Takes a list of objects to map and will fill them up in the given order
// This will first clear the current mapping
func (config *NodeConfigurator) WriteMappings(pdoNb uint16, mappings []PDOMappingParameter) error {
	if len(mappings) > int(od.MaxMappedEntriesPdo) {
		return ErrPdoNumber
	}
	index := mappingIndex(pdoNb)
	err := config.ClearMappings(pdoNb)
	if err != nil {
		return err
	}
	for i, mapping := range mappings {
		rawMap := uint32(mapping.Index)<<16 | uint32(mapping.Subindex)<<8 | uint32(mapping.LengthBits)
		err := config.client.WriteUint32(config.nodeId, entry(index, uint8(i)+1), rawMap)
		if err != nil {
			return err
		}
	}
	return config.client.WriteUint8(config.nodeId, entry(index, 0), uint8(len(mappings)))
}

// Update whole configuration
func (config *NodeConfigurator) WriteConfigurationPDO(pdoNb uint16, conf PDOConfigurationParameter) error {
	log.Debugf("[CONFIG][%v] updating configuration nb %v : %+v", pdoType(pdoNb), pdoNb, conf)
	err := config.WriteCanIdPDO(pdoNb, conf.CanId)
	if err != nil {
		return err
	}
	err = config.WriteTransmissionType(pdoNb, conf.TransmissionType)
	if err != nil {
		return err
	}
	err = config.WriteEventTimer(pdoNb, conf.EventTimer)
	if err != nil {
		return err
	}
	err = config.WriteInhibitTime(pdoNb, conf.InhibitTime)
	if err != nil {
		return err
	}
	return config.WriteMappings(pdoNb, conf.Mappings)
}

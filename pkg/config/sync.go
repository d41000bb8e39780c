package config

import (
	"time"

	"github.com/samsamfire/sdosync/pkg/od"
)

const (
	cobIdProducerBit uint32 = 1 << 30
	cobIdConsumerBit uint32 = 1 << 31
	cobIdCanIdMask   uint32 = 0x7FF
)

func (config *NodeConfigurator) ReadCobIdSYNC() (uint32, error) {
	return config.client.ReadUint32(config.nodeId, od.EntryCobIdSYNC, 0)
}

func (config *NodeConfigurator) ReadCounterOverflow() (uint8, error) {
	return config.client.ReadUint8(config.nodeId, od.EntrySynchronousCounterOverflow, 0)
}

// Communication cycle period is stored in µs
func (config *NodeConfigurator) ReadCommunicationPeriod() (time.Duration, error) {
	period, err := config.client.ReadUint32(config.nodeId, od.EntryCommunicationCyclePeriod, 0)
	if err != nil {
		return 0, err
	}
	return time.Duration(period) * time.Microsecond, nil
}

func (config *NodeConfigurator) ReadWindowLengthPdos() (time.Duration, error) {
	period, err := config.client.ReadUint32(config.nodeId, od.EntrySynchronousWindowLength, 0)
	if err != nil {
		return 0, err
	}
	return time.Duration(period) * time.Microsecond, nil
}

func (config *NodeConfigurator) ProducerEnableSYNC() error {
	// Changing COB-ID is not allowed if already producer, read first
	cobId, err := config.ReadCobIdSYNC()
	if err != nil {
		return err
	}
	return config.client.WriteUint32(config.nodeId, entry(od.EntryCobIdSYNC, 0), cobId|cobIdProducerBit)
}

func (config *NodeConfigurator) ProducerDisableSYNC() error {
	cobId, err := config.ReadCobIdSYNC()
	if err != nil {
		return err
	}
	return config.client.WriteUint32(config.nodeId, entry(od.EntryCobIdSYNC, 0), cobId&^cobIdProducerBit)
}

// Change sync can id, sync should be disabled before changing this
func (config *NodeConfigurator) WriteCanIdSYNC(canId uint16) error {
	return config.client.WriteUint32(config.nodeId, entry(od.EntryCobIdSYNC, 0), uint32(canId)&cobIdCanIdMask)
}

// Sync should have communication period of 0 before changing this
func (config *NodeConfigurator) WriteCounterOverflow(counter uint8) error {
	return config.client.WriteUint8(config.nodeId, entry(od.EntrySynchronousCounterOverflow, 0), counter)
}

func (config *NodeConfigurator) WriteCommunicationPeriod(period time.Duration) error {
	return config.client.WriteUint32(config.nodeId, entry(od.EntryCommunicationCyclePeriod, 0), uint32(period.Microseconds()))
}

func (config *NodeConfigurator) WriteWindowLengthPdos(period time.Duration) error {
	return config.client.WriteUint32(config.nodeId, entry(od.EntrySynchronousWindowLength, 0), uint32(period.Microseconds()))
}

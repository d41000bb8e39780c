package config

import "github.com/samsamfire/sdosync/pkg/od"

func (config *NodeConfigurator) ReadCobIdTIME() (uint32, error) {
	return config.client.ReadUint32(config.nodeId, od.EntryCobIdTIME, 0)
}

func (config *NodeConfigurator) updateCobIdTIME(set uint32, clear uint32) error {
	cobId, err := config.ReadCobIdTIME()
	if err != nil {
		return err
	}
	cobId = (cobId | set) &^ clear
	return config.client.WriteUint32(config.nodeId, entry(od.EntryCobIdTIME, 0), cobId)
}

func (config *NodeConfigurator) ProducerEnableTIME() error {
	return config.updateCobIdTIME(cobIdProducerBit, 0)
}

func (config *NodeConfigurator) ProducerDisableTIME() error {
	return config.updateCobIdTIME(0, cobIdProducerBit)
}

func (config *NodeConfigurator) ConsumerEnableTIME() error {
	return config.updateCobIdTIME(cobIdConsumerBit, 0)
}

func (config *NodeConfigurator) ConsumerDisableTIME() error {
	return config.updateCobIdTIME(0, cobIdConsumerBit)
}

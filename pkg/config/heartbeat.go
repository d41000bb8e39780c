package config

import "github.com/samsamfire/sdosync/pkg/od"

// Monitored node entry of the consumer heartbeat object
type MonitoredNode struct {
	NodeId   uint8
	PeriodMs uint16
}

// Read current monitored nodes
// Returns every consumer entry with the id of the monitored node
// and the expected period in ms
func (config *NodeConfigurator) ReadMonitoredNodes() ([]MonitoredNode, error) {
	nbMonitored, err := config.ReadMaxMonitorable()
	if err != nil {
		return nil, err
	}
	monitored := make([]MonitoredNode, 0, nbMonitored)
	for i := uint8(1); i <= nbMonitored; i++ {
		periodAndId, err := config.client.ReadUint32(config.nodeId, od.EntryConsumerHeartbeatTime, i)
		if err != nil {
			return monitored, err
		}
		monitored = append(monitored, MonitoredNode{
			NodeId:   uint8(periodAndId >> 16),
			PeriodMs: uint16(periodAndId),
		})
	}
	return monitored, nil
}

// Read max available entries for monitoring
func (config *NodeConfigurator) ReadMaxMonitorable() (uint8, error) {
	return config.client.ReadUint8(config.nodeId, od.EntryConsumerHeartbeatTime, 0)
}

// Add or update a node to monitor with the expected heartbeat period
// Index needs to be between 1 & the max nodes that can be monitored
func (config *NodeConfigurator) WriteMonitoredNode(index uint8, nodeId uint8, periodMs uint16) error {
	periodAndId := uint32(nodeId)<<16 | uint32(periodMs)
	return config.client.WriteUint32(config.nodeId, entry(od.EntryConsumerHeartbeatTime, index), periodAndId)
}

// Read a nodes heartbeat period and returns it in milliseconds
func (config *NodeConfigurator) ReadHeartbeatPeriod() (uint16, error) {
	return config.client.ReadUint16(config.nodeId, od.EntryProducerHeartbeatTime, 0)
}

// Update a nodes heartbeat period in milliseconds
func (config *NodeConfigurator) WriteHeartbeatPeriod(periodMs uint16) error {
	return config.client.WriteUint16(config.nodeId, entry(od.EntryProducerHeartbeatTime, 0), periodMs)
}

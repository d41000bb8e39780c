package config

import (
	"github.com/samsamfire/sdosync/pkg/sdo"
	"github.com/samsamfire/sdosync/pkg/sdosync"
)

// NodeConfigurator provides helper methods for
// reading / updating CANopen reserved configuration objects
// i.e. objects between 0x1000 and 0x2000.
// No EDS files need to be loaded for configuring these parameters.
// Every access is a blocking SDO transfer through the synchronous client.
type NodeConfigurator struct {
	client *sdosync.Client
	nodeId uint8
}

// Create a new [NodeConfigurator] for given ID and synchronous client
func NewNodeConfigurator(nodeId uint8, client *sdosync.Client) *NodeConfigurator {
	return &NodeConfigurator{client: client, nodeId: nodeId}
}

func (config *NodeConfigurator) NodeId() uint8 {
	return config.nodeId
}

func entry(index uint16, subindex uint8) *sdo.RequestInfo {
	return &sdo.RequestInfo{Index: index, Subindex: subindex}
}

func (config *NodeConfigurator) readString(index uint16, subindex uint8) (string, error) {
	req, err := config.client.Read(config.nodeId, index, subindex)
	if err != nil {
		return "", err
	}
	defer req.Unref()
	return string(req.Data()), nil
}

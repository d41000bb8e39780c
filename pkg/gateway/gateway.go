package gateway

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/samsamfire/sdosync/pkg/config"
	"github.com/samsamfire/sdosync/pkg/network"
	log "github.com/sirupsen/logrus"
)

var ErrNodeParam = errors.New("invalid node parameter")

// BaseGateway holds the transport independent part of a gateway:
// the network used for SDO accesses and a default node.
// Each gateway maps its own parsing logic to this base gateway
type BaseGateway struct {
	network       *network.Network
	mu            sync.RWMutex
	defaultNodeId uint8
}

func NewBaseGateway(network *network.Network, defaultNodeId uint8) *BaseGateway {
	return &BaseGateway{
		network:       network,
		defaultNodeId: defaultNodeId,
	}
}

type GatewayVersion struct {
	Name            string   `json:"name"`
	ProtocolVersion string   `json:"protocol_version"`
	Datatypes       []string `json:"datatypes"`
}

// Set default node Id to use
func (gw *BaseGateway) SetDefaultNodeId(id uint8) error {
	if id < 1 || id > 127 {
		return fmt.Errorf("%w : %v", ErrNodeParam, id)
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.defaultNodeId = id
	return nil
}

// Get default node Id
func (gw *BaseGateway) DefaultNodeId() uint8 {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.defaultNodeId
}

// Resolve a node parameter, either a node id or "default"
func (gw *BaseGateway) NodeId(param string) (uint8, error) {
	if param == "default" {
		defaultNodeId := gw.DefaultNodeId()
		if defaultNodeId == 0 {
			return 0, fmt.Errorf("%w : no default node set", ErrNodeParam)
		}
		return defaultNodeId, nil
	}
	nodeId, err := strconv.ParseUint(param, 0, 8)
	if err != nil || nodeId < 1 || nodeId > 127 {
		return 0, fmt.Errorf("%w : %q", ErrNodeParam, param)
	}
	return uint8(nodeId), nil
}

// Get gateway version information
func (gw *BaseGateway) GetVersion() GatewayVersion {
	return GatewayVersion{
		Name:            "sdosync",
		ProtocolVersion: "1.0",
		Datatypes:       network.Datatypes,
	}
}

// Set SDO timeout
func (gw *BaseGateway) SetSDOTimeout(timeout time.Duration) {
	gw.network.SetTimeout(timeout)
	log.Debugf("[GATEWAY] changing sdo client timeout to %v", timeout)
}

// Read SDO
func (gw *BaseGateway) ReadSDO(nodeId uint8, index uint16, subindex uint8, datatype string) (any, error) {
	return gw.network.ReadValue(nodeId, index, subindex, datatype)
}

// Write SDO
func (gw *BaseGateway) WriteSDO(nodeId uint8, index uint16, subindex uint8, datatype string, value string) error {
	return gw.network.WriteValue(nodeId, index, subindex, datatype, value)
}

// Configurator of a node
func (gw *BaseGateway) Configurator(nodeId uint8) *config.NodeConfigurator {
	return gw.network.Configurator(nodeId)
}

// Disconnect from network
func (gw *BaseGateway) Disconnect() error {
	return gw.network.Disconnect()
}

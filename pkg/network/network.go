// Package network ties together a CAN bus, SDO clients and servers,
// and the synchronous SDO access layer.
package network

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samsamfire/sdosync/pkg/can"
	"github.com/samsamfire/sdosync/pkg/config"
	"github.com/samsamfire/sdosync/pkg/od"
	"github.com/samsamfire/sdosync/pkg/sdo"
	"github.com/samsamfire/sdosync/pkg/sdosync"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var (
	ErrIdConflict   = errors.New("id already exists on network, this will create conflicts")
	ErrNodeId       = errors.New("node id should be between 1 and 127")
	ErrNotConnected = errors.New("network is not connected")
)

// A Network is the main object of this package
// It owns the bus and one SDO client per remote node, whose
// transfers are serialized through the request manager.
// Local nodes are simulated SDO servers answering on the same bus.
type Network struct {
	*can.BusManager
	mu         sync.Mutex
	cfg        *Config
	manager    *sdo.Manager
	syncClient *sdosync.Client
	clients    map[uint8]*sdo.Client
	servers    map[uint8]*sdo.Server
	odMap      map[uint8]*od.ObjectDictionary
	connected  bool
}

// Create a new Network using the given CAN bus
// bus may be nil, in which case it is created on Connect from cfg.
// A nil cfg uses [DefaultConfig].
func NewNetwork(bus can.Bus, cfg *Config) *Network {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	manager := sdo.NewManager(cfg.MaxRequests, cfg.QueueDepth)
	return &Network{
		BusManager: can.NewBusManager(bus),
		cfg:        cfg,
		manager:    manager,
		syncClient: sdosync.NewManagerClient(manager),
		clients:    map[uint8]*sdo.Client{},
		servers:    map[uint8]*sdo.Server{},
		odMap:      map[uint8]*od.ObjectDictionary{},
	}
}

// Connects to CAN bus, this should be called before anything else.
// If no bus was given, it is created from the configured interface,
// channel and bitrate. Nodes listed in the configuration are added.
func (network *Network) Connect(args ...any) error {
	network.mu.Lock()
	defer network.mu.Unlock()
	if network.connected {
		return nil
	}
	bus := network.Bus()
	if bus == nil {
		var err error
		bus, err = can.NewBus(network.cfg.Interface, network.cfg.Channel, network.cfg.Bitrate)
		if err != nil {
			return err
		}
		network.BusManager = can.NewBusManager(bus)
	}
	// Connect to CAN bus and subscribe to CAN message reception
	err := bus.Connect(args...)
	if err != nil {
		return err
	}
	err = bus.Subscribe(network.BusManager)
	if err != nil {
		return multierr.Append(err, bus.Disconnect())
	}
	network.connected = true
	log.Infof("[NETWORK] connected to %v (%v)", network.cfg.Channel, network.cfg.Interface)
	for _, nodeId := range network.cfg.Nodes {
		if err := network.addRemoteNode(nodeId); err != nil {
			log.Errorf("[NETWORK][x%x] failed to add configured node : %v", nodeId, err)
			return multierr.Append(err, network.disconnect())
		}
	}
	return nil
}

// Disconnects from the CAN bus, stops every node queue
// and closes clients and servers
func (network *Network) Disconnect() error {
	network.mu.Lock()
	defer network.mu.Unlock()
	return network.disconnect()
}

func (network *Network) disconnect() error {
	if !network.connected {
		return nil
	}
	err := network.manager.Close()
	for nodeId, client := range network.clients {
		client.Close()
		delete(network.clients, nodeId)
	}
	for nodeId, server := range network.servers {
		server.Close()
		delete(network.servers, nodeId)
	}
	err = multierr.Append(err, network.Bus().Disconnect())
	network.connected = false
	log.Infof("[NETWORK] disconnected from %v", network.cfg.Channel)
	return err
}

// Add a remote node, reachable through the synchronous client
func (network *Network) AddRemoteNode(nodeId uint8) error {
	network.mu.Lock()
	defer network.mu.Unlock()
	if !network.connected {
		return ErrNotConnected
	}
	return network.addRemoteNode(nodeId)
}

func (network *Network) addRemoteNode(nodeId uint8) error {
	if nodeId < 1 || nodeId > 127 {
		return fmt.Errorf("%w : %v", ErrNodeId, nodeId)
	}
	if _, ok := network.clients[nodeId]; ok {
		return ErrIdConflict
	}
	client, err := sdo.NewClient(network.BusManager, nodeId, network.cfg.Timeout)
	if err != nil {
		return err
	}
	_, err = network.manager.AddNode(nodeId, client)
	if err != nil {
		client.Close()
		return err
	}
	network.clients[nodeId] = client
	log.Infof("[NETWORK][x%x] added remote node", nodeId)
	return nil
}

// RemoveNode stops the node queue and closes its client
func (network *Network) RemoveNode(nodeId uint8) error {
	network.mu.Lock()
	defer network.mu.Unlock()
	client, ok := network.clients[nodeId]
	if !ok {
		return nil
	}
	err := network.manager.RemoveNode(nodeId)
	client.Close()
	delete(network.clients, nodeId)
	return err
}

// Create a simulated local node answering SDO requests from the given OD
// odict can be either a path to an EDS file or an OD object.
func (network *Network) AddLocalNode(nodeId uint8, odict any) (*od.ObjectDictionary, error) {
	network.mu.Lock()
	defer network.mu.Unlock()
	if !network.connected {
		return nil, ErrNotConnected
	}
	if nodeId < 1 || nodeId > 127 {
		return nil, fmt.Errorf("%w : %v", ErrNodeId, nodeId)
	}
	if _, ok := network.servers[nodeId]; ok {
		return nil, ErrIdConflict
	}
	var odNode *od.ObjectDictionary
	var err error
	switch odType := odict.(type) {
	case string:
		odNode, err = od.Parse(odType, nodeId)
		if err != nil {
			return nil, err
		}
	case *od.ObjectDictionary:
		odNode = odType
	default:
		return nil, fmt.Errorf("expecting string or *ObjectDictionary got : %T", odict)
	}
	server, err := sdo.NewServer(network.BusManager, nodeId, odNode)
	if err != nil {
		return nil, err
	}
	// Remote clients of this network must see the local server answers
	if loopback, ok := network.Bus().(interface{ SetReceiveOwn(bool) }); ok {
		loopback.SetReceiveOwn(true)
	}
	network.servers[nodeId] = server
	network.odMap[nodeId] = odNode
	log.Infof("[NETWORK][x%x] added local node", nodeId)
	return odNode, nil
}

// Update the SDO timeout of every remote node client, current and future
func (network *Network) SetTimeout(timeout time.Duration) {
	network.mu.Lock()
	defer network.mu.Unlock()
	network.cfg.Timeout = timeout
	for _, client := range network.clients {
		client.SetTimeout(timeout)
	}
	log.Debugf("[NETWORK] changing sdo client timeout to %v", timeout)
}

// Get OD of a local node
func (network *Network) GetOD(nodeId uint8) (*od.ObjectDictionary, error) {
	network.mu.Lock()
	defer network.mu.Unlock()
	odNode, ok := network.odMap[nodeId]
	if !ok {
		return nil, od.ErrIdxNotExist
	}
	return odNode, nil
}

// Sync returns the synchronous SDO client of the network
func (network *Network) Sync() *sdosync.Client {
	return network.syncClient
}

// Configurator creates a [NodeConfigurator] object for a given id
// using the networks synchronous client
func (network *Network) Configurator(nodeId uint8) *config.NodeConfigurator {
	return config.NewNodeConfigurator(nodeId, network.syncClient)
}

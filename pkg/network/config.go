package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samsamfire/sdosync/pkg/sdo"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

var ErrConfig = errors.New("invalid network configuration")

// Network configuration, loaded from an ini file
//
//	[bus]
//	interface = virtual
//	channel = vcan0
//	bitrate = 500000
//	[sdo]
//	timeout = 1000
//	max_requests = 64
//	queue_depth = 16
//	[nodes]
//	ids = 0x10, 0x20
type Config struct {
	Interface   string
	Channel     string
	Bitrate     int
	Timeout     time.Duration
	MaxRequests int
	QueueDepth  int
	Nodes       []uint8
}

// Default configuration, a virtual bus with no remote nodes
func DefaultConfig() *Config {
	return &Config{
		Interface:   "virtual",
		Channel:     "vcan0",
		Bitrate:     500000,
		Timeout:     sdo.DefaultClientTimeout,
		MaxRequests: sdo.DefaultMaxRequests,
		QueueDepth:  sdo.DefaultQueueDepth,
	}
}

// Load a network configuration
// file can be a path, a []byte or an io.Reader, anything accepted by ini.Load.
// Missing keys keep their default value.
func LoadConfig(file any) (*Config, error) {
	cfg := DefaultConfig()
	f, err := ini.Load(file)
	if err != nil {
		return nil, fmt.Errorf("%w : %v", ErrConfig, err)
	}

	bus := f.Section("bus")
	cfg.Interface = bus.Key("interface").MustString(cfg.Interface)
	cfg.Channel = bus.Key("channel").MustString(cfg.Channel)
	cfg.Bitrate = bus.Key("bitrate").MustInt(cfg.Bitrate)

	sdoSection := f.Section("sdo")
	timeoutMs := sdoSection.Key("timeout").MustInt(int(cfg.Timeout.Milliseconds()))
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond
	cfg.MaxRequests = sdoSection.Key("max_requests").MustInt(cfg.MaxRequests)
	cfg.QueueDepth = sdoSection.Key("queue_depth").MustInt(cfg.QueueDepth)
	if cfg.Timeout <= 0 || cfg.MaxRequests <= 0 || cfg.QueueDepth <= 0 {
		return nil, fmt.Errorf("%w : sdo values must be positive", ErrConfig)
	}

	seen := map[uint8]bool{}
	for _, raw := range f.Section("nodes").Key("ids").Strings(",") {
		nodeId, err := parseNodeId(raw)
		if err != nil {
			return nil, err
		}
		if seen[nodeId] {
			return nil, fmt.Errorf("%w : duplicate node id x%x", ErrConfig, nodeId)
		}
		seen[nodeId] = true
		cfg.Nodes = append(cfg.Nodes, nodeId)
	}
	log.Debugf("[NETWORK] loaded configuration %+v", cfg)
	return cfg, nil
}

func parseNodeId(raw string) (uint8, error) {
	nodeId, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 8)
	if err != nil || nodeId < 1 || nodeId > 127 {
		return 0, fmt.Errorf("%w : node id should be between 1 and 127, got %q", ErrConfig, raw)
	}
	return uint8(nodeId), nil
}

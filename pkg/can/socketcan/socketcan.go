package socketcan

import (
	"github.com/brutella/can"
	sdocan "github.com/samsamfire/sdosync/pkg/can"
)

// Basic wrapper for socketcan (this is the implementation used by brutella/can)
// Only available on linux, the underlying library opens a raw CAN socket

func init() {
	sdocan.RegisterInterface("socketcan", NewSocketCanBus)
}

type Bus struct {
	bus        *can.Bus
	rxCallback sdocan.FrameListener
}

func NewSocketCanBus(name string) (sdocan.Bus, error) {
	bus, err := can.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	return &Bus{bus: bus}, nil
}

// "Connect" implementation of Bus interface
func (socketcan *Bus) Connect(...any) error {
	go socketcan.bus.ConnectAndPublish()
	return nil
}

// "Disconnect" implementation of Bus interface
func (socketcan *Bus) Disconnect() error {
	return socketcan.bus.Disconnect()
}

// "Send" implementation of Bus interface
func (socketcan *Bus) Send(frame sdocan.Frame) error {
	return socketcan.bus.Publish(
		can.Frame{
			ID:     frame.ID,
			Length: frame.DLC,
			Flags:  frame.Flags,
			Data:   frame.Data,
		})
}

// "Subscribe" implementation of Bus interface
func (socketcan *Bus) Subscribe(rxCallback sdocan.FrameListener) error {
	socketcan.rxCallback = rxCallback
	// brutella/can defines a "Handle" interface for handling received CAN frames
	socketcan.bus.Subscribe(socketcan)
	return nil
}

// brutella/can specific "Handle" implementation
func (socketcan *Bus) Handle(frame can.Frame) {
	socketcan.rxCallback.Handle(sdocan.Frame{ID: frame.ID, DLC: frame.Length, Flags: frame.Flags, Data: frame.Data})
}

package can

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Bus manager is a wrapper around the CAN bus interface
// It dispatches received frames to the listeners registered for a given CAN id
type BusManager struct {
	mu             sync.Mutex
	bus            Bus
	frameListeners map[uint32][]FrameListener
}

func NewBusManager(bus Bus) *BusManager {
	return &BusManager{
		bus:            bus,
		frameListeners: make(map[uint32][]FrameListener),
	}
}

// Implements the FrameListener interface
// This handles all received CAN frames from Bus
func (bm *BusManager) Handle(frame Frame) {
	bm.mu.Lock()
	listeners := append([]FrameListener(nil), bm.frameListeners[frame.ID]...)
	bm.mu.Unlock()
	for _, listener := range listeners {
		listener.Handle(frame)
	}
}

func (bm *BusManager) Bus() Bus {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.bus
}

// Send a CAN message
// Limited error handling
func (bm *BusManager) Send(frame Frame) error {
	bus := bm.Bus()
	if bus == nil {
		return ErrNotConnected
	}
	err := bus.Send(frame)
	if err != nil {
		log.Warnf("[CAN] %v", err)
	}
	return err
}

// Subscribe to a specific CAN ID
func (bm *BusManager) Subscribe(ident uint32, rtr bool, callback FrameListener) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	ident = ident & CanSffMask
	if rtr {
		ident |= CanRtrFlag
	}
	for _, listener := range bm.frameListeners[ident] {
		if listener == callback {
			log.Warnf("[CAN] callback for frame id x%x already added", ident)
			return nil
		}
	}
	bm.frameListeners[ident] = append(bm.frameListeners[ident], callback)
	return nil
}

// Remove a listener previously added with Subscribe
func (bm *BusManager) Unsubscribe(ident uint32, rtr bool, callback FrameListener) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	ident = ident & CanSffMask
	if rtr {
		ident |= CanRtrFlag
	}
	listeners := bm.frameListeners[ident]
	for i, listener := range listeners {
		if listener == callback {
			bm.frameListeners[ident] = append(listeners[:i], listeners[i+1:]...)
			break
		}
	}
	if len(bm.frameListeners[ident]) == 0 {
		delete(bm.frameListeners, ident)
	}
}

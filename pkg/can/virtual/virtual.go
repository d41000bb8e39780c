package virtual

import (
	"errors"
	"sync"

	can "github.com/samsamfire/sdosync/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Virtual CAN bus implementation primarily used for testing and simulation
// All buses created with the same channel name are attached to the same
// in-process hub and receive each other's frames

const rxQueueSize = 256

var ErrDisconnected = errors.New("error : no active connection, abort send")

func init() {
	can.RegisterInterface("virtual", NewVirtualCanBus)
	can.RegisterInterface("virtualcan", NewVirtualCanBus)
}

type hub struct {
	mu    sync.RWMutex
	buses map[*Bus]struct{}
}

var (
	hubsMu sync.Mutex
	hubs   = make(map[string]*hub)
)

func getHub(channel string) *hub {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	h, ok := hubs[channel]
	if !ok {
		h = &hub{buses: make(map[*Bus]struct{})}
		hubs[channel] = h
	}
	return h
}

type Bus struct {
	mu           sync.Mutex
	channel      string
	hub          *hub
	receiveOwn   bool
	framehandler can.FrameListener
	rx           chan can.Frame
	stopChan     chan struct{}
	wg           sync.WaitGroup
	isRunning    bool
	connected    bool
}

func NewVirtualCanBus(channel string) (can.Bus, error) {
	return &Bus{channel: channel, hub: getHub(channel)}, nil
}

// "Connect" to the channel hub
func (b *Bus) Connect(...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connected {
		return nil
	}
	b.rx = make(chan can.Frame, rxQueueSize)
	b.stopChan = make(chan struct{})
	b.hub.mu.Lock()
	b.hub.buses[b] = struct{}{}
	b.hub.mu.Unlock()
	b.connected = true
	log.Debugf("[VIRTUAL] connected to channel %v", b.channel)
	return nil
}

// "Disconnect" from the channel hub
func (b *Bus) Disconnect() error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil
	}
	b.hub.mu.Lock()
	delete(b.hub.buses, b)
	b.hub.mu.Unlock()
	b.connected = false
	close(b.stopChan)
	b.mu.Unlock()
	b.wg.Wait()
	b.mu.Lock()
	b.isRunning = false
	b.mu.Unlock()
	log.Debugf("[VIRTUAL] disconnected from channel %v", b.channel)
	return nil
}

// "Send" implementation of Bus interface
func (b *Bus) Send(frame can.Frame) error {
	b.mu.Lock()
	connected := b.connected
	receiveOwn := b.receiveOwn
	b.mu.Unlock()
	if !connected {
		return ErrDisconnected
	}
	b.hub.mu.RLock()
	targets := make([]*Bus, 0, len(b.hub.buses))
	for bus := range b.hub.buses {
		if bus != b || receiveOwn {
			targets = append(targets, bus)
		}
	}
	b.hub.mu.RUnlock()
	for _, target := range targets {
		target.deliver(frame)
	}
	return nil
}

func (b *Bus) deliver(frame can.Frame) {
	select {
	case b.rx <- frame:
	case <-b.stopChan:
	default:
		log.Warnf("[VIRTUAL] rx queue full on channel %v, dropping frame x%x", b.channel, frame.ID)
	}
}

// "Subscribe" implementation of Bus interface
func (b *Bus) Subscribe(framehandler can.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return ErrDisconnected
	}
	b.framehandler = framehandler
	if b.isRunning {
		return nil
	}
	// Start go routine that receives incoming traffic and passes it to frameHandler
	b.wg.Add(1)
	b.isRunning = true
	go b.handleReception(b.rx, b.stopChan)
	return nil
}

// Handle incoming traffic
func (b *Bus) handleReception(rx <-chan can.Frame, stop <-chan struct{}) {
	defer b.wg.Done()
	for {
		select {
		case <-stop:
			return
		case frame := <-rx:
			b.mu.Lock()
			handler := b.framehandler
			b.mu.Unlock()
			if handler != nil {
				handler.Handle(frame)
			}
		}
	}
}

func (b *Bus) SetReceiveOwn(receiveOwn bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiveOwn = receiveOwn
}

//go:build linux

package socketcan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
	"unsafe"

	sdocan "github.com/samsamfire/sdosync/pkg/can"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Raw socketcan implementation, reads and writes struct can_frame directly
// on a CAN_RAW socket without any intermediate library

const (
	rawFrameSize      = 16
	rawReceiveTimeout = 100 * time.Millisecond
)

func init() {
	sdocan.RegisterInterface("socketcanraw", NewRawBus)
}

// Matches the linux struct can_frame layout
type rawFrame struct {
	id   uint32
	dlc  uint8
	pad  uint8
	res0 uint8
	res1 uint8
	data [8]uint8
}

type RawBus struct {
	mu         sync.Mutex
	fd         int
	channel    string
	rxCallback sdocan.FrameListener
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Create a new raw socketcan bus. This expects the CAN channel to be up
// e.g. running "ip a" should show can0 or something similar.
func NewRawBus(channel string) (sdocan.Bus, error) {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to create CAN socket : %v", err)
	}
	// Reads time out periodically so that Disconnect is noticed
	tv := unix.NsecToTimeval(rawReceiveTimeout.Nanoseconds())
	err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set read timeout %v", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &RawBus{fd: fd, channel: channel}, nil
}

// "Connect" implementation of Bus interface
func (b *RawBus) Connect(...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return nil
	}
	var ctx context.Context
	ctx, b.cancel = context.WithCancel(context.Background())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processIncoming(ctx)
	}()
	return nil
}

// "Disconnect" implementation of Bus interface, the socket is closed
func (b *RawBus) Disconnect() error {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	b.wg.Wait()
	return unix.Close(b.fd)
}

// "Send" implementation of Bus interface
func (b *RawBus) Send(frame sdocan.Frame) error {
	raw := rawFrame{id: frame.ID, dlc: frame.DLC, pad: frame.Flags, data: frame.Data}
	n, err := unix.Write(b.fd, (*(*[rawFrameSize]byte)(unsafe.Pointer(&raw)))[:])
	if err != nil {
		return err
	}
	if n != rawFrameSize {
		return fmt.Errorf("short write on %v : %v bytes", b.channel, n)
	}
	return nil
}

// process incoming frames. This is meant to be run inside of a goroutine
func (b *RawBus) processIncoming(ctx context.Context) {
	buf := make([]byte, rawFrameSize)
	for {
		select {
		case <-ctx.Done():
			log.Infof("[SOCKETCAN] exiting reception on %v", b.channel)
			return
		default:
		}
		n, err := unix.Read(b.fd, buf)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || n != rawFrameSize {
			log.Errorf("[SOCKETCAN] exiting reception on %v, read %v bytes : %v", b.channel, n, err)
			return
		}
		raw := (*rawFrame)(unsafe.Pointer(&buf[0]))
		b.mu.Lock()
		rxCallback := b.rxCallback
		b.mu.Unlock()
		if rxCallback != nil {
			rxCallback.Handle(sdocan.Frame{ID: raw.id, DLC: raw.dlc, Flags: raw.pad, Data: raw.data})
		}
	}
}

// "Subscribe" implementation of Bus interface
func (b *RawBus) Subscribe(rxCallback sdocan.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rxCallback = rxCallback
	return nil
}

// Enable own reception on the bus, needed when local nodes
// and remote clients share the same socket
func (b *RawBus) SetReceiveOwn(enabled bool) {
	enabledInt := 0
	if enabled {
		enabledInt = 1
	}
	err := unix.SetsockoptInt(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, enabledInt)
	if err != nil {
		log.Warnf("[SOCKETCAN] failed to set 'CAN_RAW_RECV_OWN_MSGS' on %v : %v", b.channel, err)
	}
}

// Only receive frames whose identifier is in ids
func (b *RawBus) SetFilters(ids []uint32) error {
	filters := make([]unix.CanFilter, 0, len(ids))
	for _, id := range ids {
		filters = append(filters, unix.CanFilter{Id: id, Mask: sdocan.CanSffMask})
	}
	log.Debugf("[SOCKETCAN] setting 'CAN_RAW_FILTER' on %v : %v", b.channel, ids)
	return unix.SetsockoptCanRawFilter(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters)
}

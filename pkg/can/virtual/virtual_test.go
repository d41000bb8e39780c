package virtual

import (
	"sync"
	"testing"
	"time"

	can "github.com/samsamfire/sdosync/pkg/can"
	"github.com/stretchr/testify/assert"
)

type FrameReceiver struct {
	mu     sync.Mutex
	frames []can.Frame
}

func (frameReceiver *FrameReceiver) Handle(frame can.Frame) {
	frameReceiver.mu.Lock()
	defer frameReceiver.mu.Unlock()
	frameReceiver.frames = append(frameReceiver.frames, frame)
}

func (frameReceiver *FrameReceiver) Len() int {
	frameReceiver.mu.Lock()
	defer frameReceiver.mu.Unlock()
	return len(frameReceiver.frames)
}

func newVcan(t *testing.T, channel string) *Bus {
	canBus, err := can.NewBus("virtual", channel, 0)
	assert.Nil(t, err)
	vcan, ok := canBus.(*Bus)
	assert.True(t, ok)
	assert.Nil(t, vcan.Connect())
	return vcan
}

func TestSendAndSubscribe(t *testing.T) {
	vcan1 := newVcan(t, t.Name())
	vcan2 := newVcan(t, t.Name())
	defer vcan1.Disconnect()
	defer vcan2.Disconnect()
	receiver := &FrameReceiver{}
	assert.Nil(t, vcan2.Subscribe(receiver))
	for i := 0; i < 100; i++ {
		frame := can.Frame{ID: 0x111, DLC: 8, Data: [8]byte{uint8(i)}}
		assert.Nil(t, vcan1.Send(frame))
	}
	assert.Eventually(t, func() bool { return receiver.Len() == 100 }, time.Second, time.Millisecond)
	// Check order is preserved
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	for i, frame := range receiver.frames {
		assert.Equal(t, uint8(i), frame.Data[0])
	}
}

func TestReceiveOwn(t *testing.T) {
	vcan := newVcan(t, t.Name())
	defer vcan.Disconnect()
	receiver := &FrameReceiver{}
	assert.Nil(t, vcan.Subscribe(receiver))
	assert.Nil(t, vcan.Send(can.Frame{ID: 0x1}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, receiver.Len())
	vcan.SetReceiveOwn(true)
	assert.Nil(t, vcan.Send(can.Frame{ID: 0x1}))
	assert.Eventually(t, func() bool { return receiver.Len() == 1 }, time.Second, time.Millisecond)
}

func TestChannelsAreIsolated(t *testing.T) {
	vcan1 := newVcan(t, t.Name()+"a")
	vcan2 := newVcan(t, t.Name()+"b")
	defer vcan1.Disconnect()
	defer vcan2.Disconnect()
	receiver := &FrameReceiver{}
	assert.Nil(t, vcan2.Subscribe(receiver))
	assert.Nil(t, vcan1.Send(can.Frame{ID: 0x1}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, receiver.Len())
}

func TestSendDisconnected(t *testing.T) {
	canBus, _ := NewVirtualCanBus(t.Name())
	assert.Equal(t, ErrDisconnected, canBus.Send(can.Frame{}))
	assert.Equal(t, ErrDisconnected, canBus.Subscribe(&FrameReceiver{}))
	assert.Nil(t, canBus.Disconnect())
}

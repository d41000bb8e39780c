package sdosync

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samsamfire/sdosync/pkg/sdo"
	"github.com/stretchr/testify/assert"
)

// Request completed synchronously by the stub dispatcher
type stubRequest struct {
	id     uuid.UUID
	d      *stubDispatcher
	status sdo.RequestStatus
	data   []byte
	waited bool
}

func (r *stubRequest) ID() uuid.UUID             { return r.id }
func (r *stubRequest) Wait()                     { r.waited = true }
func (r *stubRequest) Status() sdo.RequestStatus { return r.status }
func (r *stubRequest) Data() []byte              { return r.data }
func (r *stubRequest) Unref() {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	r.d.released++
}

// Dispatcher storing and echoing payloads
type stubDispatcher struct {
	mu          sync.Mutex
	entries     map[uint32][]byte
	created     int
	released    int
	failCreate  bool
	failStart   bool
	status      sdo.RequestStatus
	forcedData  []byte
	lastRequest *stubRequest
	lastInfo    sdo.RequestInfo
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{entries: make(map[uint32][]byte), status: sdo.StatusOk}
}

func (d *stubDispatcher) NewRequest(info *sdo.RequestInfo) (Request, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate {
		return nil, sdo.ErrNoResources
	}
	d.created++
	d.lastInfo = *info
	req := &stubRequest{id: uuid.New(), d: d, status: sdo.StatusPending}
	key := uint32(info.Index)<<8 | uint32(info.Subindex)
	switch info.Type {
	case sdo.RequestDownload:
		d.entries[key] = append([]byte(nil), info.Data...)
	case sdo.RequestUpload:
		req.data = d.entries[key]
		if d.forcedData != nil {
			req.data = d.forcedData
		}
	}
	d.lastRequest = req
	return req, nil
}

func (d *stubDispatcher) Start(req Request, nodeId uint8) error {
	if d.failStart {
		return sdo.ErrNoQueue
	}
	req.(*stubRequest).status = d.status
	return nil
}

func (d *stubDispatcher) balanced() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created == d.released
}

func TestRoundTrip(t *testing.T) {
	dispatcher := newStubDispatcher()
	client := NewClient(dispatcher)
	info := func(index uint16) *sdo.RequestInfo {
		return &sdo.RequestInfo{Index: index, Subindex: 1}
	}

	assert.Nil(t, client.WriteInt8(0x10, info(0x2001), -128))
	assert.Nil(t, client.WriteUint8(0x10, info(0x2002), 0xFF))
	assert.Nil(t, client.WriteInt16(0x10, info(0x2003), -1))
	assert.Nil(t, client.WriteUint16(0x10, info(0x2004), 0xBEEF))
	assert.Nil(t, client.WriteInt32(0x10, info(0x2005), -123456))
	assert.Nil(t, client.WriteUint32(0x10, info(0x2006), 0xDEADBEEF))
	assert.Nil(t, client.WriteInt64(0x10, info(0x2007), -9223372036854775808))
	assert.Nil(t, client.WriteUint64(0x10, info(0x2008), 0xFFFFFFFFFFFFFFFF))

	i8, err := client.ReadInt8(0x10, 0x2001, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, -128, i8)
	u8, err := client.ReadUint8(0x10, 0x2002, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, 0xFF, u8)
	i16, err := client.ReadInt16(0x10, 0x2003, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, -1, i16)
	u16, err := client.ReadUint16(0x10, 0x2004, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, 0xBEEF, u16)
	i32, err := client.ReadInt32(0x10, 0x2005, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, -123456, i32)
	u32, err := client.ReadUint32(0x10, 0x2006, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, uint32(0xDEADBEEF), u32)
	i64, err := client.ReadInt64(0x10, 0x2007, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, int64(-9223372036854775808), i64)
	u64, err := client.ReadUint64(0x10, 0x2008, 1)
	assert.Nil(t, err)
	assert.EqualValues(t, uint64(0xFFFFFFFFFFFFFFFF), u64)

	assert.True(t, dispatcher.balanced())
}

func TestWireFormat(t *testing.T) {
	dispatcher := newStubDispatcher()
	client := NewClient(dispatcher)
	t.Run("int16 -1 is FF FF", func(t *testing.T) {
		info := &sdo.RequestInfo{Index: 0x2000}
		assert.Nil(t, client.WriteInt16(0x10, info, -1))
		assert.Equal(t, []byte{0xFF, 0xFF}, dispatcher.entries[0x2000<<8])
		assert.Equal(t, sdo.RequestDownload, dispatcher.lastInfo.Type)
		value, err := client.ReadInt16(0x10, 0x2000, 0)
		assert.Nil(t, err)
		assert.EqualValues(t, -1, value)
	})
	t.Run("uint32 is little endian", func(t *testing.T) {
		info := &sdo.RequestInfo{Index: 0x2000}
		assert.Nil(t, client.WriteUint32(0x10, info, 0x12345678))
		assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, info.Data)
	})
	t.Run("read shorter entry into larger type", func(t *testing.T) {
		dispatcher.entries[0x2100<<8] = []byte{0x34, 0x12}
		value, err := client.ReadUint32(0x10, 0x2100, 0)
		assert.Nil(t, err)
		assert.EqualValues(t, 0x1234, value)
		assert.Equal(t, sdo.RequestUpload, dispatcher.lastInfo.Type)
	})
	t.Run("shorter signed entry is sign extended", func(t *testing.T) {
		dispatcher.entries[0x2101<<8] = []byte{0xFE, 0xFF}
		value, err := client.ReadInt32(0x10, 0x2101, 0)
		assert.Nil(t, err)
		assert.EqualValues(t, -2, value)
		unsigned, err := client.ReadUint32(0x10, 0x2101, 0)
		assert.Nil(t, err)
		assert.EqualValues(t, 0xFFFE, unsigned)
	})
	t.Run("empty entry is zero", func(t *testing.T) {
		dispatcher.entries[0x2102<<8] = []byte{}
		value, err := client.ReadInt64(0x10, 0x2102, 0)
		assert.Nil(t, err)
		assert.EqualValues(t, 0, value)
	})
	assert.True(t, dispatcher.balanced())
}

func TestAllocationFailure(t *testing.T) {
	dispatcher := newStubDispatcher()
	dispatcher.failCreate = true
	client := NewClient(dispatcher)

	req, err := client.Read(0x10, 0x2000, 0)
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrAllocation)

	reads := []func() error{
		func() error { _, err := client.ReadInt8(0x10, 0x2000, 0); return err },
		func() error { _, err := client.ReadUint8(0x10, 0x2000, 0); return err },
		func() error { _, err := client.ReadInt16(0x10, 0x2000, 0); return err },
		func() error { _, err := client.ReadUint16(0x10, 0x2000, 0); return err },
		func() error { _, err := client.ReadInt32(0x10, 0x2000, 0); return err },
		func() error { _, err := client.ReadUint32(0x10, 0x2000, 0); return err },
		func() error { _, err := client.ReadInt64(0x10, 0x2000, 0); return err },
		func() error { _, err := client.ReadUint64(0x10, 0x2000, 0); return err },
	}
	for _, read := range reads {
		assert.ErrorIs(t, read(), ErrAllocation)
	}
	info := &sdo.RequestInfo{Index: 0x2000}
	writes := []error{
		client.Write(0x10, info),
		client.WriteInt8(0x10, info, 1),
		client.WriteUint8(0x10, info, 1),
		client.WriteInt16(0x10, info, 1),
		client.WriteUint16(0x10, info, 1),
		client.WriteInt32(0x10, info, 1),
		client.WriteUint32(0x10, info, 1),
		client.WriteInt64(0x10, info, 1),
		client.WriteUint64(0x10, info, 1),
	}
	for _, err := range writes {
		assert.ErrorIs(t, err, ErrAllocation)
	}
	assert.Equal(t, 0, dispatcher.created)
	assert.True(t, dispatcher.balanced())
}

func TestSubmissionFailure(t *testing.T) {
	dispatcher := newStubDispatcher()
	dispatcher.failStart = true
	client := NewClient(dispatcher)

	value, err := client.ReadUint16(0x10, 0x2000, 0)
	assert.ErrorIs(t, err, ErrSubmission)
	assert.EqualValues(t, 0, value)
	assert.False(t, dispatcher.lastRequest.waited)
	assert.Equal(t, 1, dispatcher.released)

	err = client.WriteUint16(0x10, &sdo.RequestInfo{Index: 0x2000}, 10)
	assert.ErrorIs(t, err, ErrSubmission)
	assert.False(t, dispatcher.lastRequest.waited)
	assert.Equal(t, 2, dispatcher.released)
	assert.True(t, dispatcher.balanced())
}

func TestTransferFailure(t *testing.T) {
	for _, status := range []sdo.RequestStatus{sdo.StatusTimeout, sdo.StatusAborted, sdo.StatusProtocolError} {
		t.Run(status.String(), func(t *testing.T) {
			dispatcher := newStubDispatcher()
			dispatcher.entries[0x2000<<8] = []byte{1, 2}
			dispatcher.status = status
			client := NewClient(dispatcher)

			req, err := client.Read(0x10, 0x2000, 0)
			assert.Nil(t, req)
			assert.ErrorIs(t, err, ErrTransfer)
			value, err := client.ReadUint16(0x10, 0x2000, 0)
			assert.ErrorIs(t, err, ErrTransfer)
			assert.EqualValues(t, 0, value)
			err = client.WriteUint16(0x10, &sdo.RequestInfo{Index: 0x2000}, 10)
			assert.ErrorIs(t, err, ErrTransfer)
			assert.True(t, dispatcher.lastRequest.waited)
			assert.Equal(t, 3, dispatcher.created)
			assert.True(t, dispatcher.balanced())
		})
	}
}

func TestRangeError(t *testing.T) {
	dispatcher := newStubDispatcher()
	client := NewClient(dispatcher)
	dispatcher.forcedData = []byte{1, 2, 3}
	value, err := client.ReadUint16(0x10, 0x2000, 0)
	assert.ErrorIs(t, err, ErrRange)
	assert.EqualValues(t, 0, value)
	i8, err := client.ReadInt8(0x10, 0x2000, 0)
	assert.ErrorIs(t, err, ErrRange)
	assert.EqualValues(t, 0, i8)
	// Exactly the destination size is fine
	u32, err := client.ReadUint32(0x10, 0x2000, 0)
	assert.Nil(t, err)
	assert.EqualValues(t, 0x030201, u32)
	assert.Equal(t, 3, dispatcher.created)
	assert.True(t, dispatcher.balanced())
}

func TestReadOwnership(t *testing.T) {
	dispatcher := newStubDispatcher()
	dispatcher.entries[0x2000<<8] = []byte{0xAA}
	client := NewClient(dispatcher)
	req, err := client.Read(0x10, 0x2000, 0)
	assert.Nil(t, err)
	// Successful read hands the reference to the caller
	assert.Equal(t, 0, dispatcher.released)
	assert.Equal(t, []byte{0xAA}, req.Data())
	req.Unref()
	assert.True(t, dispatcher.balanced())
}

func TestWriteNilInfo(t *testing.T) {
	dispatcher := newStubDispatcher()
	client := NewClient(dispatcher)
	err := client.Write(0x10, nil)
	assert.True(t, errors.Is(err, sdo.ErrInvalidArgs))
	assert.False(t, errors.Is(err, ErrAllocation))
	assert.True(t, errors.Is(client.WriteUint8(0x10, nil, 1), sdo.ErrInvalidArgs))
	assert.Equal(t, 0, dispatcher.created)
}

func TestTypeTraits(t *testing.T) {
	assert.Equal(t, 1, sizeOf[int8]())
	assert.Equal(t, 2, sizeOf[uint16]())
	assert.Equal(t, 4, sizeOf[int32]())
	assert.Equal(t, 8, sizeOf[uint64]())
	assert.True(t, signed[int16]())
	assert.False(t, signed[uint16]())
	assert.Equal(t, []byte{0xFF}, encode(int8(-1)))
	assert.EqualValues(t, -1, decode[int64]([]byte{0xFF}))
	assert.EqualValues(t, 0xFF, decode[uint64]([]byte{0xFF}))
}

package sdo

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type RequestType uint8

const (
	RequestUpload   RequestType = iota // Read from remote object dictionary
	RequestDownload                    // Write to remote object dictionary
)

func (t RequestType) String() string {
	switch t {
	case RequestUpload:
		return "upload"
	case RequestDownload:
		return "download"
	default:
		return "unknown"
	}
}

type RequestStatus uint8

const (
	StatusPending RequestStatus = iota
	StatusOk
	StatusTimeout
	StatusAborted
	StatusProtocolError
)

func (s RequestStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOk:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusAborted:
		return "aborted"
	case StatusProtocolError:
		return "protocol error"
	default:
		return "unknown"
	}
}

// RequestInfo describes a transfer to perform
// It is only read when creating a [Request], Data is copied
type RequestInfo struct {
	Type     RequestType
	Index    uint16
	Subindex uint8
	Data     []byte // Payload for downloads
}

// Request is a reference counted handle on a single SDO transfer.
// It is created with one reference owned by the creator.
type Request struct {
	id       uuid.UUID
	reqType  RequestType
	index    uint16
	subindex uint8
	refs     atomic.Int32
	done     chan struct{}
	onFree   func()

	mu     sync.Mutex
	status RequestStatus
	data   []byte
	err    error
}

func newRequest(info *RequestInfo, onFree func()) *Request {
	req := &Request{
		id:       uuid.New(),
		reqType:  info.Type,
		index:    info.Index,
		subindex: info.Subindex,
		done:     make(chan struct{}),
		onFree:   onFree,
		status:   StatusPending,
	}
	if info.Type == RequestDownload {
		req.data = append([]byte(nil), info.Data...)
	}
	req.refs.Store(1)
	return req
}

func (r *Request) ID() uuid.UUID {
	return r.id
}

func (r *Request) Type() RequestType {
	return r.reqType
}

func (r *Request) Index() uint16 {
	return r.index
}

func (r *Request) Subindex() uint8 {
	return r.subindex
}

// Block until the request reaches a terminal status
func (r *Request) Wait() {
	<-r.done
}

// Done is closed once the request reaches a terminal status
func (r *Request) Done() <-chan struct{} {
	return r.done
}

func (r *Request) Status() RequestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Transferred payload, valid once Wait has returned with [StatusOk]
func (r *Request) Data() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Error reported by the transfer, if any
func (r *Request) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Take an additional reference on the request
func (r *Request) Ref() {
	r.refs.Add(1)
}

// Release a reference, the request is freed when no references are left
func (r *Request) Unref() {
	refs := r.refs.Add(-1)
	switch {
	case refs == 0:
		if r.onFree != nil {
			r.onFree()
		}
	case refs < 0:
		log.Errorf("[SDO][REQ] %v released more times than referenced", r.id)
	}
}

// Mark the request as finished, subsequent calls are ignored
func (r *Request) complete(status RequestStatus, data []byte, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPending {
		return
	}
	r.status = status
	r.err = err
	if r.reqType == RequestUpload {
		r.data = data
	}
	close(r.done)
}

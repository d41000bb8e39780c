package sdo

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Transferer performs the actual SDO transfers with a given node
type Transferer interface {
	Upload(index uint16, subindex uint8) ([]byte, error)
	Download(index uint16, subindex uint8, data []byte) error
}

// Queue serializes the requests for one node.
// Requests are processed in FIFO order by a single worker
type Queue struct {
	nodeId     uint8
	transferer Transferer
	requests   chan *Request
	mu         sync.RWMutex
	closed     bool
	wg         sync.WaitGroup
}

func newQueue(nodeId uint8, transferer Transferer, depth int) *Queue {
	q := &Queue{
		nodeId:     nodeId,
		transferer: transferer,
		requests:   make(chan *Request, depth),
	}
	q.wg.Add(1)
	go q.process()
	return q
}

func (q *Queue) NodeId() uint8 {
	return q.nodeId
}

func (q *Queue) push(req *Request) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop accepting requests, already queued requests are still processed
func (q *Queue) close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("node x%x : %w", q.nodeId, ErrQueueClosed)
	}
	q.closed = true
	close(q.requests)
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}

func (q *Queue) process() {
	defer q.wg.Done()
	for req := range q.requests {
		q.execute(req)
		// Release the reference taken when the request was started
		req.Unref()
	}
}

func (q *Queue) execute(req *Request) {
	var data []byte
	var err error
	switch req.Type() {
	case RequestUpload:
		data, err = q.transferer.Upload(req.Index(), req.Subindex())
	case RequestDownload:
		err = q.transferer.Download(req.Index(), req.Subindex(), req.Data())
	default:
		err = ErrInvalidArgs
	}
	status := classify(err)
	if err != nil {
		log.Debugf("[SDO][QUEUE][%v] node x%x %v x%x|x%x failed (%v) : %v",
			req.ID(), q.nodeId, req.Type(), req.Index(), req.Subindex(), status, err)
	} else {
		log.Debugf("[SDO][QUEUE][%v] node x%x %v x%x|x%x done",
			req.ID(), q.nodeId, req.Type(), req.Index(), req.Subindex())
	}
	req.complete(status, data, err)
}

func classify(err error) RequestStatus {
	var abort Abort
	switch {
	case err == nil:
		return StatusOk
	case errors.As(err, &abort) && abort == AbortTimeout:
		return StatusTimeout
	case errors.As(err, &abort):
		return StatusAborted
	default:
		return StatusProtocolError
	}
}

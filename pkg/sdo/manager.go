package sdo

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	DefaultMaxRequests = 64
	DefaultQueueDepth  = 16
)

// Manager creates requests and dispatches them to per node queues
type Manager struct {
	mu          sync.RWMutex
	queues      map[uint8]*Queue
	maxRequests int32
	queueDepth  int
	outstanding atomic.Int32
}

// Create a new [Manager], zero or negative values select the defaults
func NewManager(maxRequests int, queueDepth int) *Manager {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &Manager{
		queues:      make(map[uint8]*Queue),
		maxRequests: int32(maxRequests),
		queueDepth:  queueDepth,
	}
}

// Create a request queue for a node, transfers are performed by transferer
func (m *Manager) AddNode(nodeId uint8, transferer Transferer) (*Queue, error) {
	if transferer == nil {
		return nil, ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[nodeId]; ok {
		return nil, ErrNodeExists
	}
	q := newQueue(nodeId, transferer, m.queueDepth)
	m.queues[nodeId] = q
	log.Debugf("[SDO][MANAGER] added queue for node x%x", nodeId)
	return q, nil
}

// Remove a node queue, waiting for already queued requests to finish
func (m *Manager) RemoveNode(nodeId uint8) error {
	m.mu.Lock()
	q, ok := m.queues[nodeId]
	delete(m.queues, nodeId)
	m.mu.Unlock()
	if !ok {
		return ErrNoQueue
	}
	return q.close()
}

// Get the queue associated to a node, nil if none
func (m *Manager) Queue(nodeId uint8) *Queue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queues[nodeId]
}

// Create a new request, the caller owns the returned reference
func (m *Manager) NewRequest(info *RequestInfo) (*Request, error) {
	if info == nil {
		return nil, ErrInvalidArgs
	}
	for {
		current := m.outstanding.Load()
		if current >= m.maxRequests {
			return nil, ErrNoResources
		}
		if m.outstanding.CompareAndSwap(current, current+1) {
			break
		}
	}
	return newRequest(info, func() { m.outstanding.Add(-1) }), nil
}

// Submit a request to a queue
// The queue holds its own reference on the request until the transfer is done
func (m *Manager) Start(req *Request, q *Queue) error {
	if req == nil {
		return ErrInvalidArgs
	}
	if q == nil {
		return ErrNoQueue
	}
	if req.Status() != StatusPending {
		return ErrNotPending
	}
	req.Ref()
	err := q.push(req)
	if err != nil {
		req.Unref()
		return err
	}
	log.Debugf("[SDO][MANAGER][%v] queued %v x%x|x%x for node x%x", req.ID(), req.Type(), req.Index(), req.Subindex(), q.NodeId())
	return nil
}

// Number of requests not yet freed
func (m *Manager) Outstanding() int {
	return int(m.outstanding.Load())
}

// Close all the queues
func (m *Manager) Close() error {
	m.mu.Lock()
	queues := m.queues
	m.queues = make(map[uint8]*Queue)
	m.mu.Unlock()
	var err error
	for _, q := range queues {
		err = multierr.Append(err, q.close())
	}
	return err
}

// Package sdosync provides blocking reads and writes of remote object
// dictionary entries on top of an asynchronous SDO request queue.
//
// Every call allocates exactly one request and releases it exactly once
// before returning, except for a successful [Client.Read] which hands
// its reference over to the caller.
package sdosync

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samsamfire/sdosync/pkg/sdo"
	log "github.com/sirupsen/logrus"
)

// Request is a handle on a single SDO transfer.
type Request interface {
	ID() uuid.UUID             // Identifier used in logs
	Wait()                     // Block until the transfer is finished
	Status() sdo.RequestStatus // Terminal status, valid after Wait
	Data() []byte              // Transferred payload, valid after Wait with sdo.StatusOk
	Unref()                    // Release the caller's reference
}

// Dispatcher creates requests and submits them to the queue of a node.
type Dispatcher interface {
	NewRequest(info *sdo.RequestInfo) (Request, error)
	Start(req Request, nodeId uint8) error
}

// Client performs blocking SDO transfers through a [Dispatcher]
type Client struct {
	dispatcher Dispatcher
}

func NewClient(dispatcher Dispatcher) *Client {
	return &Client{dispatcher: dispatcher}
}

// Create a client dispatching requests through an [sdo.Manager]
func NewManagerClient(manager *sdo.Manager) *Client {
	return NewClient(&managerDispatcher{manager: manager})
}

// Create, submit and wait for a request.
// On success the returned request holds the caller's reference.
func (c *Client) transfer(nodeId uint8, info *sdo.RequestInfo) (Request, error) {
	req, err := c.dispatcher.NewRequest(info)
	if err != nil || req == nil {
		return nil, fmt.Errorf("%w : node x%x x%x|x%x : %v", ErrAllocation, nodeId, info.Index, info.Subindex, err)
	}
	owned := true
	defer func() {
		if owned {
			req.Unref()
		}
	}()

	err = c.dispatcher.Start(req, nodeId)
	if err != nil {
		log.Debugf("[SDO][SYNC][%v] submission failed : %v", req.ID(), err)
		return nil, fmt.Errorf("%w : node x%x x%x|x%x : %v", ErrSubmission, nodeId, info.Index, info.Subindex, err)
	}

	req.Wait()

	if status := req.Status(); status != sdo.StatusOk {
		log.Debugf("[SDO][SYNC][%v] transfer failed : %v", req.ID(), status)
		return nil, fmt.Errorf("%w : node x%x x%x|x%x : %v", ErrTransfer, nodeId, info.Index, info.Subindex, status)
	}
	owned = false
	return req, nil
}

// Read an entry from a remote node, blocking until the transfer is done.
// The caller must Unref the returned request once the data has been used.
func (c *Client) Read(nodeId uint8, index uint16, subindex uint8) (Request, error) {
	info := sdo.RequestInfo{
		Type:     sdo.RequestUpload,
		Index:    index,
		Subindex: subindex,
	}
	req, err := c.transfer(nodeId, &info)
	if err != nil {
		log.Debugf("[SDO][SYNC] read failed : %v", err)
		return nil, err
	}
	log.Debugf("[SDO][SYNC][%v] read node x%x x%x|x%x : %v", req.ID(), nodeId, index, subindex, req.Data())
	return req, nil
}

// Write an entry of a remote node, blocking until the transfer is done.
// The transfer type of info is forced to download.
func (c *Client) Write(nodeId uint8, info *sdo.RequestInfo) error {
	if info == nil {
		return fmt.Errorf("node x%x : no request info : %w", nodeId, sdo.ErrInvalidArgs)
	}
	info.Type = sdo.RequestDownload
	req, err := c.transfer(nodeId, info)
	if err != nil {
		log.Debugf("[SDO][SYNC] write failed : %v", err)
		return err
	}
	log.Debugf("[SDO][SYNC][%v] write node x%x x%x|x%x : %v", req.ID(), nodeId, info.Index, info.Subindex, info.Data)
	req.Unref()
	return nil
}

type managerDispatcher struct {
	manager *sdo.Manager
}

func (d *managerDispatcher) NewRequest(info *sdo.RequestInfo) (Request, error) {
	req, err := d.manager.NewRequest(info)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (d *managerDispatcher) Start(req Request, nodeId uint8) error {
	r, ok := req.(*sdo.Request)
	if !ok {
		return sdo.ErrInvalidArgs
	}
	return d.manager.Start(r, d.manager.Queue(nodeId))
}

package sdo

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/samsamfire/sdosync/pkg/can"
	log "github.com/sirupsen/logrus"
)

const clientRxQueueSize = 32

// Client performs expedited and segmented SDO transfers with a single server.
// Transfers are serialized, a client handles one transfer at a time.
type Client struct {
	bm                  *can.BusManager
	mu                  sync.Mutex
	nodeIdServer        uint8
	cobIdClientToServer uint32
	cobIdServerToClient uint32
	timeout             time.Duration
	rx                  chan [8]byte
}

// Create a new client for the server with the given node id
func NewClient(bm *can.BusManager, nodeIdServer uint8, timeout time.Duration) (*Client, error) {
	if bm == nil || nodeIdServer < 1 || nodeIdServer > 127 {
		return nil, ErrInvalidArgs
	}
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	c := &Client{
		bm:                  bm,
		nodeIdServer:        nodeIdServer,
		cobIdClientToServer: ClientBaseId + uint32(nodeIdServer),
		cobIdServerToClient: ServerBaseId + uint32(nodeIdServer),
		timeout:             timeout,
		rx:                  make(chan [8]byte, clientRxQueueSize),
	}
	err := bm.Subscribe(c.cobIdServerToClient, false, c)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Handle [Client] related RX CAN frames
func (c *Client) Handle(frame can.Frame) {
	if frame.DLC != 8 {
		return
	}
	select {
	case c.rx <- frame.Data:
	default:
		log.Warnf("[SDO][CLIENT] rx buffer full for server x%x, dropping frame", c.nodeIdServer)
	}
}

// Stop receiving frames from the server
func (c *Client) Close() {
	c.bm.Unsubscribe(c.cobIdServerToClient, false, c)
}

func (c *Client) NodeIdServer() uint8 {
	return c.nodeIdServer
}

func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Discard any stale response from a previous transfer
func (c *Client) drain() {
	for {
		select {
		case <-c.rx:
		default:
			return
		}
	}
}

func (c *Client) send(data [8]byte) error {
	frame := can.NewFrame(c.cobIdClientToServer, 0, 8)
	frame.Data = data
	return c.bm.Send(frame)
}

// Send an abort to the server and return the abort code
func (c *Client) abort(index uint16, subindex uint8, code Abort) error {
	log.Debugf("[SDO][CLIENT][TX] abort server x%x x%x|x%x : %v", c.nodeIdServer, index, subindex, code)
	_ = c.send(abortPayload(index, subindex, code))
	return code
}

// Exchange a request with a response from the server
// Server aborts and unexpected command specifiers are returned as errors
func (c *Client) exchange(index uint16, subindex uint8, request [8]byte, expected uint8) ([8]byte, error) {
	err := c.send(request)
	if err != nil {
		return [8]byte{}, err
	}
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case response := <-c.rx:
		if response[0] == csAbort {
			code := payloadAbortCode(response)
			log.Debugf("[SDO][CLIENT][RX] server x%x abort x%x|x%x : %v", c.nodeIdServer, index, subindex, code)
			return response, code
		}
		if response[0]&csMask != expected {
			log.Warnf("[SDO][CLIENT][RX] unexpected response code from server : x%x", response[0])
			return response, c.abort(index, subindex, AbortCmd)
		}
		return response, nil
	case <-timer.C:
		return [8]byte{}, c.abort(index, subindex, AbortTimeout)
	}
}

// Read the value of an entry of the remote object dictionary
func (c *Client) Upload(index uint16, subindex uint8) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain()

	request := [8]byte{ccsUploadInitiate, byte(index), byte(index >> 8), subindex}
	response, err := c.exchange(index, subindex, request, scsUploadInitiate)
	if err != nil {
		return nil, err
	}
	if payloadIndex(response) != index || response[3] != subindex {
		return nil, c.abort(index, subindex, AbortParamIncompat)
	}

	// Expedited transfer
	if response[0]&0x02 != 0 {
		size := 4
		if response[0]&0x01 != 0 {
			size -= int(response[0]>>2) & 0x03
		}
		log.Debugf("[SDO][CLIENT][RX] upload expedited server x%x x%x|x%x : %v", c.nodeIdServer, index, subindex, response)
		return append([]byte(nil), response[4:4+size]...), nil
	}

	// Segmented transfer
	sizeIndicated := response[0]&0x01 != 0
	size := binary.LittleEndian.Uint32(response[4:])
	data := make([]byte, 0, BlockSeqSize)
	toggle := uint8(0)
	for {
		response, err = c.exchange(index, subindex, [8]byte{ccsUploadSegment | toggle}, scsUploadSegment)
		if err != nil {
			return nil, err
		}
		if response[0]&toggleBit != toggle {
			return nil, c.abort(index, subindex, AbortToggleBit)
		}
		n := BlockSeqSize - int(response[0]>>1)&0x07
		data = append(data, response[1:1+n]...)
		if sizeIndicated && uint32(len(data)) > size {
			return nil, c.abort(index, subindex, AbortDataLong)
		}
		if response[0]&0x01 != 0 {
			break
		}
		toggle ^= toggleBit
	}
	if sizeIndicated && uint32(len(data)) < size {
		return nil, c.abort(index, subindex, AbortDataShort)
	}
	log.Debugf("[SDO][CLIENT][RX] upload segmented server x%x x%x|x%x : %v bytes", c.nodeIdServer, index, subindex, len(data))
	return data, nil
}

// Write a value to an entry of the remote object dictionary
func (c *Client) Download(index uint16, subindex uint8, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain()

	request := [8]byte{0, byte(index), byte(index >> 8), subindex}

	// Expedited transfer
	if len(data) > 0 && len(data) <= 4 {
		request[0] = ccsDownloadInitiate | 0x03 | byte(4-len(data))<<2
		copy(request[4:], data)
		response, err := c.exchange(index, subindex, request, scsDownloadInitiate)
		if err != nil {
			return err
		}
		if payloadIndex(response) != index || response[3] != subindex {
			return c.abort(index, subindex, AbortParamIncompat)
		}
		log.Debugf("[SDO][CLIENT][TX] download expedited server x%x x%x|x%x : %v", c.nodeIdServer, index, subindex, data)
		return nil
	}

	// Segmented transfer, size is always indicated
	request[0] = ccsDownloadInitiate | 0x01
	binary.LittleEndian.PutUint32(request[4:], uint32(len(data)))
	response, err := c.exchange(index, subindex, request, scsDownloadInitiate)
	if err != nil {
		return err
	}
	if payloadIndex(response) != index || response[3] != subindex {
		return c.abort(index, subindex, AbortParamIncompat)
	}
	toggle := uint8(0)
	remaining := data
	for {
		n := len(remaining)
		if n > BlockSeqSize {
			n = BlockSeqSize
		}
		segment := [8]byte{ccsDownloadSegment | toggle | byte(BlockSeqSize-n)<<1}
		last := n == len(remaining)
		if last {
			segment[0] |= 0x01
		}
		copy(segment[1:], remaining[:n])
		response, err = c.exchange(index, subindex, segment, scsDownloadSegment)
		if err != nil {
			return err
		}
		if response[0]&toggleBit != toggle {
			return c.abort(index, subindex, AbortToggleBit)
		}
		remaining = remaining[n:]
		if last {
			break
		}
		toggle ^= toggleBit
	}
	log.Debugf("[SDO][CLIENT][TX] download segmented server x%x x%x|x%x : %v bytes", c.nodeIdServer, index, subindex, len(data))
	return nil
}

package sdo

import (
	"encoding/binary"
	"sync"

	"github.com/samsamfire/sdosync/pkg/can"
	"github.com/samsamfire/sdosync/pkg/od"
	log "github.com/sirupsen/logrus"
)

type serverState uint8

const (
	stateIdle serverState = iota
	stateUploadSegment
	stateDownloadSegment
)

// Server answers expedited and segmented SDO requests from an object dictionary.
type Server struct {
	bm                  *can.BusManager
	mu                  sync.Mutex
	od                  *od.ObjectDictionary
	nodeId              uint8
	cobIdClientToServer uint32
	cobIdServerToClient uint32
	state               serverState
	index               uint16
	subindex            uint8
	toggle              uint8
	sizeIndicated       uint32
	buf                 []byte
}

func NewServer(bm *can.BusManager, nodeId uint8, dictionary *od.ObjectDictionary) (*Server, error) {
	if bm == nil || dictionary == nil || nodeId < 1 || nodeId > 127 {
		return nil, ErrInvalidArgs
	}
	s := &Server{
		bm:                  bm,
		od:                  dictionary,
		nodeId:              nodeId,
		cobIdClientToServer: ClientBaseId + uint32(nodeId),
		cobIdServerToClient: ServerBaseId + uint32(nodeId),
	}
	err := bm.Subscribe(s.cobIdClientToServer, false, s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Stop answering requests
func (s *Server) Close() {
	s.bm.Unsubscribe(s.cobIdClientToServer, false, s)
}

func (s *Server) send(data [8]byte) {
	frame := can.NewFrame(s.cobIdServerToClient, 0, 8)
	frame.Data = data
	_ = s.bm.Send(frame)
}

func (s *Server) sendAbort(index uint16, subindex uint8, code Abort) {
	log.Debugf("[SDO][SERVER][TX] abort x%x|x%x : %v", index, subindex, code)
	s.state = stateIdle
	s.send(abortPayload(index, subindex, code))
}

// Handle [Server] related RX CAN frames
func (s *Server) Handle(frame can.Frame) {
	if frame.DLC != 8 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rx := frame.Data
	if rx[0] == csAbort {
		s.state = stateIdle
		return
	}
	var err error
	switch rx[0] & csMask {
	case ccsUploadInitiate:
		err = s.rxUploadInitiate(rx)
	case ccsUploadSegment:
		err = s.rxUploadSegment(rx)
	case ccsDownloadInitiate:
		err = s.rxDownloadInitiate(rx)
	case ccsDownloadSegment:
		err = s.rxDownloadSegment(rx)
	default:
		err = AbortCmd
	}
	if err != nil {
		abort, ok := err.(Abort)
		if !ok {
			abort = ConvertOdToSdoAbort(err)
		}
		s.sendAbort(s.index, s.subindex, abort)
	}
}

func (s *Server) lookup(rx [8]byte, attribute uint8) (*od.Variable, error) {
	s.index = payloadIndex(rx)
	s.subindex = rx[3]
	variable, err := s.od.Variable(s.index, s.subindex)
	if err != nil {
		return nil, err
	}
	if !variable.HasAttribute(attribute) {
		if attribute == od.AttributeSdoR {
			return nil, AbortWriteOnly
		}
		return nil, AbortReadOnly
	}
	return variable, nil
}

func (s *Server) rxUploadInitiate(rx [8]byte) error {
	if _, err := s.lookup(rx, od.AttributeSdoR); err != nil {
		return err
	}
	value, err := s.od.Get(s.index, s.subindex)
	if err != nil {
		return err
	}
	tx := [8]byte{0, byte(s.index), byte(s.index >> 8), s.subindex}
	// Expedited transfer
	if len(value) > 0 && len(value) <= 4 {
		tx[0] = scsUploadInitiate | 0x03 | byte(4-len(value))<<2
		copy(tx[4:], value)
		s.state = stateIdle
		log.Debugf("[SDO][SERVER][TX] upload expedited x%x|x%x : %v", s.index, s.subindex, tx)
		s.send(tx)
		return nil
	}
	// Switch to segmented response
	tx[0] = scsUploadInitiate | 0x01
	binary.LittleEndian.PutUint32(tx[4:], uint32(len(value)))
	s.buf = value
	s.toggle = 0
	s.state = stateUploadSegment
	log.Debugf("[SDO][SERVER][TX] upload segmented init x%x|x%x : %v bytes", s.index, s.subindex, len(value))
	s.send(tx)
	return nil
}

func (s *Server) rxUploadSegment(rx [8]byte) error {
	if s.state != stateUploadSegment {
		return AbortCmd
	}
	if rx[0]&toggleBit != s.toggle {
		return AbortToggleBit
	}
	n := len(s.buf)
	if n > BlockSeqSize {
		n = BlockSeqSize
	}
	tx := [8]byte{scsUploadSegment | s.toggle | byte(BlockSeqSize-n)<<1}
	copy(tx[1:], s.buf[:n])
	s.buf = s.buf[n:]
	if len(s.buf) == 0 {
		tx[0] |= 0x01
		s.state = stateIdle
	}
	s.toggle ^= toggleBit
	s.send(tx)
	return nil
}

func (s *Server) rxDownloadInitiate(rx [8]byte) error {
	variable, err := s.lookup(rx, od.AttributeSdoW)
	if err != nil {
		return err
	}
	tx := [8]byte{scsDownloadInitiate, byte(s.index), byte(s.index >> 8), s.subindex}

	// Expedited transfer type, we write directly inside OD
	if rx[0]&0x02 != 0 {
		nbToWrite := 4
		if rx[0]&0x01 != 0 {
			nbToWrite -= int(rx[0]>>2) & 0x03
		} else if length := variable.DataLength(); length > 0 && length < 4 {
			nbToWrite = int(length)
		}
		err = s.od.Set(s.index, s.subindex, rx[4:4+nbToWrite])
		if err != nil {
			return err
		}
		s.state = stateIdle
		log.Debugf("[SDO][SERVER][RX] download expedited x%x|x%x : %v", s.index, s.subindex, rx[4:4+nbToWrite])
		s.send(tx)
		return nil
	}

	// Segmented transfer type, check coherence between size in OD and requested size
	s.sizeIndicated = 0
	if rx[0]&0x01 != 0 {
		s.sizeIndicated = binary.LittleEndian.Uint32(rx[4:])
		if !variable.HasAttribute(od.AttributeStr) {
			if s.sizeIndicated > variable.DataLength() {
				return AbortDataLong
			} else if s.sizeIndicated < variable.DataLength() {
				return AbortDataShort
			}
		}
	}
	s.buf = make([]byte, 0, s.sizeIndicated)
	s.toggle = 0
	s.state = stateDownloadSegment
	s.send(tx)
	return nil
}

func (s *Server) rxDownloadSegment(rx [8]byte) error {
	if s.state != stateDownloadSegment {
		return AbortCmd
	}
	if rx[0]&toggleBit != s.toggle {
		return AbortToggleBit
	}
	n := BlockSeqSize - int(rx[0]>>1)&0x07
	s.buf = append(s.buf, rx[1:1+n]...)
	if s.sizeIndicated > 0 && uint32(len(s.buf)) > s.sizeIndicated {
		return AbortDataLong
	}
	tx := [8]byte{scsDownloadSegment | s.toggle}
	s.toggle ^= toggleBit
	if rx[0]&0x01 != 0 {
		if s.sizeIndicated > 0 && uint32(len(s.buf)) < s.sizeIndicated {
			return AbortDataShort
		}
		err := s.od.Set(s.index, s.subindex, s.buf)
		if err != nil {
			return err
		}
		s.state = stateIdle
		log.Debugf("[SDO][SERVER][RX] download segmented x%x|x%x : %v bytes", s.index, s.subindex, len(s.buf))
	}
	s.send(tx)
	return nil
}

package link

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is one parsed incoming frame on the host side.
type Frame struct {
	Sequence uint8
	Payload  []byte
}

// HostTransport speaks the link protocol from the host end: it frames
// outgoing messages, waits for the board's ACK, and hands received
// report frames to a channel and an optional async handler.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq   uint32 // atomic, SeqDest|counter
	synchronized uint32 // atomic bool

	input *FifoBuffer

	ackChan   chan *Frame
	frameChan chan *Frame

	handler MessageHandler

	writeMu sync.Mutex

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport starts a transport over the given port. A background
// goroutine reads and parses frames until Close.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   SeqDest,
		synchronized: 1,
		input:        NewFifoBuffer(512),
		ackChan:      make(chan *Frame, 1),
		frameChan:    make(chan *Frame, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SetHandler registers an async callback for report frames. It runs on
// the reader goroutine.
func (t *HostTransport) SetHandler(handler MessageHandler) {
	t.handler = handler
}

// SendMessage frames one message, writes it and waits for the board's
// acknowledgement.
func (t *HostTransport) SendMessage(msg uint8, args func(output OutputBuffer)) error {
	return t.SendMessageTimeout(msg, args, 2*time.Second)
}

// SendMessageTimeout is SendMessage with an explicit ACK deadline.
func (t *HostTransport) SendMessageTimeout(msg uint8, args func(output OutputBuffer), timeout time.Duration) error {
	wire, err := t.buildFrame(msg, args)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	n, err := t.port.Write(wire)
	t.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != len(wire) {
		return fmt.Errorf("write frame: short write %d/%d", n, len(wire))
	}

	return t.waitAck(timeout)
}

// WaitFrame returns the next report frame, or an error on timeout.
func (t *HostTransport) WaitFrame(timeout time.Duration) (*Frame, error) {
	select {
	case f := <-t.frameChan:
		return f, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("frame timeout after %v", timeout)
	case <-t.stopChan:
		return nil, fmt.Errorf("transport closed")
	}
}

func (t *HostTransport) buildFrame(msg uint8, args func(output OutputBuffer)) ([]byte, error) {
	scratch := NewScratchOutput()
	EncodeUint(scratch, uint32(msg))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()

	frameLen := FrameHeaderSize + len(payload) + FrameTrailerSize
	if frameLen > FrameLengthMax {
		return nil, fmt.Errorf("frame too long: %d bytes", frameLen)
	}

	seq := uint8(atomic.LoadUint32(&t.currentSeq))
	wire := make([]byte, 0, frameLen)
	wire = append(wire, uint8(frameLen), seq)
	wire = append(wire, payload...)
	crc := CRC16(wire)
	return append(wire, uint8(crc>>8), uint8(crc), SyncByte), nil
}

func (t *HostTransport) waitAck(timeout time.Duration) error {
	select {
	case ack := <-t.ackChan:
		expected := uint8(atomic.LoadUint32(&t.currentSeq))
		if ack.Sequence == expected {
			// Board has not seen this frame yet; its ACK still carries
			// the old sequence. Treat as lost.
			return fmt.Errorf("frame not acknowledged (seq %#02x)", expected)
		}
		atomic.StoreUint32(&t.currentSeq, uint32(((expected+1)&SeqMask)|SeqDest))
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("ack timeout after %v", timeout)
	case <-t.stopChan:
		return fmt.Errorf("transport closed")
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)
	buf := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if err != nil {
			if err == io.EOF {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n > 0 {
			t.input.Write(buf[:n])
			t.parseFrames()
		}
	}
}

func (t *HostTransport) parseFrames() {
	data := t.input.Data()

	for len(data) > 0 {
		if atomic.LoadUint32(&t.synchronized) == 0 {
			syncPos := -1
			for i, b := range data {
				if b == SyncByte {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			atomic.StoreUint32(&t.synchronized, 1)
			continue
		}

		if data[0] == SyncByte {
			data = data[1:]
			continue
		}
		if len(data) < FrameLengthMin {
			break
		}
		frameLen := int(data[framePosLen])
		if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
			atomic.StoreUint32(&t.synchronized, 0)
			continue
		}
		if len(data) < frameLen {
			break
		}
		if data[frameLen-1] != SyncByte {
			atomic.StoreUint32(&t.synchronized, 0)
			continue
		}
		wireCRC := uint16(data[frameLen-FrameTrailerSize])<<8 |
			uint16(data[frameLen-FrameTrailerSize+1])
		if wireCRC != CRC16(data[:frameLen-FrameTrailerSize]) {
			atomic.StoreUint32(&t.synchronized, 0)
			continue
		}

		payload := append([]byte(nil), data[FrameHeaderSize:frameLen-FrameTrailerSize]...)
		f := &Frame{Sequence: data[framePosSeq], Payload: payload}
		data = data[frameLen:]

		t.dispatch(f)
	}

	if consumed := t.input.Available() - len(data); consumed > 0 {
		t.input.Pop(consumed)
	}
}

func (t *HostTransport) dispatch(f *Frame) {
	if len(f.Payload) == 0 {
		// Bare frame: the board's ACK/NAK.
		select {
		case t.ackChan <- f:
		default:
		}
		return
	}

	if t.handler != nil {
		payload := append([]byte(nil), f.Payload...)
		if msg, err := DecodeUint(&payload); err == nil {
			_ = t.handler(uint8(msg), &payload)
		}
	}

	select {
	case t.frameChan <- f:
	default:
		// Channel full; drop the oldest report to keep the stream live.
		select {
		case <-t.frameChan:
		default:
		}
		t.frameChan <- f
	}
}

// Close stops the reader and closes the port.
func (t *HostTransport) Close() error {
	close(t.stopChan)
	<-t.doneChan
	if t.port != nil {
		return t.port.Close()
	}
	return nil
}

// Reset returns the transport to its initial state after an error.
func (t *HostTransport) Reset() {
	atomic.StoreUint32(&t.synchronized, 1)
	atomic.StoreUint32(&t.currentSeq, SeqDest)
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.frameChan) > 0 {
		<-t.frameChan
	}
	t.input.Reset()
}

package rcon

import (
	"encoding/binary"
	"fmt"
)

// FrameReader assembles complete packets from a stream that may deliver bytes
// in arbitrarily small chunks. Feed appends raw bytes; Next extracts at most
// one packet per call. The reader is not safe for concurrent use; it belongs
// to exactly one connection.
type FrameReader struct {
	buf           []byte
	maxPacketSize int32
}

func NewFrameReader(maxPacketSize int32) *FrameReader {
	if maxPacketSize <= 0 {
		maxPacketSize = DefaultMaxPacketSize
	}
	return &FrameReader{maxPacketSize: maxPacketSize}
}

// Feed appends a chunk to the accumulation buffer. It performs no parsing.
func (r *FrameReader) Feed(chunk []byte) {
	r.buf = append(r.buf, chunk...)
}

// Buffered reports the byte count currently awaiting extraction.
func (r *FrameReader) Buffered() int {
	return len(r.buf)
}

// Next extracts the next complete packet from the buffer. It returns false
// when more bytes are needed, which is the only suspension point for a read
// loop. A declared size outside the valid range poisons the stream: framing
// can no longer be trusted, so the error is terminal for the connection.
func (r *FrameReader) Next() (Packet, bool, error) {
	if len(r.buf) < 4 {
		return Packet{}, false, nil
	}
	size := int32(binary.LittleEndian.Uint32(r.buf[0:4]))
	if size < packetOverhead || size > r.maxPacketSize {
		return Packet{}, false, fmt.Errorf("%w: declared size %d outside [%d, %d]", ErrMalformedPacket, size, packetOverhead, r.maxPacketSize)
	}
	total := 4 + int(size)
	if len(r.buf) < total {
		return Packet{}, false, nil
	}
	p, err := Decode(r.buf[4:total])
	if err != nil {
		return Packet{}, false, err
	}
	r.buf = append(r.buf[:0], r.buf[total:]...)
	return p, true, nil
}

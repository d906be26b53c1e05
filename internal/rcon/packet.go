package rcon

import (
	"encoding/binary"
	"fmt"
)

const (
	// TypeAuth carries the console password in its body.
	TypeAuth int32 = 3

	// TypeAuthResponse answers an auth attempt. An ID of -1 signals that the
	// server rejected the credentials.
	TypeAuthResponse int32 = 2

	// TypeExecCommand carries a command for the server to execute. It shares
	// wire tag 2 with TypeAuthResponse; which one an inbound frame means is
	// decided by the pending request it correlates with, never by the tag.
	TypeExecCommand int32 = 2

	// TypeResponseValue carries (one fragment of) a command's output.
	TypeResponseValue int32 = 0
)

// AuthFailedID is the reserved correlation ID the server uses on a
// TypeAuthResponse packet to signal rejected credentials. The tracker never
// hands it out.
const AuthFailedID int32 = -1

const (
	// packetOverhead is the byte count the size field covers beyond the body:
	// id(4) + type(4) + body terminator + trailing empty-string terminator.
	packetOverhead = 10

	// DefaultMaxPacketSize mirrors the server-side limit on encoded packets.
	DefaultMaxPacketSize = 4096
)

// Packet is one console protocol message, client request or server response.
// The leading size field is derived on encode and not stored.
type Packet struct {
	ID   int32
	Type int32
	Body []byte
}

// Encode serializes p including the leading size field. All integers are
// little-endian. The body is followed by two zero bytes: its own terminator
// and the terminator of the mandatory trailing empty string.
func Encode(p Packet, maxPacketSize int32) ([]byte, error) {
	size := int32(len(p.Body) + packetOverhead)
	if size > maxPacketSize {
		return nil, fmt.Errorf("%w: %d byte body exceeds %d byte packet limit", ErrPacketTooLarge, len(p.Body), maxPacketSize)
	}
	buf := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Type))
	copy(buf[12:], p.Body)
	return buf, nil
}

// Decode parses the bytes that follow the size field of one packet: id, type,
// body, and the two terminating zero bytes.
func Decode(payload []byte) (Packet, error) {
	if len(payload) < packetOverhead {
		return Packet{}, fmt.Errorf("%w: %d byte payload, need at least %d", ErrMalformedPacket, len(payload), packetOverhead)
	}
	if payload[len(payload)-2] != 0 || payload[len(payload)-1] != 0 {
		return Packet{}, fmt.Errorf("%w: missing terminators", ErrMalformedPacket)
	}
	p := Packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: int32(binary.LittleEndian.Uint32(payload[4:8])),
	}
	switch p.Type {
	case TypeAuth, TypeExecCommand, TypeResponseValue:
	default:
		return Packet{}, fmt.Errorf("%w: unknown packet type %d", ErrMalformedPacket, p.Type)
	}
	if body := payload[8 : len(payload)-2]; len(body) > 0 {
		p.Body = append([]byte(nil), body...)
	}
	return p, nil
}

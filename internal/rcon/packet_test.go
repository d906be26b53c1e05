package rcon

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rconduit/rconduit/internal/testutil/testlog"
)

func TestEncodeWireLayout(t *testing.T) {
	testlog.Start(t)
	got, err := Encode(Packet{ID: 7, Type: TypeAuth, Body: []byte("hunter2")}, DefaultMaxPacketSize)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{
		17, 0, 0, 0, // size = 7 body + 10 overhead
		7, 0, 0, 0, // id
		3, 0, 0, 0, // type
		'h', 'u', 'n', 't', 'e', 'r', '2',
		0, 0, // body terminator + trailing empty string
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("wire layout mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	packets := []Packet{
		{ID: 1, Type: TypeAuth, Body: []byte("password")},
		{ID: 42, Type: TypeExecCommand, Body: []byte("list players")},
		{ID: 42, Type: TypeExecCommand},
		{ID: -1, Type: TypeAuthResponse},
		{ID: 2147483647, Type: TypeResponseValue, Body: []byte("output")},
	}
	for _, in := range packets {
		encoded, err := Encode(in, DefaultMaxPacketSize)
		if err != nil {
			t.Fatalf("encode %+v: %v", in, err)
		}
		out, err := Decode(encoded[4:])
		if err != nil {
			t.Fatalf("decode %+v: %v", in, err)
		}
		if out.ID != in.ID || out.Type != in.Type || !bytes.Equal(out.Body, in.Body) {
			t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
		}
	}
}

func TestEncodeRejectsOversizedBody(t *testing.T) {
	testlog.Start(t)
	body := bytes.Repeat([]byte{'x'}, DefaultMaxPacketSize)
	_, err := Encode(Packet{ID: 1, Type: TypeExecCommand, Body: body}, DefaultMaxPacketSize)
	if !errors.Is(err, ErrPacketTooLarge) {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	testlog.Start(t)
	_, err := Decode([]byte{1, 2, 3})
	if !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestDecodeRejectsBadTerminators(t *testing.T) {
	testlog.Start(t)
	encoded, err := Encode(Packet{ID: 5, Type: TypeResponseValue, Body: []byte("ok")}, DefaultMaxPacketSize)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload := encoded[4:]
	payload[len(payload)-1] = 0x7f
	if _, err := Decode(payload); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	testlog.Start(t)
	encoded, err := Encode(Packet{ID: 5, Type: TypeResponseValue}, DefaultMaxPacketSize)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload := encoded[4:]
	payload[4] = 9 // type field
	if _, err := Decode(payload); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

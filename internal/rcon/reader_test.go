package rcon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/rconduit/rconduit/internal/testutil/testlog"
)

func testFrames(t *testing.T) ([]Packet, []byte) {
	t.Helper()
	packets := []Packet{
		{ID: 1, Type: TypeAuth, Body: []byte("secret")},
		{ID: 2, Type: TypeExecCommand, Body: []byte("status")},
		{ID: 2, Type: TypeResponseValue, Body: []byte("players: 3")},
		{ID: 3, Type: TypeResponseValue},
	}
	var stream bytes.Buffer
	for _, p := range packets {
		encoded, err := Encode(p, DefaultMaxPacketSize)
		if err != nil {
			t.Fatalf("encode %+v: %v", p, err)
		}
		stream.Write(encoded)
	}
	return packets, stream.Bytes()
}

func drain(t *testing.T, r *FrameReader) []Packet {
	t.Helper()
	var out []Packet
	for {
		p, ok, err := r.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

func TestFrameReaderSingleChunk(t *testing.T) {
	testlog.Start(t)
	want, stream := testFrames(t)
	r := NewFrameReader(DefaultMaxPacketSize)
	r.Feed(stream)
	got := drain(t, r)
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Type != want[i].Type || !bytes.Equal(got[i].Body, want[i].Body) {
			t.Fatalf("frame %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
	if r.Buffered() != 0 {
		t.Fatalf("expected empty buffer, %d bytes left", r.Buffered())
	}
}

func TestFrameReaderByteAtATime(t *testing.T) {
	testlog.Start(t)
	want, stream := testFrames(t)
	r := NewFrameReader(DefaultMaxPacketSize)
	var got []Packet
	for _, b := range stream {
		r.Feed([]byte{b})
		got = append(got, drain(t, r)...)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !bytes.Equal(got[i].Body, want[i].Body) {
			t.Fatalf("frame %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestFrameReaderArbitraryChunkBoundaries(t *testing.T) {
	testlog.Start(t)
	want, stream := testFrames(t)
	for _, chunk := range []int{2, 3, 5, 7, 11, 13} {
		t.Run(fmt.Sprintf("chunk_%d", chunk), func(t *testing.T) {
			r := NewFrameReader(DefaultMaxPacketSize)
			var got []Packet
			for start := 0; start < len(stream); start += chunk {
				end := min(start+chunk, len(stream))
				r.Feed(stream[start:end])
				got = append(got, drain(t, r)...)
			}
			if len(got) != len(want) {
				t.Fatalf("got %d frames, want %d", len(got), len(want))
			}
		})
	}
}

func TestFrameReaderRejectsUndersizedDeclaration(t *testing.T) {
	testlog.Start(t)
	r := NewFrameReader(DefaultMaxPacketSize)
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(4))
	r.Feed(header[:])
	if _, _, err := r.Next(); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestFrameReaderRejectsNegativeDeclaration(t *testing.T) {
	testlog.Start(t)
	r := NewFrameReader(DefaultMaxPacketSize)
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(0xFFFFFFF0)) // -16 as int32
	r.Feed(header[:])
	if _, _, err := r.Next(); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestFrameReaderRejectsOversizedDeclaration(t *testing.T) {
	testlog.Start(t)
	r := NewFrameReader(64)
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(65))
	r.Feed(header[:])
	if _, _, err := r.Next(); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

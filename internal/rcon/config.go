package rcon

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config tunes one connection's protocol engine.
type Config struct {
	// MaxPacketSize bounds both encoded outbound packets and declared
	// inbound sizes, mirroring the server-side limit.
	MaxPacketSize int32

	// ReadBufferSize is the chunk size for transport reads.
	ReadBufferSize int

	// HandshakeTimeout bounds the auth request/verdict round trip.
	HandshakeTimeout time.Duration

	// ResponseTimeout bounds a command from write to sentinel arrival.
	ResponseTimeout time.Duration

	// AllowMissingAuthEcho accepts servers that skip the empty ResponseValue
	// normally emitted before the auth verdict. Off by default; conformant
	// servers always send it.
	AllowMissingAuthEcho bool

	// StartID seeds correlation ID allocation.
	StartID int32

	Logger zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxPacketSize:    DefaultMaxPacketSize,
		ReadBufferSize:   4096,
		HandshakeTimeout: 5 * time.Second,
		ResponseTimeout:  15 * time.Second,
		StartID:          1,
		Logger:           log.Logger,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.MaxPacketSize <= 0 {
		c.MaxPacketSize = def.MaxPacketSize
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = def.ResponseTimeout
	}
	if c.StartID <= 0 {
		c.StartID = def.StartID
	}
	return c
}

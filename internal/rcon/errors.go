package rcon

import "errors"

var (
	ErrMalformedPacket   = errors.New("rcon: malformed packet")
	ErrPacketTooLarge    = errors.New("rcon: packet too large")
	ErrAuthFailed        = errors.New("rcon: authentication failed")
	ErrProtocolViolation = errors.New("rcon: protocol violation")
	ErrResponseTimeout   = errors.New("rcon: response timeout")
	ErrConnClosed        = errors.New("rcon: connection closed")
	ErrNotReady          = errors.New("rcon: connection not ready")
	ErrInvalidState      = errors.New("rcon: invalid connection state")
)

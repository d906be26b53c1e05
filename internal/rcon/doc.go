// Package rcon owns the remote-console protocol engine.
//
// Ownership boundary:
// - packet codec (wire encode/decode)
// - incremental frame extraction from a byte stream
// - request/response correlation and fragment reassembly
// - connection lifecycle state machine
//
// The package never dials, never reconnects, and never touches TLS; it is
// handed an established net.Conn and owns it until Close.
package rcon

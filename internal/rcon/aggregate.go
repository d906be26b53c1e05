package rcon

import "bytes"

// Aggregator reassembles one logical command response from the fragments the
// server may split it into. Fragments are appended in arrival order; the
// protocol gives no end-of-fragments marker, so completion is detected by the
// connection when the sentinel command's reply arrives.
type Aggregator struct {
	buf       bytes.Buffer
	fragments int
}

// Append accumulates one fragment body. Trailing NUL padding is stripped per
// fragment; fragment boundaries are invisible in the assembled text, so no
// separator is inserted.
func (a *Aggregator) Append(body []byte) {
	a.buf.Write(bytes.TrimRight(body, "\x00"))
	a.fragments++
}

// Fragments reports how many fragments have been accumulated.
func (a *Aggregator) Fragments() int {
	return a.fragments
}

// Assemble returns the concatenated response text.
func (a *Aggregator) Assemble() string {
	return a.buf.String()
}

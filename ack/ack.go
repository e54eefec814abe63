// Package ack implements the single-exchange acknowledgment protocol:
// a client sends at most one short request, the server answers with a
// fixed acknowledgment and closes the connection. The reply never echoes
// the request, it only confirms receipt.
package ack

// Ack is the fixed reply sent for every request, 18 bytes, no trailing
// newline. Peers match these exact bytes.
const Ack = "I got your message"

// MaxRequestSize caps how many request bytes a single exchange reads.
// Whatever the first read returns within this cap forms the request,
// an empty request is valid.
const MaxRequestSize = 255

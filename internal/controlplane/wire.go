package controlplane

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// CallShape distinguishes the four RPC shapes from spec.md §4.8.
type CallShape int

const (
	UnaryNoResponse CallShape = iota
	Unary
	ServerStreaming
	BidiStreaming
)

// Envelope is one frame on the wire: a service/method name, a call shape,
// a request id correlating replies to calls (and, for streams, successive
// messages), and an opaque gob-encoded payload.
//
// The teacher's internal/network/protocol.go frames protobuf messages
// behind a 4-byte big-endian length prefix; real protoc-gen-go output
// can't be hand-authored without running protoc (disallowed here), so this
// keeps that framing shape and substitutes encoding/gob for the payload
// codec. See DESIGN.md's "Dropped teacher dependencies."
type Envelope struct {
	Service   string
	Method    string
	Shape     CallShape
	RequestId uint64
	// End, when true, marks the final frame of a stream in either
	// direction (server half-closing server-streaming, either peer
	// half-closing bidi-streaming).
	End     bool
	Payload []byte
}

// EncodePayload gob-encodes v into an Envelope's Payload field.
func EncodePayload(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePayload gob-decodes an Envelope's Payload field into v.
func DecodePayload(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// WriteEnvelope writes one length-prefixed, gob-encoded Envelope, mirroring
// the teacher's readMessage/writeMessage big-endian-length-prefix shape
// (internal/ipc/socket.go) one level up (framing the Envelope itself,
// rather than the inner RPC payload, which Envelope.Payload already
// carries pre-encoded).
func WriteEnvelope(w io.Writer, env Envelope) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	length := uint32(buf.Len())
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write envelope length: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write envelope body: %w", err)
	}
	return nil
}

// ReadEnvelope reads one length-prefixed, gob-encoded Envelope.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return Envelope{}, err // EOF propagates untouched for callers to detect disconnect
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return Envelope{}, fmt.Errorf("read envelope body: %w", err)
	}
	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

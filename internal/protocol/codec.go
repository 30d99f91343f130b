package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedFrame is returned by Decode when the input is not exactly one
// frame long. Malformed frames are dropped before they reach the inbound
// queue, so the application never observes this error directly.
var ErrMalformedFrame = errors.New("malformed frame")

// Encode serializes a Packet into a 32-byte frame for datagram transmission.
func Encode(pkt *Packet) []byte {
	buf := make([]byte, FrameSize)
	binary.BigEndian.PutUint64(buf[0:FieldSize], math.Float64bits(float64(pkt.Kind)))
	for i, v := range pkt.Data {
		off := (i + 1) * FieldSize
		binary.BigEndian.PutUint64(buf[off:off+FieldSize], math.Float64bits(v))
	}
	return buf
}

// Decode deserializes a frame into a Packet. It fails only on a length
// mismatch; unknown kind codes are passed through so that confirmation
// matching can compare them by exact equality.
func Decode(data []byte) (*Packet, error) {
	if len(data) != FrameSize {
		return nil, fmt.Errorf("%w: %d bytes (want %d)", ErrMalformedFrame, len(data), FrameSize)
	}
	pkt := &Packet{
		Kind: Kind(math.Float64frombits(binary.BigEndian.Uint64(data[0:FieldSize]))),
	}
	for i := range pkt.Data {
		off := (i + 1) * FieldSize
		pkt.Data[i] = math.Float64frombits(binary.BigEndian.Uint64(data[off : off+FieldSize]))
	}
	return pkt, nil
}

// Package codec implements the incremental Modbus PDU decoder/encoder, the
// MBAP header codec, CRC-16/Modbus, and the SlaveCodec that composes them
// per transport mode and flow type.
package codec

import "fmt"

// ErrorKind classifies what went wrong while decoding or encoding a frame.
type ErrorKind int

const (
	// InvalidData marks a structural violation detectable from bytes
	// already consumed (bad nbytes field, nobjs out of range, a coil value
	// outside {0x0000, 0xFF00}, an unsupported mei_type).
	InvalidData ErrorKind = iota
	// InvalidVersion marks an MBAP header with protocol_id != 0.
	InvalidVersion
	// InvalidCrc marks an RTU frame whose CRC does not verify.
	InvalidCrc
	// BufferTooSmall marks an encoder target without enough room. Should be
	// unreachable because encoders size their target first.
	BufferTooSmall
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidData:
		return "InvalidData"
	case InvalidVersion:
		return "InvalidVersion"
	case InvalidCrc:
		return "InvalidCrc"
	case BufferTooSmall:
		return "BufferTooSmall"
	default:
		return "Unknown"
	}
}

// Error is the codec-level error type. Codec errors abort the current frame;
// the transport decides how to recover (clear buffer, drop datagram, close
// session).
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec: %s: %s", e.Kind, e.Msg)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

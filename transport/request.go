// Package transport implements the three session types a Modbus slave
// listens on: TCP, UDP, and RTU serial. Each owns a codec.SlaveCodec for its
// wire envelope and emits decoded frames as Request values on a shared
// channel; the collaborator draining that channel is out of this package's
// scope — it only has to answer on RespCh.
package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/vireo-automation/modbusd/frame"
	"github.com/vireo-automation/modbusd/logging"
)

// Request is one decoded frame awaiting a response. ID correlates the
// eventual response back to the originating session regardless of which
// transport produced it; the session that minted the Request is the sole
// receiver on the other end of RespCh.
type Request struct {
	ID     uuid.UUID
	Frame  frame.RequestFrame
	RespCh chan<- frame.ResponseFrame
}

// Handler processes one Request. The collaborator that implements this is
// out of scope for this module; cmd/modbusd wires a small in-memory demo.
type Handler func(ctx context.Context, req Request)

// traceWire hexdumps raw wire bytes when the logger supports it and is at
// trace level.
func traceWire(ctx context.Context, logger logging.LoggerInterface, data []byte) {
	if hd, ok := logger.(logging.HexdumpInterface); ok {
		hd.Hexdump(ctx, data)
	}
}

package codec

import (
	"bytes"

	"github.com/vireo-automation/modbusd/databuf"
	"github.com/vireo-automation/modbusd/frame"
)

// Mode selects the on-wire envelope a SlaveCodec decodes and encodes.
type Mode int

const (
	// ModeRtu frames requests as slave id + PDU + CRC-16.
	ModeRtu Mode = iota
	// ModeNet frames requests with a 7-byte MBAP header, used by both TCP
	// and UDP transports.
	ModeNet
)

// FlowType describes how the transport delivers bytes to the codec, which
// determines what happens to a partial frame when more bytes aren't coming.
type FlowType int

const (
	// Stream transports (TCP, RTU serial) eventually deliver the rest of a
	// partial frame, so a short read leaves the buffer untouched.
	Stream FlowType = iota
	// Packet transports (UDP) deliver one complete datagram per read, so a
	// short read can never be completed and the buffer is discarded.
	Packet
)

// SlaveCodec decodes request frames from and encodes response frames to one
// of the two Modbus wire envelopes. A single codec instance is bound to one
// Mode and FlowType for the lifetime of a session.
type SlaveCodec struct {
	Mode     Mode
	FlowType FlowType
}

// Decode attempts to pull one complete request frame from the head of buf.
//
//	(frame, nil)  — a complete frame was decoded and consumed from buf
//	(nil, nil)    — not enough bytes yet; buf is left alone on a Stream
//	                codec, or discarded on a Packet codec since a partial
//	                datagram can never be completed
//	(nil, err)    — a structural violation; buf is discarded entirely,
//	                since resuming from the middle of a bad frame isn't
//	                meaningful on either envelope
func (c *SlaveCodec) Decode(buf *bytes.Buffer) (*frame.RequestFrame, error) {
	fr, consumed, err := c.tryDecode(buf.Bytes())
	switch {
	case err != nil:
		buf.Reset()
		return nil, err
	case fr != nil:
		buf.Next(consumed)
		return fr, nil
	default:
		if c.FlowType == Packet {
			buf.Reset()
		}
		return nil, nil
	}
}

func (c *SlaveCodec) tryDecode(data []byte) (*frame.RequestFrame, int, error) {
	ctx := databuf.NewReadCtx(data)

	if c.Mode == ModeRtu {
		slave, ok := ctx.ReadU8()
		if !ok {
			return nil, 0, nil
		}
		pdu, ok, err := DecodePDU(ctx)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, nil
		}
		if !ctx.IsEnough(2) {
			return nil, 0, nil
		}
		ctx.ReadBytes(2)
		if !VerifyCRC(ctx.Consumed()) {
			return nil, 0, newError(InvalidCrc, "rtu frame failed crc check")
		}
		return &frame.RequestFrame{Slave: slave, PDU: pdu}, ctx.Processed(), nil
	}

	header, ok, err := DecodeMBAP(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, nil
	}
	pdu, ok, err := DecodePDU(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, nil
	}
	return &frame.RequestFrame{ID: header.TransactionID, Slave: header.UnitID, PDU: pdu}, ctx.Processed(), nil
}

// Encode renders fr onto the wire envelope the codec is bound to. RTU frames
// are sized pdu.len+3 (slave byte + 2-byte CRC) and Net frames pdu.len+7
// (the 7-byte MBAP header, unit id included, whose length field holds
// pdu.len+1).
func (c *SlaveCodec) Encode(fr frame.ResponseFrame) ([]byte, error) {
	pduLen, err := encodedPDULen(fr.PDU)
	if err != nil {
		return nil, err
	}

	if c.Mode == ModeRtu {
		w := databuf.NewWriteCtx(pduLen + 3)
		w.WriteU8(fr.Slave)
		if err := EncodeResponsePDU(w, fr.PDU); err != nil {
			return nil, err
		}
		return AppendCRC(w.Bytes()), nil
	}

	w := databuf.NewWriteCtx(pduLen + 7)
	EncodeMBAP(w, fr.ID, fr.Slave, pduLen)
	if err := EncodeResponsePDU(w, fr.PDU); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

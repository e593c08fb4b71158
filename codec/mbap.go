package codec

import (
	"github.com/vireo-automation/modbusd/databuf"
	"github.com/vireo-automation/modbusd/frame"
)

// MBAPHeader is the 7-byte envelope used on TCP and UDP.
// Ref: Modbus_Messaging_Implementation_Guide_V1_0b.pdf, Section 3.1.3
type MBAPHeader struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        byte
}

// DecodeMBAP reads a header from ctx. Returns (header, true, nil) on
// success, (zero, false, nil) if fewer than 7 bytes remain, or a codec
// error if proto/length are out of range.
func DecodeMBAP(ctx *databuf.ReadCtx) (MBAPHeader, bool, error) {
	if !ctx.IsEnough(7) {
		return MBAPHeader{}, false, nil
	}
	txID, _ := ctx.ReadU16BE()
	proto, _ := ctx.ReadU16BE()
	length, _ := ctx.ReadU16BE()
	unit, _ := ctx.ReadU8()

	if proto != 0 {
		return MBAPHeader{}, false, newError(InvalidVersion, "protocol_id %d != 0", proto)
	}
	if length < 2 || int(length) > frame.MaxDataSize {
		return MBAPHeader{}, false, newError(InvalidData, "length %d out of [2, %d]", length, frame.MaxDataSize)
	}
	return MBAPHeader{TransactionID: txID, ProtocolID: proto, Length: length, UnitID: unit}, true, nil
}

// EncodeMBAP writes a 7-byte header for the given transaction/unit id and
// pdu length. Length is pduLen + 1 (the unit id byte).
func EncodeMBAP(w *databuf.WriteCtx, transactionID uint16, unitID byte, pduLen int) {
	w.WriteU16BE(transactionID)
	w.WriteU16BE(0)
	w.WriteU16BE(uint16(pduLen + 1))
	w.WriteU8(unitID)
}

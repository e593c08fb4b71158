package codec

import (
	"github.com/vireo-automation/modbusd/databuf"
	"github.com/vireo-automation/modbusd/frame"
)

// DecodePDU reads one function byte from ctx and dispatches to the
// per-function decoder. The three-way return mirrors a Result<Option<T>>:
//
//	(pdu, true, nil)  — a complete PDU was decoded
//	(nil, false, nil) — not enough bytes yet; try again once more arrive
//	(nil, false, err) — a structural violation was detected
//
// On the (nil, false, nil) path the caller must not have advanced its own
// record of how many bytes were consumed — ctx is always a throwaway view
// over the caller's buffer, so a short read simply discards ctx and leaves
// the real buffer untouched.
func DecodePDU(ctx *databuf.ReadCtx) (frame.RequestPdu, bool, error) {
	fn, ok := ctx.ReadU8()
	if !ok {
		return nil, false, nil
	}

	switch frame.FunctionCode(fn) {
	case frame.FuncReadCoils:
		return decodeReadObjects(ctx, frame.MaxNCoils, frame.NewReadCoilsRequest)
	case frame.FuncReadDiscreteInputs:
		return decodeReadObjects(ctx, frame.MaxNCoils, frame.NewReadDiscreteInputsRequest)
	case frame.FuncReadHoldingRegisters:
		return decodeReadObjects(ctx, frame.MaxNRegs, frame.NewReadHoldingRegistersRequest)
	case frame.FuncReadInputRegisters:
		return decodeReadObjects(ctx, frame.MaxNRegs, frame.NewReadInputRegistersRequest)
	case frame.FuncWriteSingleCoil:
		return decodeWriteSingleCoil(ctx)
	case frame.FuncWriteSingleRegister:
		return decodeWriteSingleRegister(ctx)
	case frame.FuncWriteMultipleCoils:
		return decodeWriteMultipleCoils(ctx)
	case frame.FuncWriteMultipleRegisters:
		return decodeWriteMultipleRegisters(ctx)
	case frame.FuncEncapsulatedInterfaceTransport:
		return decodeMEI(ctx)
	default:
		return decodeRaw(ctx, fn)
	}
}

func decodeReadObjects[T frame.RequestPdu](
	ctx *databuf.ReadCtx,
	max int,
	construct func(address, nobjs uint16) (T, error),
) (frame.RequestPdu, bool, error) {
	address, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	nobjs, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	pdu, err := construct(address, nobjs)
	if err != nil {
		return nil, false, newError(InvalidData, "object count %d out of range (max %d)", nobjs, max)
	}
	return pdu, true, nil
}

func decodeWriteSingleCoil(ctx *databuf.ReadCtx) (frame.RequestPdu, bool, error) {
	address, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	raw, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	switch raw {
	case frame.CoilOn:
		return frame.NewWriteSingleCoilRequest(address, true), true, nil
	case frame.CoilOff:
		return frame.NewWriteSingleCoilRequest(address, false), true, nil
	default:
		return nil, false, newError(InvalidData, "coil value 0x%04X not in {0x0000, 0xFF00}", raw)
	}
}

func decodeWriteSingleRegister(ctx *databuf.ReadCtx) (frame.RequestPdu, bool, error) {
	address, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	value, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	return frame.NewWriteSingleRegisterRequest(address, value), true, nil
}

func decodeWriteMultipleCoils(ctx *databuf.ReadCtx) (frame.RequestPdu, bool, error) {
	address, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	nobjs, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	nbytes, ok := ctx.ReadU8()
	if !ok {
		return nil, false, nil
	}
	want := (int(nobjs) + 7) / 8
	if int(nobjs) < 1 || int(nobjs) > frame.MaxNCoils || int(nbytes) != want {
		return nil, false, newError(InvalidData, "write multiple coils: nobjs=%d nbytes=%d (want %d)", nobjs, nbytes, want)
	}
	data, ok := ctx.ReadBytes(int(nbytes))
	if !ok {
		return nil, false, nil
	}
	pdu, err := frame.NewWriteMultipleCoilsRequest(address, nobjs, data)
	if err != nil {
		return nil, false, newError(InvalidData, "write multiple coils: %v", err)
	}
	return pdu, true, nil
}

func decodeWriteMultipleRegisters(ctx *databuf.ReadCtx) (frame.RequestPdu, bool, error) {
	address, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	nobjs, ok := ctx.ReadU16BE()
	if !ok {
		return nil, false, nil
	}
	nbytes, ok := ctx.ReadU8()
	if !ok {
		return nil, false, nil
	}
	want := 2 * int(nobjs)
	if int(nobjs) < 1 || int(nobjs) > frame.MaxNRegs || int(nbytes) != want {
		return nil, false, newError(InvalidData, "write multiple registers: nobjs=%d nbytes=%d (want %d)", nobjs, nbytes, want)
	}
	if !ctx.IsEnough(int(nbytes)) {
		return nil, false, nil
	}
	// Materialize as native-pair-encoded registers, matching the data
	// buffer's internal storage convention.
	prod := databuf.CursorBERegisters{Cursor: ctx, N: int(nobjs)}
	buf, n := databuf.Registers(prod)
	if n != int(nobjs) {
		return nil, false, nil
	}
	pdu, err := frame.NewWriteMultipleRegistersRequest(address, nobjs, buf.Get())
	if err != nil {
		return nil, false, newError(InvalidData, "write multiple registers: %v", err)
	}
	return pdu, true, nil
}

func decodeMEI(ctx *databuf.ReadCtx) (frame.RequestPdu, bool, error) {
	meiType, ok := ctx.ReadU8()
	if !ok {
		return nil, false, nil
	}
	switch meiType {
	case frame.MEIReadDeviceIdentification:
		b, ok := ctx.ReadBytes(1)
		if !ok {
			return nil, false, nil
		}
		pdu, err := frame.NewEncapsulatedInterfaceTransportRequest(meiType, b)
		if err != nil {
			return nil, false, newError(InvalidData, "mei: %v", err)
		}
		return pdu, true, nil
	case frame.MEICANOpenGeneralReference:
		if !ctx.IsEnough(1) {
			return nil, false, nil
		}
		rest, _ := ctx.ReadBytes(ctx.Remaining())
		pdu, err := frame.NewEncapsulatedInterfaceTransportRequest(meiType, rest)
		if err != nil {
			return nil, false, newError(InvalidData, "mei: %v", err)
		}
		return pdu, true, nil
	default:
		return nil, false, newError(InvalidData, "unsupported mei_type 0x%02X", meiType)
	}
}

func decodeRaw(ctx *databuf.ReadCtx, fn byte) (frame.RequestPdu, bool, error) {
	n := ctx.Remaining()
	if n > frame.MaxDataSize {
		n = frame.MaxDataSize
	}
	data, _ := ctx.ReadBytes(n)
	return frame.NewRawRequest(fn, data), true, nil
}

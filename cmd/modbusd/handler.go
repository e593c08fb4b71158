package main

import (
	"context"

	"github.com/vireo-automation/modbusd/frame"
	"github.com/vireo-automation/modbusd/logging"
	"github.com/vireo-automation/modbusd/transport"
)

// newDemoHandler adapts a memoryStore into a transport.Handler: it decides
// what every accepted request function code means against the store and
// replies on the channel the transport session is blocked waiting on.
// Unsupported function codes (anything decoded as frame.RawRequest) answer
// with Exception(IllegalFunction). Addresses are not range-checked: every
// address maps into the store, and address+offset wraps around past 0xFFFF.
func newDemoHandler(store *memoryStore, logger logging.LoggerInterface) transport.Handler {
	return func(ctx context.Context, req transport.Request) {
		resp := dispatch(store, req.Frame.PDU)
		select {
		case req.RespCh <- frame.ResponseFrame{ID: req.Frame.ID, Slave: req.Frame.Slave, PDU: resp}:
		case <-ctx.Done():
		}
	}
}

func dispatch(store *memoryStore, pdu frame.RequestPdu) frame.ResponsePdu {
	switch p := pdu.(type) {
	case frame.ReadCoilsRequest:
		values := store.readCoils(p.Address, p.NObjs)
		resp, err := frame.NewReadCoilsResponse(p.NObjs, packBits(values))
		if err != nil {
			return frame.NewExceptionResponse(p.FunctionCode(), frame.SlaveDeviceFailure)
		}
		return resp

	case frame.ReadDiscreteInputsRequest:
		values := store.readDiscreteInputs(p.Address, p.NObjs)
		resp, err := frame.NewReadDiscreteInputsResponse(p.NObjs, packBits(values))
		if err != nil {
			return frame.NewExceptionResponse(p.FunctionCode(), frame.SlaveDeviceFailure)
		}
		return resp

	case frame.ReadHoldingRegistersRequest:
		values := store.readHoldingRegisters(p.Address, p.NObjs)
		resp, err := frame.NewReadHoldingRegistersResponse(p.NObjs, packRegisters(values))
		if err != nil {
			return frame.NewExceptionResponse(p.FunctionCode(), frame.SlaveDeviceFailure)
		}
		return resp

	case frame.ReadInputRegistersRequest:
		values := store.readInputRegisters(p.Address, p.NObjs)
		resp, err := frame.NewReadInputRegistersResponse(p.NObjs, packRegisters(values))
		if err != nil {
			return frame.NewExceptionResponse(p.FunctionCode(), frame.SlaveDeviceFailure)
		}
		return resp

	case frame.WriteSingleCoilRequest:
		store.writeCoil(p.Address, p.Value)
		return frame.NewWriteSingleCoilResponse(p.Address, p.Value)

	case frame.WriteSingleRegisterRequest:
		store.writeRegister(p.Address, p.Value)
		return frame.NewWriteSingleRegisterResponse(p.Address, p.Value)

	case frame.WriteMultipleCoilsRequest:
		store.writeMultipleCoils(p.Address, unpackBits(p.Data, p.NObjs))
		return frame.NewWriteMultipleCoilsResponse(p.Address, p.NObjs)

	case frame.WriteMultipleRegistersRequest:
		store.writeMultipleRegisters(p.Address, unpackRegisters(p.Data))
		return frame.NewWriteMultipleRegistersResponse(p.Address, p.NObjs)

	case frame.EncapsulatedInterfaceTransportRequest:
		// device identification is out of scope for the reference store; echo
		// back an empty object list under the requested MEI type.
		return frame.NewEncapsulatedInterfaceTransportResponse(p.MEIType, []byte{0x00})

	default:
		return frame.NewExceptionResponse(pdu.FunctionCode(), frame.IllegalFunction)
	}
}

// packBits packs booleans LSB-first into bytes, the wire layout for coil and
// discrete input data.
func packBits(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func unpackBits(data []byte, nobjs uint16) []bool {
	out := make([]bool, nobjs)
	for i := range out {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

// packRegisters lays out register values as native pairs (low byte, high
// byte), the in-memory convention the wire encoder converts to big-endian.
func packRegisters(values []uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = uint16(data[2*i]) | uint16(data[2*i+1])<<8
	}
	return out
}

package codec

import (
	"fmt"

	"github.com/vireo-automation/modbusd/databuf"
	"github.com/vireo-automation/modbusd/frame"
)

// EncodeResponsePDU writes the function byte and canonical body for pdu
// into w. Register payloads are converted from the buffer's native pair
// encoding to big-endian wire encoding.
func EncodeResponsePDU(w *databuf.WriteCtx, pdu frame.ResponsePdu) error {
	switch p := pdu.(type) {
	case frame.ReadCoilsResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU8(byte(len(p.Data)))
		w.WriteBytes(p.Data)
	case frame.ReadDiscreteInputsResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU8(byte(len(p.Data)))
		w.WriteBytes(p.Data)
	case frame.ReadHoldingRegistersResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU8(byte(len(p.Data)))
		w.WriteDataAsU16BEPairs(p.Data)
	case frame.ReadInputRegistersResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU8(byte(len(p.Data)))
		w.WriteDataAsU16BEPairs(p.Data)
	case frame.WriteSingleCoilResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU16BE(p.Address)
		if p.Value {
			w.WriteU16BE(frame.CoilOn)
		} else {
			w.WriteU16BE(frame.CoilOff)
		}
	case frame.WriteSingleRegisterResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU16BE(p.Address)
		w.WriteU16BE(p.Value)
	case frame.WriteMultipleCoilsResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU16BE(p.Address)
		w.WriteU16BE(p.NObjs)
	case frame.WriteMultipleRegistersResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU16BE(p.Address)
		w.WriteU16BE(p.NObjs)
	case frame.EncapsulatedInterfaceTransportResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU8(p.MEIType)
		w.WriteBytes(p.Data)
	case frame.ExceptionResponse:
		w.WriteU8(byte(p.FunctionCode()))
		w.WriteU8(byte(p.Code))
	default:
		// Raw is a request-only variant with no response-side counterpart;
		// reaching here with an unrecognized type is a programmer error, not
		// a wire-level condition.
		return fmt.Errorf("codec: unknown response pdu type %T", pdu)
	}
	return nil
}

// encodedPDULen returns the wire length of pdu's body, function byte
// included, without actually encoding it — used to size MBAP/CRC framing
// ahead of encoding.
func encodedPDULen(pdu frame.ResponsePdu) (int, error) {
	switch p := pdu.(type) {
	case frame.ReadCoilsResponse:
		return 2 + len(p.Data), nil
	case frame.ReadDiscreteInputsResponse:
		return 2 + len(p.Data), nil
	case frame.ReadHoldingRegistersResponse:
		return 2 + len(p.Data), nil
	case frame.ReadInputRegistersResponse:
		return 2 + len(p.Data), nil
	case frame.WriteSingleCoilResponse:
		return 5, nil
	case frame.WriteSingleRegisterResponse:
		return 5, nil
	case frame.WriteMultipleCoilsResponse:
		return 5, nil
	case frame.WriteMultipleRegistersResponse:
		return 5, nil
	case frame.EncapsulatedInterfaceTransportResponse:
		return 2 + len(p.Data), nil
	case frame.ExceptionResponse:
		return 2, nil
	default:
		return 0, fmt.Errorf("codec: unknown response pdu type %T", pdu)
	}
}

package frame

// ResponsePdu is the sealed set of response PDU variants. There is no Raw
// response variant: an unknown function code is never echoed back as-is,
// the handler must answer with an Exception.
type ResponsePdu interface {
	isResponsePdu()
	FunctionCode() FunctionCode
}

// ReadCoilsResponse — function 0x01. Data holds packed LSB-first bits.
type ReadCoilsResponse struct {
	NObjs uint16
	Data  []byte
}

func (ReadCoilsResponse) isResponsePdu()            {}
func (ReadCoilsResponse) FunctionCode() FunctionCode { return FuncReadCoils }

func NewReadCoilsResponse(nobjs uint16, data []byte) (ReadCoilsResponse, error) {
	if len(data) != (int(nobjs)+7)/8 {
		return ReadCoilsResponse{}, ErrInvalidArgument
	}
	return ReadCoilsResponse{NObjs: nobjs, Data: data}, nil
}

// ReadDiscreteInputsResponse — function 0x02.
type ReadDiscreteInputsResponse struct {
	NObjs uint16
	Data  []byte
}

func (ReadDiscreteInputsResponse) isResponsePdu()            {}
func (ReadDiscreteInputsResponse) FunctionCode() FunctionCode { return FuncReadDiscreteInputs }

func NewReadDiscreteInputsResponse(nobjs uint16, data []byte) (ReadDiscreteInputsResponse, error) {
	if len(data) != (int(nobjs)+7)/8 {
		return ReadDiscreteInputsResponse{}, ErrInvalidArgument
	}
	return ReadDiscreteInputsResponse{NObjs: nobjs, Data: data}, nil
}

// ReadHoldingRegistersResponse — function 0x03. Data holds NObjs
// native-pair-encoded registers (converted to big-endian on the wire by the
// encoder).
type ReadHoldingRegistersResponse struct {
	NObjs uint16
	Data  []byte
}

func (ReadHoldingRegistersResponse) isResponsePdu()            {}
func (ReadHoldingRegistersResponse) FunctionCode() FunctionCode { return FuncReadHoldingRegisters }

func NewReadHoldingRegistersResponse(nobjs uint16, data []byte) (ReadHoldingRegistersResponse, error) {
	if len(data) != 2*int(nobjs) {
		return ReadHoldingRegistersResponse{}, ErrInvalidArgument
	}
	return ReadHoldingRegistersResponse{NObjs: nobjs, Data: data}, nil
}

// ReadInputRegistersResponse — function 0x04.
type ReadInputRegistersResponse struct {
	NObjs uint16
	Data  []byte
}

func (ReadInputRegistersResponse) isResponsePdu()            {}
func (ReadInputRegistersResponse) FunctionCode() FunctionCode { return FuncReadInputRegisters }

func NewReadInputRegistersResponse(nobjs uint16, data []byte) (ReadInputRegistersResponse, error) {
	if len(data) != 2*int(nobjs) {
		return ReadInputRegistersResponse{}, ErrInvalidArgument
	}
	return ReadInputRegistersResponse{NObjs: nobjs, Data: data}, nil
}

// WriteSingleCoilResponse — function 0x05. Echoes the request.
type WriteSingleCoilResponse struct {
	Address uint16
	Value   bool
}

func (WriteSingleCoilResponse) isResponsePdu()            {}
func (WriteSingleCoilResponse) FunctionCode() FunctionCode { return FuncWriteSingleCoil }

func NewWriteSingleCoilResponse(address uint16, value bool) WriteSingleCoilResponse {
	return WriteSingleCoilResponse{Address: address, Value: value}
}

// WriteSingleRegisterResponse — function 0x06. Echoes the request.
type WriteSingleRegisterResponse struct {
	Address uint16
	Value   uint16
}

func (WriteSingleRegisterResponse) isResponsePdu()            {}
func (WriteSingleRegisterResponse) FunctionCode() FunctionCode { return FuncWriteSingleRegister }

func NewWriteSingleRegisterResponse(address, value uint16) WriteSingleRegisterResponse {
	return WriteSingleRegisterResponse{Address: address, Value: value}
}

// WriteMultipleCoilsResponse — function 0x0F. Echoes address and count.
type WriteMultipleCoilsResponse struct {
	Address uint16
	NObjs   uint16
}

func (WriteMultipleCoilsResponse) isResponsePdu()            {}
func (WriteMultipleCoilsResponse) FunctionCode() FunctionCode { return FuncWriteMultipleCoils }

func NewWriteMultipleCoilsResponse(address, nobjs uint16) WriteMultipleCoilsResponse {
	return WriteMultipleCoilsResponse{Address: address, NObjs: nobjs}
}

// WriteMultipleRegistersResponse — function 0x10. Echoes address and count.
type WriteMultipleRegistersResponse struct {
	Address uint16
	NObjs   uint16
}

func (WriteMultipleRegistersResponse) isResponsePdu()            {}
func (WriteMultipleRegistersResponse) FunctionCode() FunctionCode { return FuncWriteMultipleRegisters }

func NewWriteMultipleRegistersResponse(address, nobjs uint16) WriteMultipleRegistersResponse {
	return WriteMultipleRegistersResponse{Address: address, NObjs: nobjs}
}

// EncapsulatedInterfaceTransportResponse — function 0x2B.
type EncapsulatedInterfaceTransportResponse struct {
	MEIType byte
	Data    []byte
}

func (EncapsulatedInterfaceTransportResponse) isResponsePdu() {}
func (EncapsulatedInterfaceTransportResponse) FunctionCode() FunctionCode {
	return FuncEncapsulatedInterfaceTransport
}

func NewEncapsulatedInterfaceTransportResponse(meiType byte, data []byte) EncapsulatedInterfaceTransportResponse {
	return EncapsulatedInterfaceTransportResponse{MEIType: meiType, Data: data}
}

// ExceptionResponse carries the function code the request arrived with;
// FunctionCode() reports it with ExceptionBit OR-ed in, the wire form.
type ExceptionResponse struct {
	Function FunctionCode
	Code     ExceptionCode
}

func (ExceptionResponse) isResponsePdu() {}
func (e ExceptionResponse) FunctionCode() FunctionCode {
	return FunctionCode(byte(e.Function) | ExceptionBit)
}

// NewExceptionResponse builds an exception for originalFunction (without
// the exception bit set — FunctionCode() sets it).
func NewExceptionResponse(originalFunction FunctionCode, code ExceptionCode) ExceptionResponse {
	return ExceptionResponse{Function: originalFunction, Code: code}
}

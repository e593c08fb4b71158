package frame

// RequestPdu is the sealed set of request PDU variants produced by the
// decoder or constructed by a test/handler. The unexported marker method
// keeps the set closed to this package.
type RequestPdu interface {
	isRequestPdu()
	FunctionCode() FunctionCode
}

func checkObjCount(n, max int) bool {
	return n >= 1 && n <= max
}

// ReadCoilsRequest — function 0x01.
type ReadCoilsRequest struct {
	Address uint16
	NObjs   uint16
}

func (ReadCoilsRequest) isRequestPdu()                 {}
func (ReadCoilsRequest) FunctionCode() FunctionCode    { return FuncReadCoils }

// NewReadCoilsRequest validates 1 <= nobjs <= MaxNCoils.
func NewReadCoilsRequest(address, nobjs uint16) (ReadCoilsRequest, error) {
	if !checkObjCount(int(nobjs), MaxNCoils) {
		return ReadCoilsRequest{}, ErrInvalidArgument
	}
	return ReadCoilsRequest{Address: address, NObjs: nobjs}, nil
}

// ReadDiscreteInputsRequest — function 0x02.
type ReadDiscreteInputsRequest struct {
	Address uint16
	NObjs   uint16
}

func (ReadDiscreteInputsRequest) isRequestPdu()              {}
func (ReadDiscreteInputsRequest) FunctionCode() FunctionCode { return FuncReadDiscreteInputs }

func NewReadDiscreteInputsRequest(address, nobjs uint16) (ReadDiscreteInputsRequest, error) {
	if !checkObjCount(int(nobjs), MaxNCoils) {
		return ReadDiscreteInputsRequest{}, ErrInvalidArgument
	}
	return ReadDiscreteInputsRequest{Address: address, NObjs: nobjs}, nil
}

// ReadHoldingRegistersRequest — function 0x03.
type ReadHoldingRegistersRequest struct {
	Address uint16
	NObjs   uint16
}

func (ReadHoldingRegistersRequest) isRequestPdu()              {}
func (ReadHoldingRegistersRequest) FunctionCode() FunctionCode { return FuncReadHoldingRegisters }

func NewReadHoldingRegistersRequest(address, nobjs uint16) (ReadHoldingRegistersRequest, error) {
	if !checkObjCount(int(nobjs), MaxNRegs) {
		return ReadHoldingRegistersRequest{}, ErrInvalidArgument
	}
	return ReadHoldingRegistersRequest{Address: address, NObjs: nobjs}, nil
}

// ReadInputRegistersRequest — function 0x04.
type ReadInputRegistersRequest struct {
	Address uint16
	NObjs   uint16
}

func (ReadInputRegistersRequest) isRequestPdu()              {}
func (ReadInputRegistersRequest) FunctionCode() FunctionCode { return FuncReadInputRegisters }

func NewReadInputRegistersRequest(address, nobjs uint16) (ReadInputRegistersRequest, error) {
	if !checkObjCount(int(nobjs), MaxNRegs) {
		return ReadInputRegistersRequest{}, ErrInvalidArgument
	}
	return ReadInputRegistersRequest{Address: address, NObjs: nobjs}, nil
}

// WriteSingleCoilRequest — function 0x05.
type WriteSingleCoilRequest struct {
	Address uint16
	Value   bool
}

func (WriteSingleCoilRequest) isRequestPdu()              {}
func (WriteSingleCoilRequest) FunctionCode() FunctionCode { return FuncWriteSingleCoil }

func NewWriteSingleCoilRequest(address uint16, value bool) WriteSingleCoilRequest {
	return WriteSingleCoilRequest{Address: address, Value: value}
}

// WriteSingleRegisterRequest — function 0x06.
type WriteSingleRegisterRequest struct {
	Address uint16
	Value   uint16
}

func (WriteSingleRegisterRequest) isRequestPdu()              {}
func (WriteSingleRegisterRequest) FunctionCode() FunctionCode { return FuncWriteSingleRegister }

func NewWriteSingleRegisterRequest(address, value uint16) WriteSingleRegisterRequest {
	return WriteSingleRegisterRequest{Address: address, Value: value}
}

// WriteMultipleCoilsRequest — function 0x0F. Data is packed LSB-first coil
// bits; len(Data) must equal ceil(NObjs/8).
type WriteMultipleCoilsRequest struct {
	Address uint16
	NObjs   uint16
	Data    []byte
}

func (WriteMultipleCoilsRequest) isRequestPdu()              {}
func (WriteMultipleCoilsRequest) FunctionCode() FunctionCode { return FuncWriteMultipleCoils }

func NewWriteMultipleCoilsRequest(address, nobjs uint16, data []byte) (WriteMultipleCoilsRequest, error) {
	if !checkObjCount(int(nobjs), MaxNCoils) {
		return WriteMultipleCoilsRequest{}, ErrInvalidArgument
	}
	want := (int(nobjs) + 7) / 8
	if len(data) != want {
		return WriteMultipleCoilsRequest{}, ErrInvalidArgument
	}
	return WriteMultipleCoilsRequest{Address: address, NObjs: nobjs, Data: data}, nil
}

// WriteMultipleRegistersRequest — function 0x10. Data holds NObjs
// native-pair-encoded 16-bit registers; len(Data) must equal 2*NObjs.
type WriteMultipleRegistersRequest struct {
	Address uint16
	NObjs   uint16
	Data    []byte
}

func (WriteMultipleRegistersRequest) isRequestPdu()              {}
func (WriteMultipleRegistersRequest) FunctionCode() FunctionCode { return FuncWriteMultipleRegisters }

func NewWriteMultipleRegistersRequest(address, nobjs uint16, data []byte) (WriteMultipleRegistersRequest, error) {
	if !checkObjCount(int(nobjs), MaxNRegs) {
		return WriteMultipleRegistersRequest{}, ErrInvalidArgument
	}
	if len(data) != 2*int(nobjs) {
		return WriteMultipleRegistersRequest{}, ErrInvalidArgument
	}
	return WriteMultipleRegistersRequest{Address: address, NObjs: nobjs, Data: data}, nil
}

// EncapsulatedInterfaceTransportRequest — function 0x2B. MEIType must be
// 0x0D or 0x0E; Data must be non-empty.
type EncapsulatedInterfaceTransportRequest struct {
	MEIType byte
	Data    []byte
}

func (EncapsulatedInterfaceTransportRequest) isRequestPdu() {}
func (EncapsulatedInterfaceTransportRequest) FunctionCode() FunctionCode {
	return FuncEncapsulatedInterfaceTransport
}

func NewEncapsulatedInterfaceTransportRequest(meiType byte, data []byte) (EncapsulatedInterfaceTransportRequest, error) {
	if meiType != MEICANOpenGeneralReference && meiType != MEIReadDeviceIdentification {
		return EncapsulatedInterfaceTransportRequest{}, ErrInvalidArgument
	}
	if len(data) < 1 {
		return EncapsulatedInterfaceTransportRequest{}, ErrInvalidArgument
	}
	return EncapsulatedInterfaceTransportRequest{MEIType: meiType, Data: data}, nil
}

// RawRequest captures an unsupported function code, passed through
// unmodified for the handler to reject with Exception(IllegalFunction).
type RawRequest struct {
	Function byte
	Data     []byte
}

func (RawRequest) isRequestPdu()              {}
func (r RawRequest) FunctionCode() FunctionCode { return FunctionCode(r.Function) }

func NewRawRequest(function byte, data []byte) RawRequest {
	return RawRequest{Function: function, Data: data}
}

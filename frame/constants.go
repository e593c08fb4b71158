package frame

import "errors"

// Protocol constants.
// Ref: Modbus_Application_Protocol_V1_1b3.pdf, Section 4.1
const (
	MaxNRegs      = 125
	MaxNCoils     = 125 * 16 // 2000
	MaxPDUSize    = 253
	MaxDataSize   = 256
	MBAPHeaderLen = 7
	CoilOn        = 0xFF00
	CoilOff       = 0x0000
)

// Function codes.
type FunctionCode byte

const (
	FuncReadCoils                      FunctionCode = 0x01
	FuncReadDiscreteInputs             FunctionCode = 0x02
	FuncReadHoldingRegisters           FunctionCode = 0x03
	FuncReadInputRegisters             FunctionCode = 0x04
	FuncWriteSingleCoil                FunctionCode = 0x05
	FuncWriteSingleRegister            FunctionCode = 0x06
	FuncWriteMultipleCoils             FunctionCode = 0x0F
	FuncWriteMultipleRegisters         FunctionCode = 0x10
	FuncEncapsulatedInterfaceTransport FunctionCode = 0x2B
)

// MEI sub-types accepted under function code 0x2B.
const (
	MEICANOpenGeneralReference  byte = 0x0D
	MEIReadDeviceIdentification byte = 0x0E
)

// ErrInvalidArgument is returned by PDU constructors when a structural
// precondition is violated.
var ErrInvalidArgument = errors.New("frame: invalid argument")

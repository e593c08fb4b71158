package codec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vireo-automation/modbusd/codec"
	"github.com/vireo-automation/modbusd/frame"
)

func TestSlaveCodecDecodeRtuReadCoils(t *testing.T) {
	// slave 0x11, func 0x01, address 0x0013, nobjs 0x0025, CRC 0E 84.
	wire := []byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x84}
	buf := bytes.NewBuffer(append([]byte{}, wire...))
	c := &codec.SlaveCodec{Mode: codec.ModeRtu, FlowType: codec.Stream}

	fr, err := c.Decode(buf)
	require.NoError(t, err)
	require.NotNil(t, fr)
	require.Equal(t, byte(0x11), fr.Slave)
	req, ok := fr.PDU.(frame.ReadCoilsRequest)
	require.True(t, ok)
	require.Equal(t, uint16(0x13), req.Address)
	require.Equal(t, uint16(0x25), req.NObjs)
	require.Equal(t, 0, buf.Len())
}

func TestSlaveCodecDecodeRtuBadCrc(t *testing.T) {
	wire := []byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x85}
	buf := bytes.NewBuffer(append([]byte{}, wire...))
	c := &codec.SlaveCodec{Mode: codec.ModeRtu, FlowType: codec.Stream}

	fr, err := c.Decode(buf)
	require.Error(t, err)
	require.Nil(t, fr)
	require.Equal(t, 0, buf.Len(), "bad frame is discarded entirely")
}

func TestSlaveCodecDecodeNetReadHoldingRegisters(t *testing.T) {
	// transaction 0x0001, proto 0, length 0x0006, unit 0x11, func 0x03,
	// address 0x006B, nobjs 0x0003.
	wire := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}
	buf := bytes.NewBuffer(append([]byte{}, wire...))
	c := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream}

	fr, err := c.Decode(buf)
	require.NoError(t, err)
	require.NotNil(t, fr)
	require.Equal(t, uint16(0x0001), fr.ID)
	require.Equal(t, byte(0x11), fr.Slave)
	req, ok := fr.PDU.(frame.ReadHoldingRegistersRequest)
	require.True(t, ok)
	require.Equal(t, uint16(0x6B), req.Address)
	require.Equal(t, uint16(3), req.NObjs)
	require.Equal(t, 0, buf.Len())
}

func TestSlaveCodecEncodeNetReadCoilsResponse(t *testing.T) {
	resp, err := frame.NewReadCoilsResponse(2, []byte{0x03})
	require.NoError(t, err)
	c := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream}

	out, err := c.Encode(frame.ResponseFrame{ID: 0x0001, Slave: 0x11, PDU: resp})
	require.NoError(t, err)
	// header length = 1 (unit) + 1 (func) + 1 (bytecount) + 1 (data) = 4.
	require.Equal(t, []byte{
		0x00, 0x01, // transaction id
		0x00, 0x00, // protocol id
		0x00, 0x04, // length
		0x11,       // unit id
		0x01,       // function
		0x01,       // byte count
		0x03,       // data
	}, out)
}

func TestSlaveCodecEncodeRtuReadCoilsResponse(t *testing.T) {
	resp, err := frame.NewReadCoilsResponse(2, []byte{0x03})
	require.NoError(t, err)
	c := &codec.SlaveCodec{Mode: codec.ModeRtu, FlowType: codec.Stream}

	out, err := c.Encode(frame.ResponseFrame{Slave: 0x11, PDU: resp})
	require.NoError(t, err)
	body := out[:len(out)-2]
	require.Equal(t, []byte{0x11, 0x01, 0x01, 0x03}, body)
	require.True(t, codec.VerifyCRC(out))
}

func TestSlaveCodecEncodeExceptionResponse(t *testing.T) {
	resp := frame.NewExceptionResponse(frame.FuncReadCoils, frame.IllegalDataAddress)
	c := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream}

	out, err := c.Encode(frame.ResponseFrame{ID: 7, Slave: 0x11, PDU: resp})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x07,
		0x00, 0x00,
		0x00, 0x03, // unit(1) + func(1) + code(1)
		0x11,
		0x81, // 0x01 | ExceptionBit
		0x02, // IllegalDataAddress
	}, out)
}

func TestSlaveCodecDecodeNetEncapsulatedInterfaceTransport(t *testing.T) {
	// read device identification MEI (0x0E), sub-request payload = 1 byte.
	wire := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x04, 0x11, 0x2B, 0x0E, 0x01}
	buf := bytes.NewBuffer(append([]byte{}, wire...))
	c := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream}

	fr, err := c.Decode(buf)
	require.NoError(t, err)
	require.NotNil(t, fr)
	req, ok := fr.PDU.(frame.EncapsulatedInterfaceTransportRequest)
	require.True(t, ok)
	require.Equal(t, byte(frame.MEIReadDeviceIdentification), req.MEIType)
	require.Equal(t, []byte{0x01}, req.Data)
}

func TestSlaveCodecDecodeNetWriteMultipleRegistersWrongByteCount(t *testing.T) {
	// nobjs=2 but nbytes=3 (should be 4): structural violation.
	wire := []byte{
		0x00, 0x06, 0x00, 0x00, 0x00, 0x06,
		0x11, 0x10, 0x00, 0x01, 0x00, 0x02, 0x03, 0x00, 0xFF, 0xFF, 0x00,
	}
	buf := bytes.NewBuffer(append([]byte{}, wire...))
	c := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream}

	fr, err := c.Decode(buf)
	require.Error(t, err)
	require.Nil(t, fr)
	var ce *codec.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, codec.InvalidData, ce.Kind)
}

func TestSlaveCodecEncodeNet37CoilsResponse(t *testing.T) {
	resp, err := frame.NewReadCoilsResponse(37, []byte{0xCD, 0x6B, 0xB2, 0x0E, 0x1B})
	require.NoError(t, err)
	c := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream}

	out, err := c.Encode(frame.ResponseFrame{ID: 1, Slave: 0x11, PDU: resp})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x01, 0x00, 0x00, 0x00, 0x08,
		0x11, 0x01, 0x05, 0xCD, 0x6B, 0xB2, 0x0E, 0x1B,
	}, out)
}

func TestSlaveCodecEncodeRtu37CoilsResponse(t *testing.T) {
	resp, err := frame.NewReadCoilsResponse(37, []byte{0xCD, 0x6B, 0xB2, 0x0E, 0x1B})
	require.NoError(t, err)
	c := &codec.SlaveCodec{Mode: codec.ModeRtu, FlowType: codec.Stream}

	out, err := c.Encode(frame.ResponseFrame{Slave: 0x11, PDU: resp})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x11, 0x01, 0x05, 0xCD, 0x6B, 0xB2, 0x0E, 0x1B, 0x45, 0xE6,
	}, out)
}

func TestSlaveCodecEncodeNetIllegalFunctionException(t *testing.T) {
	resp := frame.NewExceptionResponse(frame.FuncReadHoldingRegisters, frame.IllegalFunction)
	c := &codec.SlaveCodec{Mode: codec.ModeNet, FlowType: codec.Stream}

	out, err := c.Encode(frame.ResponseFrame{ID: 1, Slave: 1, PDU: resp})
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x01, 0x83, 0x01}, out)
}

func TestSlaveCodecDecodeStreamSplitAcrossReads(t *testing.T) {
	wire := []byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x84}
	buf := bytes.NewBuffer(append([]byte{}, wire[:4]...))
	c := &codec.SlaveCodec{Mode: codec.ModeRtu, FlowType: codec.Stream}

	fr, err := c.Decode(buf)
	require.NoError(t, err)
	require.Nil(t, fr)
	require.Equal(t, 4, buf.Len(), "partial stream frame must not be discarded")

	buf.Write(wire[4:])
	fr, err = c.Decode(buf)
	require.NoError(t, err)
	require.NotNil(t, fr)
	require.Equal(t, 0, buf.Len())
}

func TestSlaveCodecDecodePacketFlowDropsPartialDatagram(t *testing.T) {
	wire := []byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x84}
	buf := bytes.NewBuffer(append([]byte{}, wire[:4]...))
	c := &codec.SlaveCodec{Mode: codec.ModeRtu, FlowType: codec.Packet}

	fr, err := c.Decode(buf)
	require.NoError(t, err)
	require.Nil(t, fr)
	require.Equal(t, 0, buf.Len(), "a partial datagram can never be completed")
}

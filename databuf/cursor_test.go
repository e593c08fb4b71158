package databuf_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vireo-automation/modbusd/databuf"
)

func TestReadCtxShortReadLeavesPositionUnchanged(t *testing.T) {
	c := databuf.NewReadCtx([]byte{0x01})
	_, ok := c.ReadU16BE()
	require.False(t, ok)
	require.Equal(t, 0, c.Processed())

	// A subsequent successful read from the same unmoved position must see
	// the same byte.
	v, ok := c.ReadU8()
	require.True(t, ok)
	require.Equal(t, byte(0x01), v)
}

func TestReadCtxBigEndian(t *testing.T) {
	c := databuf.NewReadCtx([]byte{0x00, 0x13})
	v, ok := c.ReadU16BE()
	require.True(t, ok)
	require.Equal(t, uint16(0x13), v)
}

func TestWriteCtxDataAsU16BEPairs(t *testing.T) {
	w := databuf.NewWriteCtx(4)
	// native pair encoding: low byte, high byte -> 0x1234
	w.WriteDataAsU16BEPairs([]byte{0x34, 0x12})
	require.Equal(t, []byte{0x12, 0x34}, w.Bytes())
}

func TestCursorBERegistersConvertsWireToNativePairs(t *testing.T) {
	cur := databuf.NewReadCtx([]byte{0x00, 0xFF, 0x01, 0x02})
	prod := databuf.CursorBERegisters{Cursor: cur, N: 2}
	buf, n := databuf.Registers(prod)
	require.Equal(t, 2, n)
	require.Equal(t, uint16(0x00FF), buf.GetU16(0))
	require.Equal(t, uint16(0x0102), buf.GetU16(2))
}

// Package databuf provides the fixed-capacity byte buffer and the
// producer capabilities (coils, registers) used to materialize Modbus
// PDU payloads.
package databuf

import "fmt"

// MaxDataSize is the largest payload a single Buffer can hold.
// Ref: Modbus_Application_Protocol_V1_1b3.pdf, Section 4.3 (Data Encoding)
const MaxDataSize = 256

// Buffer is a bounded byte sequence with capacity MaxDataSize.
// Invariant: Len() <= MaxDataSize always holds.
type Buffer struct {
	data []byte
}

// Raw wraps an existing byte slice as a Buffer. Panics if it exceeds
// MaxDataSize; callers that can't guarantee this should validate first.
func Raw(b []byte) *Buffer {
	if len(b) > MaxDataSize {
		panic(fmt.Sprintf("databuf: raw payload of %d bytes exceeds MaxDataSize", len(b)))
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Buffer{data: cp}
}

// RawEmpty allocates a zeroed Buffer of n bytes.
func RawEmpty(n int) *Buffer {
	if n > MaxDataSize {
		panic(fmt.Sprintf("databuf: empty payload of %d bytes exceeds MaxDataSize", n))
	}
	return &Buffer{data: make([]byte, n)}
}

// Len returns the number of bytes currently stored.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Get returns the underlying slice for reading.
func (b *Buffer) Get() []byte {
	return b.data
}

// GetMut returns the underlying slice for in-place mutation.
func (b *Buffer) GetMut() []byte {
	return b.data
}

// GetU8 returns the byte at index i.
func (b *Buffer) GetU8(i int) byte {
	return b.data[i]
}

// SetU8 sets the byte at index i.
func (b *Buffer) SetU8(i int, v byte) {
	b.data[i] = v
}

// GetU16 reads a native-endian 16-bit pair starting at byte index i.
func (b *Buffer) GetU16(i int) uint16 {
	return uint16(b.data[i]) | uint16(b.data[i+1])<<8
}

// SetU16 writes a native-endian 16-bit pair starting at byte index i.
func (b *Buffer) SetU16(i int, v uint16) {
	b.data[i] = byte(v)
	b.data[i+1] = byte(v >> 8)
}

// GetBit reads bit i (LSB-first within each byte).
func (b *Buffer) GetBit(i int) bool {
	byteIdx := i / 8
	bitOff := uint(i % 8)
	return (b.data[byteIdx]>>bitOff)&1 != 0
}

// SetBit writes bit i (LSB-first within each byte).
func (b *Buffer) SetBit(i int, v bool) {
	byteIdx := i / 8
	bitOff := uint(i % 8)
	if v {
		b.data[byteIdx] |= 1 << bitOff
	} else {
		b.data[byteIdx] &^= 1 << bitOff
	}
}

// CoilByteCount returns the number of bytes needed to pack n coils.
func CoilByteCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 7) / 8
}

// RegisterByteCount returns the number of bytes needed for n 16-bit registers.
func RegisterByteCount(n int) int {
	return 2 * n
}

// Coils builds a Buffer from a CoilProducer, packing bits LSB-first.
func Coils(p CoilProducer) (*Buffer, int) {
	n := p.Count()
	buf := RawEmpty(CoilByteCount(n))
	written := p.WriteInto(buf.data)
	return buf, written
}

// Registers builds a Buffer from a RegisterProducer.
func Registers(p RegisterProducer) (*Buffer, int) {
	n := p.Count()
	buf := RawEmpty(RegisterByteCount(n))
	written := p.WriteInto(buf.data)
	return buf, written
}

package databuf

// CoilProducer abstracts "how many coils" and "write them as packed LSB-first
// bits into this destination slice". The only contract: the number of coils
// reported by Count must match the number actually packed by WriteInto.
type CoilProducer interface {
	Count() int
	WriteInto(dst []byte) int
}

// RegisterProducer abstracts "how many 16-bit registers" and "write them into
// this destination byte slice", two bytes per register. Implementations
// decide byte order; NativeRegisters below copies values in native order and
// CursorBERegisters converts big-endian input to native order while reading.
type RegisterProducer interface {
	Count() int
	WriteInto(dst []byte) int
}

// BoolCoils adapts a []bool of coil values to a CoilProducer.
type BoolCoils []bool

func (c BoolCoils) Count() int { return len(c) }

func (c BoolCoils) WriteInto(dst []byte) int {
	for i, v := range c {
		if v {
			dst[i/8] |= 1 << uint(i%8)
		}
	}
	return len(c)
}

// NativeRegisters adapts a []uint16 to a RegisterProducer, copying each
// value as a native-endian pair.
type NativeRegisters []uint16

func (r NativeRegisters) Count() int { return len(r) }

func (r NativeRegisters) WriteInto(dst []byte) int {
	for i, v := range r {
		dst[2*i] = byte(v)
		dst[2*i+1] = byte(v >> 8)
	}
	return len(r)
}

// CursorBERegisters reads n big-endian uint16 words (the wire encoding for
// register payloads) from a ReadCtx and writes them in the buffer's native
// pair encoding (low byte, high byte) into the destination. Used by the
// decoder when materializing WriteMultipleRegisters request bodies directly
// off the incoming byte cursor.
type CursorBERegisters struct {
	Cursor *ReadCtx
	N      int
}

func (r CursorBERegisters) Count() int { return r.N }

func (r CursorBERegisters) WriteInto(dst []byte) int {
	for i := 0; i < r.N; i++ {
		v, ok := r.Cursor.ReadU16BE()
		if !ok {
			return i
		}
		dst[2*i] = byte(v)
		dst[2*i+1] = byte(v >> 8)
	}
	return r.N
}

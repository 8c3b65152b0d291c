package wasmtest

import (
	"bytes"
	"encoding/binary"
)

// writer accumulates WebAssembly binary encoding.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) bytes() []byte { return w.buf.Bytes() }

func (w *writer) byte(b ...byte) { w.buf.Write(b) }

// u32 writes an unsigned LEB128 value.
func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// s32 writes a signed LEB128 value.
func (w *writer) s32(v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.buf.WriteByte(b)
			return
		}
		w.buf.WriteByte(b | 0x80)
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) vec(data []byte) {
	w.u32(uint32(len(data)))
	w.buf.Write(data)
}

func (w *writer) u32le(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) section(id byte, body *writer) {
	w.byte(id)
	w.vec(body.bytes())
}

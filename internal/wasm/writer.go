package wasm

import (
	"bytes"
	"encoding/binary"
)

// writer provides buffered writing utilities for wasm binary encoding.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func (w *writer) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) raw(data []byte) {
	w.buf.Write(data)
}

// u32 writes an unsigned LEB128 encoded uint32.
func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// s64 writes a signed LEB128 encoded int64.
func (w *writer) s64(v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && (b&0x40) == 0) || (v == -1 && (b&0x40) != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.buf.WriteByte(b)
	}
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) u32LE(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.buf.Write(buf[:])
}

func (w *writer) u64LE(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.buf.Write(buf[:])
}

// section writes id followed by the size-prefixed contents.
func (w *writer) section(id byte, contents []byte) {
	w.byte(id)
	w.u32(uint32(len(contents)))
	w.raw(contents)
}

// EncodeULEB128 encodes an unsigned 32-bit integer.
func EncodeULEB128(v uint32) []byte {
	var w writer
	w.u32(v)
	return w.bytes()
}

// EncodeSLEB128 encodes a signed 64-bit integer.
func EncodeSLEB128(v int64) []byte {
	var w writer
	w.s64(v)
	return w.bytes()
}

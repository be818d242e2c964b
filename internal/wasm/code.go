package wasm

import "github.com/tetratelabs/wazero/api"

// Code accumulates a function body.
type Code struct {
	w writer
}

// Op appends raw opcode bytes.
func (c *Code) Op(ops ...byte) *Code {
	c.w.raw(ops)
	return c
}

// LocalGet appends local.get idx.
func (c *Code) LocalGet(idx uint32) *Code {
	c.w.byte(0x20)
	c.w.u32(idx)
	return c
}

// GlobalGet appends global.get idx.
func (c *Code) GlobalGet(idx uint32) *Code {
	c.w.byte(0x23)
	c.w.u32(idx)
	return c
}

// GlobalSet appends global.set idx.
func (c *Code) GlobalSet(idx uint32) *Code {
	c.w.byte(0x24)
	c.w.u32(idx)
	return c
}

// Call appends call idx.
func (c *Code) Call(idx uint32) *Code {
	c.w.byte(0x10)
	c.w.u32(idx)
	return c
}

// I32Const appends i32.const v.
func (c *Code) I32Const(v int32) *Code {
	c.w.byte(0x41)
	c.w.s64(int64(v))
	return c
}

// I64Const appends i64.const v.
func (c *Code) I64Const(v int64) *Code {
	c.w.byte(0x42)
	c.w.s64(v)
	return c
}

// I32Add appends i32.add.
func (c *Code) I32Add() *Code { return c.Op(0x6a) }

// I64Add appends i64.add.
func (c *Code) I64Add() *Code { return c.Op(0x7c) }

// F64Add appends f64.add.
func (c *Code) F64Add() *Code { return c.Op(0xa0) }

// Unreachable appends unreachable.
func (c *Code) Unreachable() *Code { return c.Op(0x00) }

// I32Store appends i32.store with natural alignment and the given offset.
func (c *Code) I32Store(offset uint32) *Code {
	c.w.byte(0x36)
	c.w.u32(2)
	c.w.u32(offset)
	return c
}

// I32Load appends i32.load with natural alignment and the given offset.
func (c *Code) I32Load(offset uint32) *Code {
	c.w.byte(0x28)
	c.w.u32(2)
	c.w.u32(offset)
	return c
}

// RefNull appends ref.null of the reference type.
func (c *Code) RefNull(vt api.ValueType) *Code {
	c.w.byte(0xd0)
	c.w.byte(vt)
	return c
}

// TableSize appends table.size idx.
func (c *Code) TableSize(idx uint32) *Code {
	c.w.byte(0xfc)
	c.w.u32(16)
	c.w.u32(idx)
	return c
}

// TableGrow appends table.grow idx.
func (c *Code) TableGrow(idx uint32) *Code {
	c.w.byte(0xfc)
	c.w.u32(15)
	c.w.u32(idx)
	return c
}

// End appends the final end opcode and returns the body.
func (c *Code) End() []byte {
	c.w.byte(0x0b)
	return append([]byte(nil), c.w.bytes()...)
}

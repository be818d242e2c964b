package wasmembed

// Memory is a linear memory that views read from and write through.
// Read returns a slice aliasing the memory, valid until the memory grows.
// wazero's api.Memory satisfies it.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Size() uint32
}

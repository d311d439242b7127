package mem

import "fmt"

// LinearMemory is a fixed-size byte array backing device: the simplest
// possible Addressable, and the one Machine.New mounts by default.
type LinearMemory struct {
	bytes []byte
}

// NewLinearMemory allocates a zeroed LinearMemory of n bytes.
func NewLinearMemory(n uint32) *LinearMemory {
	return &LinearMemory{bytes: make([]byte, n)}
}

var _ Addressable = (*LinearMemory)(nil)

// Size implements Addressable.
func (l *LinearMemory) Size() uint32 {
	return uint32(len(l.bytes))
}

// ReadByte implements Addressable.
func (l *LinearMemory) ReadByte(off uint32) (byte, error) {
	if off >= uint32(len(l.bytes)) {
		return 0, fmt.Errorf("%w: offset 0x%x into %d-byte linear memory", ErrOutOfRange, off, len(l.bytes))
	}
	return l.bytes[off], nil
}

// WriteByte implements Addressable.
func (l *LinearMemory) WriteByte(off uint32, v byte) error {
	if off >= uint32(len(l.bytes)) {
		return fmt.Errorf("%w: offset 0x%x into %d-byte linear memory", ErrOutOfRange, off, len(l.bytes))
	}
	l.bytes[off] = v
	return nil
}

// LoadAt copies prog into the device starting at byte offset off,
// failing if it would run past the end of the buffer.
func (l *LinearMemory) LoadAt(off uint32, prog []byte) error {
	if uint64(off)+uint64(len(prog)) > uint64(len(l.bytes)) {
		return fmt.Errorf("%w: %d bytes at offset 0x%x overruns %d-byte linear memory",
			ErrOutOfRange, len(prog), off, len(l.bytes))
	}
	copy(l.bytes[off:], prog)
	return nil
}

// Package mem contains the VM's memory-mapping layer: an address space of
// 32-bit byte addresses composed of non-overlapping segments, each
// delegating reads and writes to a backing device.
package mem

import "fmt"

// ErrUnmapped indicates an access to an address with no mounted segment.
var ErrUnmapped = fmt.Errorf("mem: unmapped address")

// ErrOutOfRange indicates a device-local bounds violation (an access
// within a mounted segment's range but past the backing device's own
// capacity, or an attempt to mount an overlapping segment).
var ErrOutOfRange = fmt.Errorf("mem: out of range")

// Addressable is a memory-mapped device: a flat byte-addressable region
// of a fixed size.
type Addressable interface {
	// Size returns the device's length in bytes.
	Size() uint32
	// ReadByte reads the byte at offset off relative to the device's own
	// start (not the absolute address the segment was mounted at).
	ReadByte(off uint32) (byte, error)
	// WriteByte writes the byte at offset off relative to the device's
	// own start.
	WriteByte(off uint32, v byte) error
}

type segment struct {
	start, length uint32
	device        Addressable
}

// Map is an ordered collection of (start, length, device) segments with
// no overlap. Address resolution is linear search; a miss is a fault.
type Map struct {
	segments []segment
}

// NewMap returns an empty memory map.
func NewMap() *Map {
	return &Map{}
}

// Mount inserts a non-overlapping segment covering [start, start+length).
// Mount fails if the new segment overlaps any already-mounted segment.
func (m *Map) Mount(start, length uint32, device Addressable) error {
	for _, s := range m.segments {
		if rangesOverlap(start, length, s.start, s.length) {
			return fmt.Errorf("%w: segment [0x%x, 0x%x) overlaps [0x%x, 0x%x)",
				ErrOutOfRange, start, start+length, s.start, s.start+s.length)
		}
	}
	m.segments = append(m.segments, segment{start: start, length: length, device: device})
	return nil
}

func rangesOverlap(startA, lenA, startB, lenB uint32) bool {
	endA, endB := startA+lenA, startB+lenB
	return startA < endB && startB < endA
}

func (m *Map) find(addr uint32) (segment, error) {
	for _, s := range m.segments {
		if addr >= s.start && addr < s.start+s.length {
			return s, nil
		}
	}
	return segment{}, fmt.Errorf("%w: 0x%x", ErrUnmapped, addr)
}

// ReadByte reads one byte at the given absolute address.
func (m *Map) ReadByte(addr uint32) (byte, error) {
	s, err := m.find(addr)
	if err != nil {
		return 0, err
	}
	return s.device.ReadByte(addr - s.start)
}

// WriteByte writes one byte at the given absolute address.
func (m *Map) WriteByte(addr uint32, v byte) error {
	s, err := m.find(addr)
	if err != nil {
		return err
	}
	return s.device.WriteByte(addr-s.start, v)
}

// Read16 reads a 16-bit little-endian word at addr. Odd addresses are
// legal: the two bytes are read independently, low byte at the lower
// address, and may even straddle two different segments.
func (m *Map) Read16(addr uint32) (uint16, error) {
	lo, err := m.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// Write16 writes a 16-bit little-endian word at addr.
func (m *Map) Write16(addr uint32, v uint16) error {
	if err := m.WriteByte(addr, byte(v)); err != nil {
		return err
	}
	return m.WriteByte(addr+1, byte(v>>8))
}

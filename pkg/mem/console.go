package mem

import (
	"fmt"
	"io"
)

// ConsoleDevice is a one-byte-wide memory-mapped output device: each byte
// written to its single mailbox address is passed to an io.Writer. A
// 16-bit word write reaches it only through its low byte; the high byte
// goes to the next address. It is the memory-mapped counterpart to a signal
// handler: demonstrating that the map, not just System, can talk to the
// host.
//
// Unlike the teacher's SerialTTY, ConsoleDevice never blocks and owns no
// goroutine or socket: the VM's execution model is synchronous, so a
// memory-mapped device here is a plain buffered sink, nothing more.
type ConsoleDevice struct {
	w io.Writer
}

// NewConsoleDevice wraps w as a 1-byte-wide memory-mapped output device.
func NewConsoleDevice(w io.Writer) *ConsoleDevice {
	return &ConsoleDevice{w: w}
}

var _ Addressable = (*ConsoleDevice)(nil)

// Size implements Addressable: the device occupies a single byte.
func (c *ConsoleDevice) Size() uint32 {
	return 1
}

// ReadByte implements Addressable. Reads always return 0; the console is
// write-only.
func (c *ConsoleDevice) ReadByte(off uint32) (byte, error) {
	if off != 0 {
		return 0, fmt.Errorf("%w: console device is 1 byte wide", ErrOutOfRange)
	}
	return 0, nil
}

// WriteByte implements Addressable: every write appends v to the
// underlying writer.
func (c *ConsoleDevice) WriteByte(off uint32, v byte) error {
	if off != 0 {
		return fmt.Errorf("%w: console device is 1 byte wide", ErrOutOfRange)
	}
	_, err := c.w.Write([]byte{v})
	return err
}

package mem_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bassosimone/flipvm/pkg/mem"
)

// TestWordEndianness matches universal property 6: write2(a, 0x1234);
// read_byte(a) == 0x34; read_byte(a+1) == 0x12.
func TestWordEndianness(t *testing.T) {
	m := mem.NewMap()
	if err := m.Mount(0, 16, mem.NewLinearMemory(16)); err != nil {
		t.Fatal(err)
	}
	if err := m.Write16(4, 0x1234); err != nil {
		t.Fatal(err)
	}
	lo, err := m.ReadByte(4)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := m.ReadByte(5)
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0x34 || hi != 0x12 {
		t.Fatalf("want lo=0x34 hi=0x12, got lo=0x%02x hi=0x%02x", lo, hi)
	}
	got, err := m.Read16(4)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x1234 {
		t.Fatalf("Read16 = 0x%04x, want 0x1234", got)
	}
}

func TestOddAddressWordAccess(t *testing.T) {
	m := mem.NewMap()
	if err := m.Mount(0, 16, mem.NewLinearMemory(16)); err != nil {
		t.Fatal(err)
	}
	if err := m.Write16(1, 0xABCD); err != nil {
		t.Fatal(err)
	}
	got, err := m.Read16(1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xABCD {
		t.Fatalf("Read16(1) = 0x%04x, want 0xabcd", got)
	}
}

func TestUnmappedAddressFaults(t *testing.T) {
	m := mem.NewMap()
	if err := m.Mount(0, 16, mem.NewLinearMemory(16)); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ReadByte(100); !errors.Is(err, mem.ErrUnmapped) {
		t.Fatalf("want ErrUnmapped, got %v", err)
	}
}

func TestMountOverlapRejected(t *testing.T) {
	m := mem.NewMap()
	if err := m.Mount(0, 16, mem.NewLinearMemory(16)); err != nil {
		t.Fatal(err)
	}
	if err := m.Mount(8, 16, mem.NewLinearMemory(16)); err == nil {
		t.Fatal("expected overlapping mount to fail")
	}
}

func TestConsoleDeviceBuffersWrites(t *testing.T) {
	var buf bytes.Buffer
	m := mem.NewMap()
	if err := m.Mount(0, 1, mem.NewConsoleDevice(&buf)); err != nil {
		t.Fatal(err)
	}
	for _, b := range []byte("hi") {
		if err := m.WriteByte(0, b); err != nil {
			t.Fatal(err)
		}
	}
	if buf.String() != "hi" {
		t.Fatalf("console buffered %q, want %q", buf.String(), "hi")
	}
}

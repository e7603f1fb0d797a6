package oyster

import (
	"encoding/binary"
	"fmt"
)

// ReadU16LE reads a little-endian uint16 at offset.
func ReadU16LE(buf []byte, offset int) (uint16, error) {
	if err := checkWindow(buf, offset, 2); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(buf[offset:]), nil
}

// ReadU32LE reads a little-endian uint32 at offset.
func ReadU32LE(buf []byte, offset int) (uint32, error) {
	if err := checkWindow(buf, offset, 4); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf[offset:]), nil
}

// ReadBits16 extracts a bitLength-wide field starting bitOffset bits into the
// little-endian 16-bit word at offset. Bits above the window are read as zero,
// so a field may run past bit 15 only when those bits are unused.
func ReadBits16(buf []byte, offset int, bitOffset, bitLength uint) (uint16, error) {
	if bitLength == 0 || bitLength > 16 {
		return 0, fmt.Errorf("%w: bit length %d", ErrOutOfRange, bitLength)
	}
	if bitOffset > 15 {
		return 0, fmt.Errorf("%w: bit offset %d", ErrOutOfRange, bitOffset)
	}
	word, err := ReadU16LE(buf, offset)
	if err != nil {
		return 0, err
	}
	mask := uint16(0xFFFF) >> (16 - bitLength)

	return (word >> bitOffset) & mask, nil
}

func checkWindow(buf []byte, offset, size int) error {
	if offset < 0 || offset+size > len(buf) {
		return fmt.Errorf("%w: %d bytes at offset %d of %d", ErrOutOfRange, size, offset, len(buf))
	}

	return nil
}

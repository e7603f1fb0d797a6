package oyster

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFrame        = errors.New("oyster: empty frame")
	ErrUnknownRecordType = errors.New("oyster: unknown record type")
	ErrTruncatedFrame    = errors.New("oyster: truncated frame")
	ErrInvalidHex        = errors.New("oyster: invalid hex input")
	ErrOutOfRange        = errors.New("oyster: read out of range")
)

// UnknownRecordTypeError reports the low nibble of a frame that selects no known layout.
type UnknownRecordTypeError struct {
	Type uint8
}

func (e *UnknownRecordTypeError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnknownRecordType, e.Type)
}

func (e *UnknownRecordTypeError) Is(target error) bool {
	return target == ErrUnknownRecordType
}

func truncated(kind RecordType, need, got int) error {
	return fmt.Errorf("%w: %s record needs %d bytes, got %d", ErrTruncatedFrame, kind, need, got)
}

package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxLineLen caps a single uplink line, terminator excluded.
const MaxLineLen = 8 * 1024

var ErrLineTooLong = errors.New("line too long")

type readFullFunc func(buf []byte) error

// readLine reads bytes up to the next '\n'. A trailing '\r' is dropped and
// blank lines are skipped. An unterminated final line is returned before EOF.
// Oversized lines are consumed to their end and reported as ErrLineTooLong.
func readLine(readFull readFullFunc) ([]byte, error) {
	var (
		line     []byte
		overflow bool
	)
	buf := make([]byte, 1)
	for {
		if err := readFull(buf); err != nil {
			if errors.Is(err, io.EOF) && !overflow {
				if trimmed := trimLine(line); len(trimmed) > 0 {
					return trimmed, nil
				}
			}
			if overflow && errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: exceeds %d bytes", ErrLineTooLong, MaxLineLen)
			}

			return nil, err
		}

		if buf[0] == '\n' {
			if overflow {
				return nil, fmt.Errorf("%w: exceeds %d bytes", ErrLineTooLong, MaxLineLen)
			}
			if trimmed := trimLine(line); len(trimmed) > 0 {
				return trimmed, nil
			}
			line = line[:0]

			continue
		}

		if overflow {
			continue
		}
		if len(line) >= MaxLineLen {
			overflow = true
			line = nil

			continue
		}
		line = append(line, buf[0])
	}
}

func trimLine(line []byte) []byte {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	return line
}

func ioReadFullFunc(r io.Reader) readFullFunc {
	return func(buf []byte) error {
		_, err := io.ReadFull(r, buf)

		return err
	}
}

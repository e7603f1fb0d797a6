package uplink

import (
	"bytes"
	"fmt"

	"github.com/skobkin/oystergo/internal/domain"
	"github.com/skobkin/oystergo/internal/oyster"
)

// Codec turns one received line into an uplink.
type Codec interface {
	DecodeLine(line []byte) (domain.Uplink, error)
}

// DecodeError keeps the device and payload of a line that failed to decode.
type DecodeError struct {
	Device string
	Data   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Device, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// OysterCodec accepts either a callback envelope (a JSON object per line)
// or a bare hex payload attributed to the unknown device.
type OysterCodec struct {
	opts domain.UplinkOptions
}

func NewOysterCodec(opts domain.UplinkOptions) *OysterCodec {
	return &OysterCodec{opts: opts}
}

func (c *OysterCodec) DecodeLine(line []byte) (domain.Uplink, error) {
	line = bytes.TrimSpace(line)

	var env domain.Envelope
	if len(line) > 0 && line[0] == '{' {
		parsed, err := domain.ParseEnvelope(line)
		if err != nil {
			return domain.Uplink{}, &DecodeError{Device: domain.UnknownDevice, Err: err}
		}
		env = parsed
	} else {
		env = domain.Envelope{Device: domain.UnknownDevice, Data: string(line)}
	}

	rec, err := oyster.DecodeFrame(env.Data)
	if err != nil {
		return domain.Uplink{}, &DecodeError{Device: env.Device, Data: env.Data, Err: err}
	}

	return domain.BuildUplink(env, rec, c.opts), nil
}

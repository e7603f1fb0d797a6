package transport

import "context"

// Transport delivers newline-delimited uplink lines from some source.
type Transport interface {
	Name() string
	Connect(ctx context.Context) error
	Close() error
	// ReadFrame returns the next non-blank line without its line terminator.
	ReadFrame(ctx context.Context) ([]byte, error)
}

type StatusTargetResolver interface {
	StatusTarget() string
}

// Bounded is implemented by transports whose input ends for good on io.EOF,
// such as files and stdin. Reconnecting them is pointless.
type Bounded interface {
	Bounded() bool
}

// IsBounded reports whether t declares itself bounded.
func IsBounded(t Transport) bool {
	b, ok := t.(Bounded)

	return ok && b.Bounded()
}

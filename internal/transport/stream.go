package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// StdinPath selects standard input for NewStreamTransport.
const StdinPath = "-"

// StreamTransport reads uplink lines from a file, stdin or any reader.
// It is bounded: once the input hits EOF it stays exhausted.
type StreamTransport struct {
	path string
	open func() (io.ReadCloser, error)

	mu     sync.Mutex
	source io.ReadCloser
	reader *bufio.Reader
}

// NewStreamTransport reads from path, or stdin when path is empty or "-".
func NewStreamTransport(path string) *StreamTransport {
	if path == "" || path == StdinPath {
		return &StreamTransport{
			path: StdinPath,
			open: func() (io.ReadCloser, error) {
				return io.NopCloser(os.Stdin), nil
			},
		}
	}

	cleanPath := filepath.Clean(path)

	return &StreamTransport{
		path: cleanPath,
		open: func() (io.ReadCloser, error) {
			// #nosec G304 -- path is chosen by the operator.
			return os.Open(cleanPath)
		},
	}
}

// NewReaderTransport wraps an already open reader.
func NewReaderTransport(name string, r io.Reader) *StreamTransport {
	return &StreamTransport{
		path: name,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

func (t *StreamTransport) Name() string {
	if t.path == StdinPath {
		return "stdin"
	}

	return "file"
}

func (t *StreamTransport) StatusTarget() string {
	return t.path
}

func (t *StreamTransport) Bounded() bool {
	return true
}

func (t *StreamTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reader != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	source, err := t.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}
	t.source = source
	t.reader = bufio.NewReader(source)
	transportLogger(t.Name(), t.path).Info("opened")

	return nil
}

func (t *StreamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.source == nil {
		return nil
	}
	err := t.source.Close()
	t.source = nil
	t.reader = nil

	return err
}

// ReadFrame returns ctx.Err() as soon as ctx ends. A read already blocked on
// an idle terminal is left behind and finishes when input arrives or the
// process exits; the stream must not be read again after that.
func (t *StreamTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	reader := t.reader
	t.mu.Unlock()
	if reader == nil {
		return nil, errors.New("transport is not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		line []byte
		err  error
	}
	res := make(chan result, 1)
	go func() {
		line, err := readLine(ioReadFullFunc(reader))
		res <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-res:
		return r.line, r.err
	}
}

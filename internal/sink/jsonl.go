package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/skobkin/oystergo/internal/bus"
	"github.com/skobkin/oystergo/internal/domain"
)

// Stdout selects standard output for OpenJSONLWriter.
const Stdout = "-"

// JSONLWriter writes each uplink as one JSON line. Writers opened from a
// strftime pattern switch files whenever the formatted name changes.
type JSONLWriter struct {
	mu sync.Mutex

	pattern *strftime.Strftime
	now     func() time.Time
	logger  *slog.Logger

	enc      *json.Encoder
	file     *os.File
	fileName string
	written  int
}

type Option func(*JSONLWriter)

// WithClock replaces time.Now when resolving patterned file names.
func WithClock(now func() time.Time) Option {
	return func(j *JSONLWriter) {
		if now != nil {
			j.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(j *JSONLWriter) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewJSONLWriter writes to w for its whole lifetime.
func NewJSONLWriter(w io.Writer, opts ...Option) *JSONLWriter {
	j := newJSONLWriter(opts...)
	j.setOutput(w)

	return j
}

// OpenJSONLWriter writes to stdout when path is empty or "-", otherwise to
// the file named by formatting path as a strftime pattern.
func OpenJSONLWriter(path string, opts ...Option) (*JSONLWriter, error) {
	if path == "" || path == Stdout {
		return NewJSONLWriter(os.Stdout, opts...), nil
	}

	pattern, err := strftime.New(path)
	if err != nil {
		return nil, fmt.Errorf("parse output pattern %q: %w", path, err)
	}

	j := newJSONLWriter(opts...)
	j.pattern = pattern

	return j, nil
}

func newJSONLWriter(opts ...Option) *JSONLWriter {
	j := &JSONLWriter{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}

	return j
}

func (j *JSONLWriter) Write(up domain.Uplink) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.pattern != nil {
		if err := j.rotate(); err != nil {
			return err
		}
	}
	if err := j.enc.Encode(up); err != nil {
		return fmt.Errorf("encode uplink: %w", err)
	}
	j.written++

	return nil
}

// Consume writes every domain.Uplink received on sub until ctx is done or
// the subscription closes. Write errors are logged and skipped.
func (j *JSONLWriter) Consume(ctx context.Context, sub bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}
			up, ok := msg.(domain.Uplink)
			if !ok {
				continue
			}
			if err := j.Write(up); err != nil {
				j.logger.Warn("write uplink failed", "device", up.DeviceName, "error", err)
			}
		}
	}
}

// Written returns the number of uplinks written so far.
func (j *JSONLWriter) Written() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.written
}

// FileName returns the file currently written to, empty for plain writers.
func (j *JSONLWriter) FileName() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.fileName
}

func (j *JSONLWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.closeFile()
}

func (j *JSONLWriter) rotate() error {
	name := j.pattern.FormatString(j.now())
	if j.file != nil && name == j.fileName {
		return nil
	}

	if err := j.closeFile(); err != nil {
		j.logger.Warn("close output file failed", "file", j.fileName, "error", err)
	}

	cleanName := filepath.Clean(name)
	if dir := filepath.Dir(cleanName); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	// #nosec G304 -- output path pattern is chosen by the operator.
	file, err := os.OpenFile(cleanName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	j.file = file
	j.fileName = name
	j.setOutput(file)
	j.logger.Info("writing uplinks", "file", name)

	return nil
}

func (j *JSONLWriter) setOutput(w io.Writer) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	j.enc = enc
}

func (j *JSONLWriter) closeFile() error {
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	j.enc = nil

	return err
}

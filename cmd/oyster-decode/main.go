// Command oyster-decode decodes Oyster GPS frames given as hex arguments or
// as lines on stdin and prints them as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/skobkin/oystergo/internal/app"
	"github.com/skobkin/oystergo/internal/config"
	"github.com/skobkin/oystergo/internal/domain"
	"github.com/skobkin/oystergo/internal/logging"
	"github.com/skobkin/oystergo/internal/transport"
	"github.com/skobkin/oystergo/internal/uplink"
)

var errDecodeFailed = errors.New("some frames failed to decode")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			slog.Error("oyster-decode", "error", err)
			os.Exit(1)
		}
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("oyster-decode", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	envelope := fs.BoolP("envelope", "e", false, "print the full uplink record instead of the decoded frame")
	pretty := fs.BoolP("pretty", "p", false, "indent JSON output")
	deviceType := fs.String("device-type", config.DefaultDeviceType, "device type written into uplink records")
	integration := fs.String("integration-name", "", "integration name written into uplink attributes")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	version := fs.BoolP("version", "V", false, "print version and exit")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: oyster-decode [flags] [HEX...]\n\nWithout HEX arguments, reads one hex frame or callback envelope per line from stdin.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *version {
		_, _ = fmt.Fprintf(stdout, "oyster-decode %s\n", app.BuildVersionWithDate())
		return nil
	}

	logMgr := logging.NewManager(logging.WithConsole(stderr))
	if err := logMgr.Configure(config.LoggingConfig{Level: *logLevel}, ""); err != nil {
		return err
	}
	defer func() { _ = logMgr.Close() }()
	logger := logMgr.Logger("decode")

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if *pretty {
		enc.SetIndent("", "  ")
	}

	d := &decoder{
		codec:    uplink.NewOysterCodec(domain.UplinkOptions{DeviceType: *deviceType, IntegrationName: *integration}),
		enc:      enc,
		logger:   logger,
		envelope: *envelope,
	}

	if fs.NArg() > 0 {
		for _, arg := range fs.Args() {
			d.decode([]byte(arg))
		}
	} else if err := d.decodeStream(stdin); err != nil {
		return err
	}

	logger.Debug("done", "frames", d.total, "failed", d.failed)
	if d.failed > 0 {
		return fmt.Errorf("%w: %d of %d", errDecodeFailed, d.failed, d.total)
	}

	return nil
}

type decoder struct {
	codec    uplink.Codec
	enc      *json.Encoder
	logger   *slog.Logger
	envelope bool

	total  int
	failed int
}

func (d *decoder) decodeStream(r io.Reader) error {
	ctx := context.Background()
	tr := transport.NewReaderTransport("stdin", r)
	if err := tr.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	for {
		line, err := tr.ReadFrame(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, transport.ErrLineTooLong):
			d.total++
			d.failed++
			d.logger.Warn("skip oversized line", "error", err)
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		default:
			d.decode(line)
		}
	}
}

func (d *decoder) decode(line []byte) {
	if strings.TrimSpace(string(line)) == "" {
		return
	}
	d.total++

	up, err := d.codec.DecodeLine(line)
	if err != nil {
		d.failed++
		d.logger.Warn("decode failed", "input", string(line), "error", err)
		return
	}

	var out any = up.Record
	if d.envelope {
		out = up
	}
	if err := d.enc.Encode(out); err != nil {
		d.failed++
		d.logger.Warn("encode output failed", "error", err)
	}
}

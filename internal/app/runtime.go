package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/skobkin/oystergo/internal/bus"
	"github.com/skobkin/oystergo/internal/config"
	"github.com/skobkin/oystergo/internal/connectors"
	"github.com/skobkin/oystergo/internal/domain"
	"github.com/skobkin/oystergo/internal/logging"
	"github.com/skobkin/oystergo/internal/sink"
	"github.com/skobkin/oystergo/internal/transport"
	"github.com/skobkin/oystergo/internal/uplink"
)

const (
	shutdownTimeout = 5 * time.Second
	busCapacity     = 256
)

// Options tweak Initialize. Zero values use the configured behavior.
type Options struct {
	// Transport replaces the one built from Config.Connection.
	Transport transport.Transport
	// Output replaces the writer resolved from Config.Output.Path.
	Output io.Writer
	// LogConsole replaces stderr as the log console.
	LogConsole io.Writer
}

// Runtime wires transport, uplink service, bus, sink and device store.
type Runtime struct {
	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	Devices    *domain.DeviceStore
	Sink       *sink.JSONLWriter
	Transport  transport.Transport
	Uplinks    *uplink.Service

	drainCancel context.CancelFunc
	consumers   []<-chan struct{}

	statsMu         sync.RWMutex
	connStatus      connectors.ConnectionStatus
	connStatusKnown bool
	decodeFailures  int
	linesRead       int

	stopOnce  sync.Once
	closeOnce sync.Once
}

func Initialize(parent context.Context, paths Paths, cfg config.AppConfig, opts Options) (*Runtime, error) {
	cfg.FillMissingDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var logOpts []logging.Option
	if opts.LogConsole != nil {
		logOpts = append(logOpts, logging.WithConsole(opts.LogConsole))
	}
	logMgr := logging.NewManager(logOpts...)
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	slog.Info("starting oysterd", "version", BuildVersion(), "build_date", BuildDateYMD())

	tr := opts.Transport
	if tr == nil {
		var err error
		tr, err = NewTransportForConnection(cfg.Connection)
		if err != nil {
			_ = logMgr.Close()
			return nil, fmt.Errorf("initialize transport: %w", err)
		}
	}

	var out *sink.JSONLWriter
	sinkOpts := []sink.Option{sink.WithLogger(logMgr.Logger("sink"))}
	if opts.Output != nil {
		out = sink.NewJSONLWriter(opts.Output, sinkOpts...)
	} else {
		var err error
		out, err = sink.OpenJSONLWriter(cfg.Output.Path, sinkOpts...)
		if err != nil {
			_ = logMgr.Close()
			return nil, fmt.Errorf("initialize output: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(parent)
	// Consumers outlive ctx so they can drain what the bus still holds.
	drainCtx, drainCancel := context.WithCancel(context.Background())
	rt := &Runtime{
		Ctx:         ctx,
		cancel:      cancel,
		drainCancel: drainCancel,
		Paths:       paths,
		Config:      cfg,
		LogManager:  logMgr,
		Sink:        out,
		Transport:   tr,
		Devices:     domain.NewDeviceStore(),
	}
	// Replaced by the service's first status event.
	rt.connStatus, rt.connStatusKnown = ConnectionStatusFromConfig(cfg.Connection), true
	if opts.Transport != nil {
		rt.connStatus.TransportName = tr.Name()
		if resolver, ok := tr.(transport.StatusTargetResolver); ok {
			rt.connStatus.Target = resolver.StatusTarget()
		}
	}

	b := bus.New(logMgr.Logger("bus"), bus.WithCapacity(busCapacity))
	rt.Bus = b

	rt.consumers = append(rt.consumers, rt.Devices.Start(drainCtx, b))

	uplinkSub := b.Subscribe(connectors.TopicTelemetry)
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		out.Consume(drainCtx, uplinkSub)
	}()
	rt.consumers = append(rt.consumers, sinkDone)

	eventSub := b.Subscribe(connectors.TopicConnStatus, connectors.TopicDecodeFailed, connectors.TopicRawLine)
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		rt.captureEvents(drainCtx, eventSub)
	}()
	rt.consumers = append(rt.consumers, eventsDone)

	codec := uplink.NewOysterCodec(domain.UplinkOptions{
		DeviceType:      cfg.Output.DeviceType,
		IntegrationName: cfg.Output.IntegrationName,
	})
	rt.Uplinks = uplink.NewService(logMgr.Logger("uplink"), b, tr, codec)
	rt.Uplinks.Start(ctx)

	return rt, nil
}

// Done is closed when the uplink service stops on its own, e.g. when a
// bounded input is exhausted.
func (r *Runtime) Done() <-chan struct{} {
	return r.Uplinks.Done()
}

func (r *Runtime) captureEvents(ctx context.Context, sub bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub:
			if !ok {
				return
			}
			switch ev := raw.(type) {
			case connectors.ConnectionStatus:
				r.statsMu.Lock()
				r.connStatus = ev
				r.connStatusKnown = true
				r.statsMu.Unlock()
			case connectors.DecodeFailure:
				r.statsMu.Lock()
				r.decodeFailures++
				r.statsMu.Unlock()
			case connectors.RawLine:
				r.statsMu.Lock()
				r.linesRead++
				r.statsMu.Unlock()
			}
		}
	}
}

func (r *Runtime) CurrentConnStatus() (connectors.ConnectionStatus, bool) {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()

	return r.connStatus, r.connStatusKnown
}

func (r *Runtime) DecodeFailures() int {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()

	return r.decodeFailures
}

// LinesRead counts every non-blank input line, decoded or not.
func (r *Runtime) LinesRead() int {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()

	return r.linesRead
}

// LogSnapshot writes one log line per known device.
func (r *Runtime) LogSnapshot(logger *slog.Logger) {
	devices := r.Devices.SnapshotSorted()
	attrs := []any{
		"devices", len(devices),
		"lines_read", r.LinesRead(),
		"uplinks_written", r.Sink.Written(),
		"decode_failures", r.DecodeFailures(),
	}
	if name := r.Sink.FileName(); name != "" {
		attrs = append(attrs, "output_file", name)
	}
	logger.Info("device snapshot", attrs...)
	for _, dev := range devices {
		attrs := []any{
			"device", dev.DeviceID,
			"uplinks", dev.Uplinks,
			"last_seen", dev.LastSeenAt.Format(time.RFC3339),
			"signal", dev.SignalQuality.String(),
		}
		if dev.LastFix != nil {
			attrs = append(attrs, "lat", dev.LastFix.Latitude, "lng", dev.LastFix.Longitude)
		}
		if dev.BatteryVolts != nil {
			attrs = append(attrs, "vbat", *dev.BatteryVolts)
		}
		if dev.FirmwareVersion != "" {
			attrs = append(attrs, "firmware", dev.FirmwareVersion)
		}
		logger.Info("device", attrs...)
	}
}

// Stop cancels the uplink service, closes the transport so an idle read
// returns, and waits for bus consumers to drain. Device state, counters and
// logging stay usable until Close.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		if r.Transport != nil {
			if err := r.Transport.Close(); err != nil {
				slog.Warn("close transport failed", "error", err)
			}
		}
		if r.Uplinks != nil {
			select {
			case <-r.Uplinks.Done():
			case <-time.After(shutdownTimeout):
				slog.Warn("uplink service did not stop in time")
			}
		}
		if r.Bus != nil {
			r.Bus.Close()
		}
		timer := time.NewTimer(shutdownTimeout)
		defer timer.Stop()
	drain:
		for _, done := range r.consumers {
			select {
			case <-done:
			case <-timer.C:
				slog.Warn("bus consumers did not drain in time")
				break drain
			}
		}
		r.drainCancel()
	})
}

// Close stops the runtime if needed and releases the sink and log files.
// It is safe to call more than once.
func (r *Runtime) Close() error {
	r.Stop()

	var err error
	r.closeOnce.Do(func() {
		if r.Sink != nil {
			err = r.Sink.Close()
		}
		if r.LogManager != nil {
			_ = r.LogManager.Close()
		}
	})

	return err
}

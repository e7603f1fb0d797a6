package uplink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/skobkin/oystergo/internal/bus"
	"github.com/skobkin/oystergo/internal/connectors"
	"github.com/skobkin/oystergo/internal/transport"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 15 * time.Second
)

// Service pulls lines from a transport, decodes them and publishes the
// results on the bus. Unbounded transports are reconnected with backoff.
type Service struct {
	logger    *slog.Logger
	transport transport.Transport
	codec     Codec
	bus       bus.MessageBus
	done      chan struct{}
}

func NewService(logger *slog.Logger, b bus.MessageBus, tr transport.Transport, codec Codec) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		logger:    logger,
		transport: tr,
		codec:     codec,
		bus:       b,
		done:      make(chan struct{}),
	}
}

func (s *Service) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		s.runConnector(ctx)
	}()
}

// Done is closed once the service stops, either because ctx ended or a
// bounded transport ran out of input.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) runConnector(ctx context.Context) {
	bounded := transport.IsBounded(s.transport)
	backoff := initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			s.publishConnStatus(connectors.ConnectionStateDisconnected, nil)
			return
		}

		s.publishConnStatus(connectors.ConnectionStateConnecting, nil)
		if err := s.transport.Connect(ctx); err != nil {
			s.logger.Error("transport connect failed", "error", err)
			if bounded {
				s.publishConnStatus(connectors.ConnectionStateExhausted, err)
				return
			}
			s.publishConnStatus(connectors.ConnectionStateReconnecting, err)
			if !sleepWithContext(ctx, backoff) {
				s.publishConnStatus(connectors.ConnectionStateDisconnected, nil)
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = initialBackoff
		s.publishConnStatus(connectors.ConnectionStateConnected, nil)
		err := s.runReader(ctx)
		_ = s.transport.Close()

		if bounded && errors.Is(err, io.EOF) {
			s.logger.Info("input exhausted")
			s.publishConnStatus(connectors.ConnectionStateExhausted, nil)
			return
		}
		if ctx.Err() != nil {
			s.publishConnStatus(connectors.ConnectionStateDisconnected, nil)
			return
		}
		if bounded {
			s.logger.Error("read failed", "error", err)
			s.publishConnStatus(connectors.ConnectionStateExhausted, err)
			return
		}
		s.logger.Warn("connection lost", "error", err)
		s.publishConnStatus(connectors.ConnectionStateReconnecting, err)

		if !sleepWithContext(ctx, backoff) {
			s.publishConnStatus(connectors.ConnectionStateDisconnected, nil)
			return
		}
		backoff = nextBackoff(backoff)
	}
}

func (s *Service) runReader(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.transport.ReadFrame(ctx)
		if errors.Is(err, transport.ErrLineTooLong) {
			s.logger.Warn("skip oversized line", "error", err)
			continue
		}
		if err != nil {
			return err
		}

		s.HandleLine(line)
	}
}

// HandleLine decodes one line and publishes the outcome. Failures are logged
// and published, never fatal.
func (s *Service) HandleLine(line []byte) {
	s.bus.Publish(connectors.TopicRawLine, connectors.RawLine{Text: string(line), Len: len(line)})

	up, err := s.codec.DecodeLine(line)
	if err != nil {
		failure := connectors.DecodeFailure{Err: err, Timestamp: time.Now()}
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			failure.Device = decodeErr.Device
			failure.Data = decodeErr.Data
		}
		s.logger.Warn("decode uplink failed", "device", failure.Device, "data", failure.Data, "error", err)
		s.bus.Publish(connectors.TopicDecodeFailed, failure)

		return
	}

	s.logger.Debug("decoded uplink", "device", up.DeviceName, "record", up.Record.Type().String())
	s.bus.Publish(connectors.TopicTelemetry, up)
}

func (s *Service) publishConnStatus(state connectors.ConnectionState, err error) {
	status := connectors.ConnectionStatus{
		State:         state,
		TransportName: s.transport.Name(),
		Timestamp:     time.Now(),
	}
	if resolver, ok := s.transport.(transport.StatusTargetResolver); ok {
		status.Target = resolver.StatusTarget()
	}
	if err != nil {
		status.Err = err.Error()
	}
	s.bus.Publish(connectors.TopicConnStatus, status)
}

func nextBackoff(d time.Duration) time.Duration {
	if d < maxBackoff {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}

	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

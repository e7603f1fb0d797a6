package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skobkin/oystergo/internal/bus"
	"github.com/skobkin/oystergo/internal/connectors"
	"github.com/skobkin/oystergo/internal/oyster"
)

// DeviceStore keeps the latest state of every device seen in memory.
type DeviceStore struct {
	mu      sync.RWMutex
	devices map[string]Device
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		devices: make(map[string]Device),
	}
}

// Start applies telemetry from the bus until ctx is done or the bus closes
// the subscription. The returned channel closes when the loop exits.
func (s *DeviceStore) Start(ctx context.Context, b bus.MessageBus) <-chan struct{} {
	sub := b.Subscribe(connectors.TopicTelemetry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub:
				if !ok {
					return
				}
				up, ok := msg.(Uplink)
				if !ok {
					continue
				}
				s.Apply(up)
			}
		}
	}()

	return done
}

// Apply merges a decoded uplink into the device state. Fields the record
// does not carry keep their previous values.
func (s *DeviceStore) Apply(up Uplink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := up.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	dev := s.devices[up.DeviceName]
	dev.DeviceID = up.DeviceName
	dev.Uplinks++
	if at.After(dev.LastSeenAt) {
		dev.LastSeenAt = at
	}
	if q, ok := up.Attributes["signalQuality"].(string); ok {
		dev.SignalQuality = parseSignalQuality(q)
	}

	switch rec := up.Record.(type) {
	case oyster.PositionRecord:
		inTrip := rec.InTrip
		volts := rec.BatteryVolts
		dev.InTrip = &inTrip
		dev.BatteryVolts = &volts
		dev.LastFixFailed = rec.LastFixFailed
		if rec.HasValidFix() {
			dev.LastFix = &Fix{
				Latitude:       rec.Latitude,
				Longitude:      rec.Longitude,
				HeadingDegrees: rec.HeadingDegrees,
				SpeedKmh:       rec.SpeedKmh,
				At:             at,
			}
		}
	case oyster.DownlinkAckRecord:
		dev.FirmwareVersion = rec.FirmwareVersion.String()
	case oyster.DeviceStatsRecord:
		stats := rec
		dev.Stats = &stats
	}

	s.devices[dev.DeviceID] = dev
}

func (s *DeviceStore) SnapshotSorted() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Device, 0, len(s.devices))
	for _, dev := range s.devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeenAt.Equal(out[j].LastSeenAt) {
			return out[i].DeviceID < out[j].DeviceID
		}
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})

	return out
}

func (s *DeviceStore) Get(deviceID string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dev, ok := s.devices[deviceID]

	return dev, ok
}

func parseSignalQuality(raw string) SignalQuality {
	for _, q := range []SignalQuality{SignalBad, SignalFair, SignalGood} {
		if q.String() == raw {
			return q
		}
	}
	return SignalUnknown
}

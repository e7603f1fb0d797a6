package domain

import (
	"context"
	"testing"
	"time"

	"github.com/skobkin/oystergo/internal/bus"
	"github.com/skobkin/oystergo/internal/connectors"
	"github.com/skobkin/oystergo/internal/oyster"
)

func TestDeviceStoreApply_PreservesFixOnSparseUpdates(t *testing.T) {
	store := NewDeviceStore()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	store.Apply(Uplink{
		DeviceName: "2C321C",
		ReceivedAt: now,
		Record: oyster.PositionRecord{
			InTrip:         true,
			Latitude:       -37.8121324,
			Longitude:      144.9734769,
			HeadingDegrees: 308,
			SpeedKmh:       22,
			BatteryVolts:   5.125,
		},
	})
	store.Apply(Uplink{
		DeviceName: "2C321C",
		ReceivedAt: now.Add(time.Minute),
		Record:     oyster.DeviceStatsRecord{MessageType: oyster.RecordDeviceStats, TripCount: 300},
	})
	store.Apply(Uplink{
		DeviceName: "2C321C",
		ReceivedAt: now.Add(2 * time.Minute),
		Record:     oyster.PositionRecord{LastFixFailed: true, BatteryVolts: 5.1},
	})

	dev, ok := store.Get("2C321C")
	if !ok {
		t.Fatalf("expected device in store")
	}
	if dev.Uplinks != 3 {
		t.Fatalf("expected 3 uplinks, got %d", dev.Uplinks)
	}
	if dev.LastFix == nil || dev.LastFix.Latitude != -37.8121324 {
		t.Fatalf("expected last valid fix preserved, got %+v", dev.LastFix)
	}
	if !dev.LastFixFailed {
		t.Fatalf("expected last fix failure to be recorded")
	}
	if dev.Stats == nil || dev.Stats.TripCount != 300 {
		t.Fatalf("expected stats preserved, got %+v", dev.Stats)
	}
	if dev.BatteryVolts == nil || *dev.BatteryVolts != 5.1 {
		t.Fatalf("expected latest battery voltage, got %v", dev.BatteryVolts)
	}
	if !dev.LastSeenAt.Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("unexpected last seen: %v", dev.LastSeenAt)
	}
}

func TestDeviceStoreSnapshotSorted_NewestFirst(t *testing.T) {
	store := NewDeviceStore()
	now := time.Now()
	store.Apply(Uplink{DeviceName: "A", ReceivedAt: now.Add(-time.Hour), Record: oyster.DownlinkAckRecord{FirmwareVersion: oyster.FirmwareVersion{Major: 1, Minor: 2}}})
	store.Apply(Uplink{DeviceName: "B", ReceivedAt: now, Record: oyster.DeviceStatsRecord{}})

	got := store.SnapshotSorted()
	if len(got) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(got))
	}
	if got[0].DeviceID != "B" || got[1].DeviceID != "A" {
		t.Fatalf("unexpected order: %s, %s", got[0].DeviceID, got[1].DeviceID)
	}
	if got[1].FirmwareVersion != "1.2" {
		t.Fatalf("expected firmware version 1.2, got %q", got[1].FirmwareVersion)
	}
}

func TestDeviceStoreStart_AppliesTelemetryUntilBusCloses(t *testing.T) {
	b := bus.New(nil)
	store := NewDeviceStore()
	done := store.Start(context.Background(), b)

	b.Publish(connectors.TopicTelemetry, "ignored")
	b.Publish(connectors.TopicTelemetry, Uplink{
		DeviceName: "ABC123",
		Record:     oyster.DownlinkAckRecord{MessageType: oyster.RecordDownlinkAck, FirmwareVersion: oyster.FirmwareVersion{Major: 1, Minor: 2}},
	})
	b.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("device store loop did not stop after bus close")
	}

	dev, ok := store.Get("ABC123")
	if !ok {
		t.Fatalf("expected device applied from bus")
	}
	if dev.FirmwareVersion != "1.2" {
		t.Fatalf("expected firmware 1.2, got %q", dev.FirmwareVersion)
	}
}

package domain

import (
	"time"

	"github.com/skobkin/oystergo/internal/oyster"
)

// Fix is the last usable GPS position reported by a device.
type Fix struct {
	Latitude       float64
	Longitude      float64
	HeadingDegrees uint16
	SpeedKmh       uint8
	At             time.Time
}

// Device is the latest known state of one tracker.
type Device struct {
	DeviceID        string
	Uplinks         int
	InTrip          *bool
	LastFix         *Fix
	LastFixFailed   bool
	BatteryVolts    *float64
	FirmwareVersion string
	Stats           *oyster.DeviceStatsRecord
	SignalQuality   SignalQuality
	LastSeenAt      time.Time
}

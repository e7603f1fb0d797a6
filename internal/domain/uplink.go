package domain

import (
	"encoding/hex"
	"time"

	"github.com/skobkin/oystergo/internal/oyster"
)

const (
	DefaultDeviceType = "Oyster GPS"
	// UnknownDevice names frames decoded without a callback envelope.
	UnknownDevice = "unknown"

	dataPreviewLen = 24
)

// UplinkOptions carries integration-level values copied into every uplink.
type UplinkOptions struct {
	DeviceType      string
	IntegrationName string
}

// Uplink is the record sent onward: device identity, attributes, and a flat
// telemetry map merging envelope passthrough fields with decoded record keys.
type Uplink struct {
	DeviceName string         `json:"deviceName"`
	DeviceType string         `json:"deviceType"`
	Attributes map[string]any `json:"attributes"`
	Telemetry  map[string]any `json:"telemetry"`

	Record     oyster.Record `json:"-"`
	ReceivedAt time.Time     `json:"-"`
}

// BuildUplink assembles the outbound record for a decoded frame.
func BuildUplink(env Envelope, rec oyster.Record, opts UplinkOptions) Uplink {
	deviceType := opts.DeviceType
	if deviceType == "" {
		deviceType = DefaultDeviceType
	}
	deviceID := NormalizeDeviceID(env.Device)
	if deviceID == "" {
		deviceID = UnknownDevice
	}

	attrs := map[string]any{
		"integrationName": opts.IntegrationName,
	}
	snr, hasSNR := env.Float("snr")
	rssi, hasRSSI := env.Float("rssi")
	if hasSNR && hasRSSI {
		attrs["signalQuality"] = DetermineSignalQuality(snr, rssi).String()
	}

	telemetry := make(map[string]any, 2+len(env.Passthrough)+11)
	telemetry["deviceId"] = deviceID
	data := env.Data
	if len(data) > dataPreviewLen {
		data = data[:dataPreviewLen]
	}
	telemetry["data"] = data
	for key, v := range env.Passthrough {
		telemetry[key] = v
	}
	for key, v := range TelemetryFields(rec) {
		telemetry[key] = v
	}

	return Uplink{
		DeviceName: deviceID,
		DeviceType: deviceType,
		Attributes: attrs,
		Telemetry:  telemetry,
		Record:     rec,
		ReceivedAt: time.Now(),
	}
}

// TelemetryFields maps a record onto the fixed telemetry keys consumed downstream.
func TelemetryFields(rec oyster.Record) map[string]any {
	switch r := rec.(type) {
	case oyster.PositionRecord:
		return map[string]any{
			"Type":      uint8(r.MessageType),
			"InTrip":    r.InTrip,
			"FixFailed": r.LastFixFailed,
			"Lat":       r.Latitude,
			"Long":      r.Longitude,
			"Heading":   r.HeadingDegrees,
			"Speed":     r.SpeedKmh,
			"Vbat":      r.BatteryVolts,
		}
	case oyster.DownlinkAckRecord:
		return map[string]any{
			"Type":             uint8(r.MessageType),
			"DownlinkAccepted": r.DownlinkAccepted,
			"FirmwareVersion":  r.FirmwareVersion.String(),
			"DownlinkData":     hex.EncodeToString(r.DownlinkData[:]),
		}
	case oyster.DeviceStatsRecord:
		return map[string]any{
			"Type":                      uint8(r.MessageType),
			"UptimeWeeks":               r.UptimeWeeks,
			"TxCount":                   r.TxCount,
			"RxCount":                   r.RxCount,
			"TripCount":                 r.TripCount,
			"GpsSuccessCount":           r.GpsSuccessCount,
			"GpsFailureCount":           r.GpsFailureCount,
			"AverageFixTimeSeconds":     r.AverageFixTimeSeconds,
			"AverageFailTimeSeconds":    r.AverageFailTimeSeconds,
			"AverageFreshenTimeSeconds": r.AverageFreshenTimeSeconds,
			"WakeUpsPerTrip":            r.WakeUpsPerTrip,
		}
	default:
		return nil
	}
}

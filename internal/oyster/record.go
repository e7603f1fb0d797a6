package oyster

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordType is the layout selector stored in the low nibble of the first frame byte.
type RecordType uint8

const (
	RecordPosition    RecordType = 0
	RecordDownlinkAck RecordType = 1
	RecordDeviceStats RecordType = 2
)

// FrameLen is the minimum frame size for every known record type.
const FrameLen = 12

func (t RecordType) String() string {
	switch t {
	case RecordPosition:
		return "position"
	case RecordDownlinkAck:
		return "downlink_ack"
	case RecordDeviceStats:
		return "device_stats"
	default:
		return "record_type_" + strconv.Itoa(int(t))
	}
}

// Record is one of PositionRecord, DownlinkAckRecord or DeviceStatsRecord.
type Record interface {
	Type() RecordType
	isRecord()
}

// PositionRecord is a GPS fix report.
type PositionRecord struct {
	MessageType    RecordType
	InTrip         bool
	LastFixFailed  bool
	Latitude       float64
	Longitude      float64
	HeadingDegrees uint16
	SpeedKmh       uint8
	BatteryVolts   float64
}

// DownlinkAckRecord acknowledges a downlink and reports firmware version.
type DownlinkAckRecord struct {
	MessageType      RecordType
	DownlinkAccepted bool
	FirmwareVersion  FirmwareVersion
	DownlinkData     [8]byte
}

// DeviceStatsRecord carries the packed lifetime counters of the device.
type DeviceStatsRecord struct {
	MessageType               RecordType
	UptimeWeeks               uint32
	TxCount                   uint32
	RxCount                   uint32
	TripCount                 uint32
	GpsSuccessCount           uint32
	GpsFailureCount           uint32
	AverageFixTimeSeconds     uint32
	AverageFailTimeSeconds    uint32
	AverageFreshenTimeSeconds uint32
	WakeUpsPerTrip            uint32
}

func (PositionRecord) Type() RecordType    { return RecordPosition }
func (DownlinkAckRecord) Type() RecordType { return RecordDownlinkAck }
func (DeviceStatsRecord) Type() RecordType { return RecordDeviceStats }

func (PositionRecord) isRecord()    {}
func (DownlinkAckRecord) isRecord() {}
func (DeviceStatsRecord) isRecord() {}

// FirmwareVersion renders as "major.minor".
type FirmwareVersion struct {
	Major uint8
	Minor uint8
}

func (v FirmwareVersion) String() string {
	return strconv.Itoa(int(v.Major)) + "." + strconv.Itoa(int(v.Minor))
}

func (v FirmwareVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *FirmwareVersion) UnmarshalText(text []byte) error {
	var major, minor uint8
	if _, err := fmt.Sscanf(string(text), "%d.%d", &major, &minor); err != nil {
		return fmt.Errorf("parse firmware version %q: %w", string(text), err)
	}
	v.Major, v.Minor = major, minor

	return nil
}

// UnmarshalRecord restores a record serialized with encoding/json, using its
// MessageType tag to pick the concrete type.
func UnmarshalRecord(data []byte) (Record, error) {
	var tag struct {
		MessageType *RecordType
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode record tag: %w", err)
	}
	if tag.MessageType == nil {
		return nil, fmt.Errorf("decode record tag: MessageType is missing")
	}

	switch *tag.MessageType {
	case RecordPosition:
		var rec PositionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", RecordPosition, err)
		}
		return rec, nil
	case RecordDownlinkAck:
		var rec DownlinkAckRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", RecordDownlinkAck, err)
		}
		return rec, nil
	case RecordDeviceStats:
		var rec DeviceStatsRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", RecordDeviceStats, err)
		}
		return rec, nil
	default:
		return nil, &UnknownRecordTypeError{Type: uint8(*tag.MessageType)}
	}
}

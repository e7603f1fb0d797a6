package oyster

import (
	"github.com/golang/geo/s2"
)

const (
	flagInTrip        = 0x10
	flagLastFixFailed = 0x20

	coordinateScale = 1e-7
	batteryStepMV   = 25
)

func parsePosition(buf []byte) (Record, error) {
	if len(buf) < FrameLen {
		return nil, truncated(RecordPosition, FrameLen, len(buf))
	}
	latRaw, err := ReadU32LE(buf, 1)
	if err != nil {
		return nil, err
	}
	lonRaw, err := ReadU32LE(buf, 5)
	if err != nil {
		return nil, err
	}
	flags := buf[0] & 0xF0

	return PositionRecord{
		MessageType:    RecordPosition,
		InTrip:         flags&flagInTrip != 0,
		LastFixFailed:  flags&flagLastFixFailed != 0,
		Latitude:       scaleCoordinate(latRaw),
		Longitude:      scaleCoordinate(lonRaw),
		HeadingDegrees: uint16(buf[9]) * 2,
		SpeedKmh:       buf[10],
		BatteryVolts:   float64(uint32(buf[11])*batteryStepMV) / 1000,
	}, nil
}

// scaleCoordinate reinterprets the raw word as two's complement before scaling.
func scaleCoordinate(raw uint32) float64 {
	return float64(int32(raw)) * coordinateScale
}

// LatLng returns the fix as an s2 point.
func (p PositionRecord) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Latitude, p.Longitude)
}

// HasValidFix reports whether the record holds a usable, in-range coordinate.
// A failed fix or the 0,0 placeholder is not usable.
func (p PositionRecord) HasValidFix() bool {
	if p.LastFixFailed {
		return false
	}
	if p.Latitude == 0 && p.Longitude == 0 {
		return false
	}

	return p.LatLng().IsValid()
}

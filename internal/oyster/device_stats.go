package oyster

// Several counters are transmitted divided by 32.
const countScale = 32

// bitField locates a packed counter inside the stats frame.
type bitField struct {
	offset    int
	bitOffset uint
	bitLength uint
	scale     uint32
}

// Packed statistics layout of the device firmware.
var (
	fieldUptimeWeeks     = bitField{offset: 0, bitOffset: 4, bitLength: 9, scale: 1}
	fieldTxCount         = bitField{offset: 1, bitOffset: 5, bitLength: 11, scale: countScale}
	fieldTripCount       = bitField{offset: 4, bitOffset: 0, bitLength: 13, scale: 1}
	fieldGpsSuccessCount = bitField{offset: 5, bitOffset: 5, bitLength: 10, scale: countScale}
	fieldGpsFailureCount = bitField{offset: 6, bitOffset: 7, bitLength: 8, scale: countScale}
	fieldAvgFixTime      = bitField{offset: 7, bitOffset: 7, bitLength: 9, scale: 1}
	fieldAvgFailTime     = bitField{offset: 9, bitOffset: 0, bitLength: 9, scale: 1}
	fieldAvgFreshenTime  = bitField{offset: 10, bitOffset: 1, bitLength: 8, scale: 1}
)

func (f bitField) read(buf []byte) (uint32, error) {
	v, err := ReadBits16(buf, f.offset, f.bitOffset, f.bitLength)
	if err != nil {
		return 0, err
	}

	return uint32(v) * f.scale, nil
}

func parseDeviceStats(buf []byte) (Record, error) {
	if len(buf) < FrameLen {
		return nil, truncated(RecordDeviceStats, FrameLen, len(buf))
	}

	rec := DeviceStatsRecord{
		MessageType:    RecordDeviceStats,
		RxCount:        uint32(buf[3]) * countScale,
		WakeUpsPerTrip: uint32(buf[11] >> 1),
	}
	fields := []struct {
		dst   *uint32
		field bitField
	}{
		{&rec.UptimeWeeks, fieldUptimeWeeks},
		{&rec.TxCount, fieldTxCount},
		{&rec.TripCount, fieldTripCount},
		{&rec.GpsSuccessCount, fieldGpsSuccessCount},
		{&rec.GpsFailureCount, fieldGpsFailureCount},
		{&rec.AverageFixTimeSeconds, fieldAvgFixTime},
		{&rec.AverageFailTimeSeconds, fieldAvgFailTime},
		{&rec.AverageFreshenTimeSeconds, fieldAvgFreshenTime},
	}
	for _, f := range fields {
		v, err := f.field.read(buf)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	return rec, nil
}

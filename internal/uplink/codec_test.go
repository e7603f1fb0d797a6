package uplink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skobkin/oystergo/internal/domain"
	"github.com/skobkin/oystergo/internal/oyster"
)

func TestOysterCodecDecodesEnvelope(t *testing.T) {
	codec := NewOysterCodec(domain.UplinkOptions{IntegrationName: "fleet"})

	up, err := codec.DecodeLine([]byte(`{"device":"1a2b3c","data":"10b67dcc0006efda3d9816c2","snr":"22.5","rssi":"-110","seqNumber":42}`))
	require.NoError(t, err)

	assert.Equal(t, "1A2B3C", up.DeviceName)
	assert.Equal(t, domain.DefaultDeviceType, up.DeviceType)
	assert.Equal(t, "fleet", up.Attributes["integrationName"])
	assert.Equal(t, "good", up.Attributes["signalQuality"])
	assert.Equal(t, "10b67dcc0006efda3d9816c2", up.Telemetry["data"])

	pos, ok := up.Record.(oyster.PositionRecord)
	require.True(t, ok, "expected position record, got %T", up.Record)
	assert.InDelta(t, 1.3401526, pos.Latitude, 1e-9)
	assert.InDelta(t, 103.7758214, pos.Longitude, 1e-9)
}

func TestOysterCodecDecodesBareHex(t *testing.T) {
	codec := NewOysterCodec(domain.UplinkOptions{})

	up, err := codec.DecodeLine([]byte("  02a315072c8144931e5a960b  "))
	require.NoError(t, err)

	assert.Equal(t, domain.UnknownDevice, up.DeviceName)
	stats, ok := up.Record.(oyster.DeviceStatsRecord)
	require.True(t, ok, "expected stats record, got %T", up.Record)
	assert.Equal(t, uint32(300), stats.TripCount)
	assert.NotContains(t, up.Attributes, "signalQuality")
}

func TestOysterCodecReportsFailures(t *testing.T) {
	codec := NewOysterCodec(domain.UplinkOptions{})

	tests := []struct {
		name   string
		line   string
		device string
		target error
	}{
		{name: "unknown record", line: `{"device":"ABC","data":"0f00"}`, device: "ABC", target: oyster.ErrUnknownRecordType},
		{name: "truncated", line: "00b67d", device: domain.UnknownDevice, target: oyster.ErrTruncatedFrame},
		{name: "invalid hex", line: "zz", device: domain.UnknownDevice, target: oyster.ErrInvalidHex},
		{name: "envelope without data", line: `{"device":"ABC"}`, device: domain.UnknownDevice, target: domain.ErrEnvelopeData},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.DecodeLine([]byte(tc.line))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tc.device, decodeErr.Device)
		})
	}
}

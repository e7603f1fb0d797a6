package oyster

// DecodeFrame decodes a hex-encoded frame into its record.
func DecodeFrame(hexPayload string) (Record, error) {
	buf, err := HexToBytes(hexPayload)
	if err != nil {
		return nil, err
	}

	return DecodeBytes(buf)
}

// DecodeBytes dispatches on the low nibble of buf[0]. buf is only read.
func DecodeBytes(buf []byte) (Record, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyFrame
	}

	switch kind := RecordType(buf[0] & 0x0F); kind {
	case RecordPosition:
		return parsePosition(buf)
	case RecordDownlinkAck:
		return parseDownlinkAck(buf)
	case RecordDeviceStats:
		return parseDeviceStats(buf)
	default:
		return nil, &UnknownRecordTypeError{Type: uint8(kind)}
	}
}

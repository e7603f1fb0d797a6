package oyster

const flagDownlinkAccepted = 0x10

func parseDownlinkAck(buf []byte) (Record, error) {
	if len(buf) < FrameLen {
		return nil, truncated(RecordDownlinkAck, FrameLen, len(buf))
	}
	flags := buf[0] & 0xF0
	rec := DownlinkAckRecord{
		MessageType:      RecordDownlinkAck,
		DownlinkAccepted: flags&flagDownlinkAccepted != 0,
		FirmwareVersion:  FirmwareVersion{Major: buf[2], Minor: buf[3]},
	}
	copy(rec.DownlinkData[:], buf[4:12])

	return rec, nil
}

package connectors

const (
	TopicConnStatus   = "conn.status"
	TopicRawLine      = "raw.line"
	TopicTelemetry    = "uplink.telemetry"
	TopicDecodeFailed = "uplink.decode_failed"
)

package connectors

import "time"

// ConnectionState describes the ingest transport lifecycle.
type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateReconnecting ConnectionState = "reconnecting"
	ConnectionStateExhausted    ConnectionState = "exhausted"
)

// ConnectionStatus is a bus event snapshot of current transport status.
type ConnectionStatus struct {
	State         ConnectionState
	Err           string
	TransportName string
	Target        string
	Timestamp     time.Time
}

// RawLine carries one received line for diagnostics.
type RawLine struct {
	Text string
	Len  int
}

// DecodeFailure reports a line that produced no uplink.
type DecodeFailure struct {
	Device    string
	Data      string
	Err       error
	Timestamp time.Time
}

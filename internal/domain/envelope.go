package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PassthroughKeys are callback fields forwarded into telemetry unchanged.
var PassthroughKeys = []string{"time", "snr", "station", "avgSnr", "lat", "lng", "rssi", "seqNumber"}

var (
	ErrEnvelopeDevice = errors.New("envelope device is required")
	ErrEnvelopeData   = errors.New("envelope data is required")
)

// Envelope is the network callback object wrapping one hex frame.
type Envelope struct {
	Device      string
	Data        string
	Passthrough map[string]json.RawMessage
}

// ParseEnvelope decodes a callback JSON object. Passthrough values are kept
// as raw JSON so strings stay strings and numbers stay numbers.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope json: %w", err)
	}

	env := Envelope{Passthrough: make(map[string]json.RawMessage, len(PassthroughKeys))}
	var err error
	if env.Device, err = stringField(fields, "device"); err != nil {
		return Envelope{}, err
	}
	if env.Device = strings.TrimSpace(env.Device); env.Device == "" {
		return Envelope{}, ErrEnvelopeDevice
	}
	if env.Data, err = stringField(fields, "data"); err != nil {
		return Envelope{}, err
	}
	if env.Data = strings.TrimSpace(env.Data); env.Data == "" {
		return Envelope{}, ErrEnvelopeData
	}
	for _, key := range PassthroughKeys {
		if v, ok := fields[key]; ok {
			env.Passthrough[key] = v
		}
	}

	return env, nil
}

// Float reads a passthrough value sent either as a JSON number or a numeric string.
func (e Envelope) Float(key string) (float64, bool) {
	raw, ok := e.Passthrough[key]
	if !ok {
		return 0, false
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}

	return num, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("envelope %s must be a string: %w", key, err)
	}

	return s, nil
}

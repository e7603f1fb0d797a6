package domain

// Thresholds follow the Sigfox backend link quality indicator.
const (
	SNRGood  = 20.0
	SNRFair  = 10.0
	RSSIGood = -122.0
	RSSIFair = -135.0
)

type SignalQuality int

const (
	SignalUnknown SignalQuality = iota
	SignalBad
	SignalFair
	SignalGood
)

func (q SignalQuality) String() string {
	switch q {
	case SignalBad:
		return "bad"
	case SignalFair:
		return "fair"
	case SignalGood:
		return "good"
	default:
		return "unknown"
	}
}

// DetermineSignalQuality classifies a received uplink. A zero RSSI means the
// station did not report it.
func DetermineSignalQuality(snr, rssi float64) SignalQuality {
	if rssi == 0 {
		return SignalUnknown
	}
	if snr >= SNRGood && rssi >= RSSIGood {
		return SignalGood
	}
	if snr >= SNRFair && rssi >= RSSIFair {
		return SignalFair
	}
	return SignalBad
}

package normalizer

import (
	"strings"

	"github.com/vantrack/fleetsync-go/internal/models"
)

// accStatusBit is the ignition (ACC) flag inside the protocol status bit field
const accStatusBit = 0

// Per-signal confidence levels; the bit field is authoritative, the status
// string depends on firmware wording, speed inference is circumstantial
const (
	confidenceBitField    = 0.95
	confidenceStringMatch = 0.75
	confidenceSpeedOn     = 0.50
	confidenceSpeedOff    = 0.40
	multiSignalBoost      = 0.04
	maxConfidence         = 0.99
)

// ignitionSignal is one extractor's verdict
type ignitionSignal struct {
	value      bool
	confidence float64
	method     string
}

// DetectIgnition derives the ignition boolean from whichever signals the raw
// record carries. Returns (nil, 0, unknown) when no signal is available
// rather than guessing.
func DetectIgnition(raw models.RawRecord, speedKmh float64) (*bool, float64, string) {
	var signals []ignitionSignal

	if s := bitFieldSignal(raw); s != nil {
		signals = append(signals, *s)
	}
	if s := statusTextSignal(raw.StatusText); s != nil {
		signals = append(signals, *s)
	}
	if s := speedSignal(raw, speedKmh); s != nil {
		signals = append(signals, *s)
	}

	if len(signals) == 0 {
		return nil, 0, models.IgnitionMethodUnknown
	}

	best := signals[0]
	agreeing := 1
	for _, s := range signals[1:] {
		if s.confidence > best.confidence {
			best = s
		}
	}
	for _, s := range signals {
		if s.method != best.method && s.value == best.value {
			agreeing++
		}
	}

	value := best.value
	if agreeing >= 2 {
		confidence := best.confidence + multiSignalBoost
		if confidence > maxConfidence {
			confidence = maxConfidence
		}
		return &value, confidence, models.IgnitionMethodMultiSignal
	}

	return &value, best.confidence, best.method
}

// bitFieldSignal reads the ACC bit from the protocol status field
func bitFieldSignal(raw models.RawRecord) *ignitionSignal {
	if raw.StatusBits == nil {
		return nil
	}
	on := *raw.StatusBits&(1<<accStatusBit) != 0
	return &ignitionSignal{value: on, confidence: confidenceBitField, method: models.IgnitionMethodBitField}
}

// onPatterns and offPatterns cover the firmware wordings seen in the field,
// including the Chinese-firmware variants
var onPatterns = []string{"ACC ON", "ACCON", "IGNITION ON", "KEY ON", "ACC开"}
var offPatterns = []string{"ACC OFF", "ACCOFF", "IGNITION OFF", "KEY OFF", "ACC关"}

// statusTextSignal pattern-matches the free-text status string
func statusTextSignal(text string) *ignitionSignal {
	if text == "" {
		return nil
	}
	upper := strings.ToUpper(text)

	// Check OFF first so wordings like "POWER CUT, ACC OFF" never match an ON pattern
	for _, p := range offPatterns {
		if strings.Contains(upper, p) {
			return &ignitionSignal{value: false, confidence: confidenceStringMatch, method: models.IgnitionMethodStringMatch}
		}
	}
	for _, p := range onPatterns {
		if strings.Contains(upper, p) {
			return &ignitionSignal{value: true, confidence: confidenceStringMatch, method: models.IgnitionMethodStringMatch}
		}
	}
	return nil
}

// speedSignal infers ignition from movement; weakest signal, used alone only
// when the record carries nothing better
func speedSignal(raw models.RawRecord, speedKmh float64) *ignitionSignal {
	if speedKmh >= MinMovementSpeedKmh {
		return &ignitionSignal{value: true, confidence: confidenceSpeedOn, method: models.IgnitionMethodSpeed}
	}
	if raw.Moving != nil {
		if *raw.Moving {
			return &ignitionSignal{value: true, confidence: confidenceSpeedOn, method: models.IgnitionMethodSpeed}
		}
		if speedKmh == 0 {
			return &ignitionSignal{value: false, confidence: confidenceSpeedOff, method: models.IgnitionMethodSpeed}
		}
	}
	return nil
}

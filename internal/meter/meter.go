// Package meter defines the output types shared between the SML
// decoding pipeline and everything downstream of it: the visitor that
// extracts measurements, the reader that owns one meter's connection
// and publishes its snapshots, and the System that caches the latest
// snapshot per meter.
package meter

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nugget/smldaq/internal/config"
)

// OBISBytes decodes a position's hex-encoded OBIS code (e.g.
// "0100010800ff") into the 6 raw bytes an SmlListEntry's objName
// field carries on the wire.
func OBISBytes(p config.PositionConfig) ([6]byte, error) {
	var out [6]byte
	raw, err := hex.DecodeString(p.Obis)
	if err != nil {
		return out, fmt.Errorf("meter: invalid obis code %q: %w", p.Obis, err)
	}
	if len(raw) != 6 {
		return out, fmt.Errorf("meter: obis code %q must decode to 6 bytes, got %d", p.Obis, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// Measurement is one decoded OBIS value, scaled and unit-annotated.
type Measurement struct {
	OBIS  string
	Label string
	Value float64
	Unit  string
	Raw   bool
	// RawOctet carries the value verbatim for OBIS entries whose
	// payload is a status string rather than a scaled number (Raw is
	// true in that case and Value/Unit are not meaningful).
	RawOctet []byte
	// Status is the entry's SML status word, 0 if the field was
	// optional and absent on the wire.
	Status uint64
}

// Snapshot is the full set of measurements decoded from one meter's
// GetListResponse, along with when smldaq observed it.
type Snapshot struct {
	MeterIndex   uint32
	MeterName    string
	Timestamp    time.Time
	Measurements []Measurement
	// ObservedOBIS holds the hex-encoded OBIS code of every list entry
	// seen in the telegram, configured or not, for debugging which
	// identifiers a meter actually reports.
	ObservedOBIS []string
}

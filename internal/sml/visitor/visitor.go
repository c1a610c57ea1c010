// Package visitor walks a completed SML parse tree and extracts the
// OBIS measurements a meter's configuration says matter, turning the
// grammar's node types into a flat meter.Snapshot.
package visitor

import (
	"bytes"
	"encoding/hex"
	"math"
	"time"

	"github.com/nugget/smldaq/internal/config"
	"github.com/nugget/smldaq/internal/meter"
	"github.com/nugget/smldaq/internal/sml/lexer"
	"github.com/nugget/smldaq/internal/sml/parser"
)

// Extract walks file looking for SmlListEntry nodes whose objName
// matches one of positions, and returns a Snapshot built from the
// matches it finds. Positions not present in the telegram are simply
// absent from the result; smldaq does not treat a missing position as
// an error, since not every meter reports every configured value on
// every cycle.
func Extract(file *parser.SmlFile, meterIndex uint32, meterName string, positions []config.PositionConfig) (meter.Snapshot, error) {
	codes := make(map[[6]byte]config.PositionConfig, len(positions))
	for _, p := range positions {
		b, err := meter.OBISBytes(p)
		if err != nil {
			return meter.Snapshot{}, err
		}
		codes[b] = p
	}

	snap := meter.Snapshot{MeterIndex: meterIndex, MeterName: meterName}
	seenOBIS := make(map[string]struct{}, len(positions))

	parser.Walk(file, func(n parser.Node) {
		entry, ok := n.(*parser.SmlListEntry)
		if !ok {
			return
		}
		var obis [6]byte
		copy(obis[:], entry.ObjName.Value)

		hexOBIS := hex.EncodeToString(obis[:])
		if _, dup := seenOBIS[hexOBIS]; !dup {
			seenOBIS[hexOBIS] = struct{}{}
			snap.ObservedOBIS = append(snap.ObservedOBIS, hexOBIS)
		}

		pos, known := codes[obis]
		if !known {
			return
		}
		snap.Measurements = append(snap.Measurements, measurementFor(pos, entry))
		if len(snap.Measurements) == 1 {
			snap.Timestamp = time.Now()
		}
	})

	return snap, nil
}

// measurementFor converts one matched SmlListEntry into a
// meter.Measurement, dispatching on the position's configured expected
// type rather than the wire-observed type, applying the decimal scaler
// to numbers and resolving the unit code via the OBIS unit table.
func measurementFor(pos config.PositionConfig, entry *parser.SmlListEntry) meter.Measurement {
	m := meter.Measurement{OBIS: pos.Obis, Label: pos.Label, Status: statusFor(entry.Status)}

	switch pos.Type {
	case config.PositionNumber:
		raw := entry.RawValue.AsDouble()
		scaler := entry.Scaler.Value
		m.Value = raw * math.Pow(10, float64(scaler))
	case config.PositionString:
		m.Raw = true
		m.RawOctet = bytes.Clone(entry.RawValue.Octet)
	default:
		// PositionNull and any unrecognized type: leave value and
		// string fields at their zero value.
	}

	if !entry.Unit.Absent {
		m.Unit = UnitFor(entry.Unit.Value)
	}
	return m
}

// statusFor returns an entry's status word, 0 if the field was
// optional and absent on the wire.
func statusFor(status *parser.Value) uint64 {
	switch status.Type {
	case lexer.UnsignedInt:
		return status.Uint64
	case lexer.SignedInt:
		return uint64(status.Int64)
	default:
		return 0
	}
}

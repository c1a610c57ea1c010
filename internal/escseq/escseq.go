// Package escseq recognizes the three ESC sequences that frame an SML
// telegram on the wire: ESC-Start, ESC-Stop, and escaped-ESC, and
// verifies the CRC16 that protects the whole SML file.
package escseq

import "github.com/nugget/smldaq/internal/crc16"

const (
	byteESC   byte = 0x1B
	byteStart byte = 0x01
	byteStop  byte = 0x1A
)

// Code is the outcome of analyzing one byte.
type Code int

const (
	// ConditionWaiting means nothing meaningful has been seen; still
	// waiting for the start of a recognizable sequence.
	ConditionWaiting Code = iota
	// ConditionAnalysing means a possible sequence has been seen and
	// more bytes are needed before a result is available.
	ConditionAnalysing
	// ResultStart means a complete ESC-Start sequence was recognized.
	ResultStart
	// ResultStop means a complete ESC-Stop sequence was recognized,
	// including a CRC16 match. Call LastFileEnd for fill-byte/CRC
	// detail.
	ResultStop
	// ResultEscEsc is returned for each of bytes 5-8 of an 8-ESC
	// sequence, which stands for 4 literal ESC data bytes: the first 4
	// ESC bytes were already returned as data while analysing, so the
	// caller does not consume these 4 as data.
	ResultEscEsc
	// ResultError means the byte stream does not match any recognized
	// sequence, or the ESC-Stop CRC16 did not match.
	ResultError
)

// FileEnd carries the extra detail an ESC-Stop sequence encodes: the
// CRC16 transmitted on the wire, the CRC16 this analyzer computed, and
// the fill-byte count.
type FileEnd struct {
	CRCStream     uint16 // CRC16 as transmitted in the ESC-Stop sequence
	CRCCalculated uint16 // CRC16 as computed over the received bytes
	FillBytes     byte
}

type state int

const (
	stateIdle state = iota
	stateWaitFor2ndEsc
	stateWaitFor3rdEsc
	stateWaitFor4thEsc
	state4InitialEscRead
	stateWaitFor2ndStart
	stateWaitFor3rdStart
	stateWaitFor4thStart
	stateWaitForFillByte
	stateWaitForCrc16Byte1
	stateWaitForCrc16Byte2
	stateWaitFor2ndEscEsc
	stateWaitFor3rdEscEsc
	stateWaitFor4thEscEsc
)

// Analyzer recognizes ESC-Start, ESC-Stop and escaped-ESC sequences
// across a sequence of pushed bytes, accumulating the SML file's
// CRC16 as it goes.
type Analyzer struct {
	state   state
	crc     *crc16.CRC16
	fileEnd FileEnd
}

// New returns an Analyzer in the idle (waiting) state.
func New() *Analyzer {
	return &Analyzer{state: stateIdle, crc: crc16.NewSmlStart()}
}

// Reset returns the analyzer to its initial idle state.
func (a *Analyzer) Reset() {
	a.state = stateIdle
}

// LastFileEnd returns the ESC-Stop detail captured by the most recent
// ResultStop or ResultError outcome produced while resolving a stop
// sequence.
func (a *Analyzer) LastFileEnd() FileEnd {
	return a.fileEnd
}

// Analyse feeds one byte into the state machine and returns the
// resulting Code. The CRC16 calculator runs continuously across every
// byte pushed in; Start/Stop of the accumulation window is triggered
// internally at the appropriate sequence boundaries.
func (a *Analyzer) Analyse(b byte) Code {
	a.crc.Update(b)

	switch a.state {
	case stateIdle:
		if b == byteESC {
			a.state = stateWaitFor2ndEsc
			return ConditionAnalysing
		}
		return ConditionWaiting

	case stateWaitFor2ndEsc:
		return a.simpleEscStep(b, stateWaitFor3rdEsc)
	case stateWaitFor3rdEsc:
		return a.simpleEscStep(b, stateWaitFor4thEsc)
	case stateWaitFor4thEsc:
		return a.simpleEscStep(b, state4InitialEscRead)

	case state4InitialEscRead:
		switch b {
		case byteStart:
			a.state = stateWaitFor2ndStart
			return ConditionAnalysing
		case byteStop:
			a.state = stateWaitForFillByte
			return ConditionAnalysing
		case byteESC:
			a.state = stateWaitFor2ndEscEsc
			return ResultEscEsc
		default:
			a.state = stateIdle
			return ResultError
		}

	case stateWaitFor2ndStart:
		return a.simpleStartStep(b, stateWaitFor3rdStart)
	case stateWaitFor3rdStart:
		return a.simpleStartStep(b, stateWaitFor4thStart)

	case stateWaitFor4thStart:
		a.state = stateIdle
		if b == byteStart {
			a.crc.Start()
			return ResultStart
		}
		return ResultError

	case stateWaitForFillByte:
		a.fileEnd.FillBytes = b
		a.crc.Stop()
		a.state = stateWaitForCrc16Byte1
		return ConditionAnalysing

	case stateWaitForCrc16Byte1:
		a.fileEnd.CRCStream = uint16(b)
		a.state = stateWaitForCrc16Byte2
		return ConditionAnalysing

	case stateWaitForCrc16Byte2:
		a.fileEnd.CRCStream = (a.fileEnd.CRCStream<<8)&0xff00 | uint16(b)
		a.fileEnd.CRCCalculated = a.crc.Result()
		a.state = stateIdle
		if a.fileEnd.CRCStream == a.fileEnd.CRCCalculated {
			return ResultStop
		}
		return ResultError

	case stateWaitFor2ndEscEsc:
		return a.simpleEscEscStep(b, stateWaitFor3rdEscEsc)
	case stateWaitFor3rdEscEsc:
		return a.simpleEscEscStep(b, stateWaitFor4thEscEsc)
	case stateWaitFor4thEscEsc:
		return a.simpleEscEscStep(b, stateIdle)

	default:
		a.state = stateIdle
		return ResultError
	}
}

// simpleEscStep matches b against an expected literal ESC byte while
// scanning the 4-ESC lead-in shared by every recognized sequence.
func (a *Analyzer) simpleEscStep(b byte, next state) Code {
	if b == byteESC {
		a.state = next
		return ConditionAnalysing
	}
	a.state = stateIdle
	return ConditionWaiting
}

// simpleStartStep matches b against an expected literal 0x01 while
// scanning the tail of an ESC-Start sequence.
func (a *Analyzer) simpleStartStep(b byte, next state) Code {
	if b == byteStart {
		a.state = next
		return ConditionAnalysing
	}
	a.state = stateIdle
	return ResultError
}

// simpleEscEscStep matches b against an expected literal ESC while
// scanning the tail of an escaped-ESC sequence.
func (a *Analyzer) simpleEscEscStep(b byte, next state) Code {
	if b == byteESC {
		a.state = next
		return ResultEscEsc
	}
	a.state = stateIdle
	return ResultError
}

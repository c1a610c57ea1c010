package lexer

import "github.com/nugget/smldaq/internal/escseq"

type state int

const (
	stateIdle state = iota
	stateAnalyzeTL
	stateReadOctet
	stateReadMultiByteOctet
	stateReadBoolean
	stateReadSignedInt
	stateReadUnsignedInt
	stateReadMultiByteList
)

// Lexer is a push scanner: bytes are fed in one at a time via Feed,
// and a Token is returned once enough bytes have been seen to
// determine one. Most calls to Feed return a NotYetDetected token.
type Lexer struct {
	esc   *escseq.Analyzer
	state state

	readLoopCounter int
	octet           []byte

	isFirstSignedByte bool
	int64Value        int64
	uint64Value       uint64

	multiByteLength      int
	multiByteTLReadCount int
}

// New returns a Lexer waiting for the start of an SML file.
func New() *Lexer {
	return &Lexer{esc: escseq.New(), state: stateIdle}
}

// Reset returns the lexer to its initial state, as if newly
// constructed, discarding any partially-scanned token.
func (l *Lexer) Reset() {
	l.esc.Reset()
	l.state = stateIdle
}

// Feed pushes one byte through the lexer and returns the resulting
// Token. Most bytes produce a Token{Type: NotYetDetected}; callers
// should keep feeding bytes until Type is something else.
func (l *Lexer) Feed(b byte) Token {
	code := l.esc.Analyse(b)

	switch l.state {
	case stateIdle:
		return l.stepIdle(code)
	case stateAnalyzeTL:
		return l.stepAnalyzeTL(b, code)
	case stateReadOctet:
		return l.stepReadOctet(b, code)
	case stateReadMultiByteOctet:
		return l.stepReadMultiByteOctet(b)
	case stateReadBoolean:
		return l.stepReadBoolean(b)
	case stateReadSignedInt:
		return l.stepReadSignedInt(b, code)
	case stateReadUnsignedInt:
		return l.stepReadUnsignedInt(b, code)
	case stateReadMultiByteList:
		return l.stepReadMultiByteList(b)
	default:
		l.state = stateIdle
		return Token{Type: Error}
	}
}

// stepIdle waits for escseq to recognize the ESC-Start sequence; every
// other byte is swallowed without producing a token.
func (l *Lexer) stepIdle(code escseq.Code) Token {
	if code == escseq.ResultStart {
		l.state = stateAnalyzeTL
		return Token{Type: StartOfFile}
	}
	return Token{Type: NotYetDetected}
}

// stepAnalyzeTL reads a TL byte when escseq is idle (ESC_CONDITION_WAITING
// in the original terminology), recognizes an ESC-Stop as the end of
// the file, and treats anything else surfacing here as a protocol
// error: a TL byte is expected and nothing else is legal at this
// point in the grammar.
func (l *Lexer) stepAnalyzeTL(b byte, code escseq.Code) Token {
	switch code {
	case escseq.ConditionWaiting:
		entry := tlTable[b]
		l.readLoopCounter = entry.length
		l.state = entry.handler(l)
		return Token{Type: entry.typ, Length: entry.length}
	case escseq.ResultStop:
		fe := l.esc.LastFileEnd()
		l.state = stateIdle
		return Token{Type: EndOfFile, FileEnd: fe}
	case escseq.ConditionAnalysing:
		return Token{Type: NotYetDetected}
	default:
		l.state = stateIdle
		return Token{Type: Error}
	}
}

// stepReadOctet accumulates the net data bytes of an Octet. A byte
// carrying an ESC-ESC result is the tail of an escaped-ESC sequence
// and contributes nothing further: the four literal ESC bytes it
// represents were already appended while escseq was still analysing
// the lead-in.
func (l *Lexer) stepReadOctet(b byte, code escseq.Code) Token {
	if code != escseq.ResultEscEsc {
		l.octet = append(l.octet, b)
		l.readLoopCounter--
		if l.readLoopCounter == 0 {
			l.state = stateAnalyzeTL
			out := make([]byte, len(l.octet))
			copy(out, l.octet)
			return Token{Type: Octet, Length: len(out), Octet: out}
		}
	}
	return Token{Type: NotYetDetected}
}

// stepReadMultiByteOctet follows the 0x8x TL-byte continuation chain
// that encodes an Octet length too large for one TL byte's low
// nibble: each continuation byte shifts the accumulated length left
// 4 bits and ORs in its own low nibble; a byte whose high nibble is
// zero ends the chain and is the ordinary Octet TL byte that starts
// the data itself.
func (l *Lexer) stepReadMultiByteOctet(b byte) Token {
	switch {
	case b&0xF0 == 0:
		l.readLoopCounter = l.multiByteLength - l.multiByteTLReadCount
		l.octet = l.octet[:0]
		l.state = stateReadOctet
		return Token{Type: NotYetDetected}
	case b&0x80 == 0x80:
		l.multiByteLength = (l.multiByteLength << 4) + int(b&0x0F)
		l.multiByteTLReadCount++
		return Token{Type: NotYetDetected}
	default:
		l.state = stateIdle
		return Token{Type: Error}
	}
}

// stepReadMultiByteList mirrors stepReadMultiByteOctet for the 0xFx
// continuation chain, but a list carries no inline data of its own:
// once the chain ends the List token is already complete and the
// length it carries is how many entries the parser should expect.
func (l *Lexer) stepReadMultiByteList(b byte) Token {
	switch {
	case b&0xF0 == 0:
		length := l.multiByteLength - l.multiByteTLReadCount
		l.state = stateAnalyzeTL
		return Token{Type: List, Length: length}
	case b&0x80 == 0x80:
		l.multiByteLength = (l.multiByteLength << 4) + int(b&0x0F)
		l.multiByteTLReadCount++
		return Token{Type: NotYetDetected}
	default:
		l.state = stateIdle
		return Token{Type: Error}
	}
}

func (l *Lexer) stepReadBoolean(b byte) Token {
	l.state = stateAnalyzeTL
	return Token{Type: Boolean, Length: 1, Bool: b != 0}
}

// stepReadSignedInt reassembles a big-endian two's-complement integer
// one byte at a time, sign-extending from the first byte received.
func (l *Lexer) stepReadSignedInt(b byte, code escseq.Code) Token {
	if code != escseq.ResultEscEsc {
		if l.isFirstSignedByte {
			l.int64Value = int64(int8(b))
			l.isFirstSignedByte = false
		} else {
			l.int64Value = l.int64Value*256 + int64(b)
		}
		l.readLoopCounter--
		if l.readLoopCounter == 0 {
			l.state = stateAnalyzeTL
			return Token{Type: SignedInt, Int64: l.int64Value}
		}
	}
	return Token{Type: NotYetDetected}
}

// stepReadUnsignedInt reassembles a big-endian unsigned integer one
// byte at a time.
func (l *Lexer) stepReadUnsignedInt(b byte, code escseq.Code) Token {
	if code != escseq.ResultEscEsc {
		l.uint64Value = l.uint64Value<<8 | uint64(b)
		l.readLoopCounter--
		if l.readLoopCounter == 0 {
			l.state = stateAnalyzeTL
			return Token{Type: UnsignedInt, Uint64: l.uint64Value}
		}
	}
	return Token{Type: NotYetDetected}
}

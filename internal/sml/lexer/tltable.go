package lexer

// tlEntry is one row of the TL byte jump table: the token type and
// length a TL byte denotes, and the handler that decides the next
// lexer state.
type tlEntry struct {
	typ     Type
	length  int
	handler func(l *Lexer) state
}

// tlTable maps every possible TL byte value (0x00-0xFF) to its type,
// length and next-state handler, mirroring the SML type-length field
// encoding byte-for-byte: the octet, signed-integer, unsigned-integer
// and list ranges each pack a length into the byte's low nibble, the
// 0x8x range continues a multi-byte octet length, and the 0xFx range
// continues a multi-byte list length. Everything else is invalid.
var tlTable [256]tlEntry

func init() {
	for i := range tlTable {
		tlTable[i] = tlEntry{typ: Error, length: 0, handler: handleReset}
	}

	tlTable[0x00] = tlEntry{typ: EndOfMessage, length: 0, handler: handleBasic}
	tlTable[0x01] = tlEntry{typ: Optional, length: 1, handler: handleOptional}

	for i := 0x02; i <= 0x0F; i++ {
		tlTable[i] = tlEntry{typ: NotYetDetected, length: i - 1, handler: handleOctet}
	}

	tlTable[0x42] = tlEntry{typ: NotYetDetected, length: 1, handler: handleBoolean}

	for i := 0x52; i <= 0x59; i++ {
		tlTable[i] = tlEntry{typ: NotYetDetected, length: i - 0x51, handler: handleSignedInt}
	}

	for i := 0x62; i <= 0x69; i++ {
		tlTable[i] = tlEntry{typ: NotYetDetected, length: i - 0x61, handler: handleUnsignedInt}
	}

	for i := 0x71; i <= 0x7F; i++ {
		tlTable[i] = tlEntry{typ: List, length: i - 0x70, handler: handleBasic}
	}

	for i := 0x80; i <= 0x8F; i++ {
		tlTable[i] = tlEntry{typ: NotYetDetected, length: i - 0x80, handler: handleMultiByteOctet}
	}

	for i := 0xF0; i <= 0xFF; i++ {
		tlTable[i] = tlEntry{typ: NotYetDetected, length: i - 0xF0, handler: handleMultiByteList}
	}
}

func handleBasic(l *Lexer) state    { return stateAnalyzeTL }
func handleOptional(l *Lexer) state { return stateAnalyzeTL }
func handleReset(l *Lexer) state    { return stateIdle }

func handleOctet(l *Lexer) state {
	l.octet = l.octet[:0]
	return stateReadOctet
}

func handleBoolean(l *Lexer) state { return stateReadBoolean }

func handleSignedInt(l *Lexer) state {
	l.isFirstSignedByte = true
	return stateReadSignedInt
}

func handleUnsignedInt(l *Lexer) state {
	l.uint64Value = 0
	return stateReadUnsignedInt
}

func handleMultiByteOctet(l *Lexer) state {
	l.multiByteTLReadCount = 1
	l.multiByteLength = l.readLoopCounter
	return stateReadMultiByteOctet
}

func handleMultiByteList(l *Lexer) state {
	l.multiByteTLReadCount = 1
	l.multiByteLength = l.readLoopCounter
	return stateReadMultiByteList
}

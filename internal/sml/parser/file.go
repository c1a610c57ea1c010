package parser

import (
	"fmt"

	"github.com/nugget/smldaq/internal/sml/lexer"
)

// SmlFileEnd carries the fill-byte count and stop sequence checksum
// from the closing END_OF_SML_FILE token, for callers that want to
// confirm the transport-level framing rather than just the parse
// result.
type SmlFileEnd struct {
	FillBytes     byte
	CRCStream     uint16
	CRCCalculated uint16
}

// SmlFile is the root of the parse tree for one complete SML
// transmission: zero or more SmlMessages, separated by arbitrary
// END_OF_MESSAGE fill bytes, terminated by the lexer's EndOfFile
// token.
//
// Unlike the fixed-arity Sequence, SmlFile's child count is not known
// up front and its children are heterogeneous only in the trivial
// sense that fill bytes are not children at all — every real child is
// an SmlMessage. It is its own small state machine rather than a
// Sequence/SequenceOf instance because of this and because the fill
// byte count must be cross-checked against the lexer's own count once
// the file closes.
type SmlFile struct {
	started     bool
	done        bool
	fillBytes   int
	current     *SmlMessage
	Messages    []*SmlMessage
	End         SmlFileEnd
}

// NewSmlFile returns an SmlFile ready to be fed tokens, beginning with
// a StartOfFile token.
func NewSmlFile() *SmlFile {
	return &SmlFile{}
}

func (f *SmlFile) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if f.done {
		return Error
	}
	if !f.started {
		if tok.Type != lexer.StartOfFile {
			return Error
		}
		f.started = true
		// Arms the message CRC for the first message. Every later
		// message is armed by the previous one's EndOfSmlMessage
		// instead (or by its MessageBodyAny, for an unrecognized body).
		ctx.MessageCRC.Start()
		return Processing
	}
	if f.current != nil {
		r := f.current.Feed(ctx, tok)
		switch r {
		case Error:
			return Error
		case Done:
			f.Messages = append(f.Messages, f.current)
			f.current = nil
			return Processing
		default:
			return Processing
		}
	}
	switch tok.Type {
	case lexer.EndOfFile:
		if int(tok.FileEnd.FillBytes) != f.fillBytes {
			return Error
		}
		f.End = SmlFileEnd{
			FillBytes:     tok.FileEnd.FillBytes,
			CRCStream:     tok.FileEnd.CRCStream,
			CRCCalculated: tok.FileEnd.CRCCalculated,
		}
		f.done = true
		return Done
	case lexer.EndOfMessage:
		f.fillBytes++
		return Processing
	default:
		f.current = NewSmlMessage()
		return f.current.Feed(ctx, tok)
	}
}

// Children exposes the completed messages for tree traversal.
func (f *SmlFile) Children() []Node {
	children := make([]Node, len(f.Messages))
	for i, m := range f.Messages {
		children[i] = m
	}
	return children
}

// Parser drives a Lexer and an SmlFile together: it is the entry
// point callers feed raw transport bytes into.
type Parser struct {
	lex  *lexer.Lexer
	ctx  *Context
	file *SmlFile
}

// New returns a Parser ready to decode one SML file from a byte
// stream. Reset prepares it for the next.
func New() *Parser {
	return &Parser{lex: lexer.New(), ctx: NewContext(), file: NewSmlFile()}
}

// Reset discards any in-progress file and prepares the parser to
// decode a new one.
func (p *Parser) Reset() {
	p.lex.Reset()
	p.ctx = NewContext()
	p.file = NewSmlFile()
}

// Feed pushes one transport byte through the lexer and into the parse
// tree. It returns Processing until a complete file has been
// recognized, at which point it returns Done and File returns the
// completed tree. An Error return means the byte stream does not
// match SML framing or grammar; the caller should Reset before
// feeding further bytes.
func (p *Parser) Feed(b byte) (FeedResult, error) {
	tok := p.lex.Feed(b)
	p.ctx.MessageCRC.Update(b)
	if tok.Type == lexer.NotYetDetected {
		return Processing, nil
	}
	if tok.Type == lexer.Error {
		return Error, fmt.Errorf("sml: lexer error on byte 0x%02X", b)
	}
	r := p.file.Feed(p.ctx, tok)
	if r == Error {
		return Error, fmt.Errorf("sml: parse error on token %v", tok.Type)
	}
	return r, nil
}

// File returns the parse tree built so far. Once Feed has returned
// Done it holds a complete SmlFile; callers that want the next file
// must call Reset first.
func (p *Parser) File() *SmlFile {
	return p.file
}

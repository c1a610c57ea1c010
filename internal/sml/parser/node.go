// Package parser assembles the token stream produced by the lexer
// into a typed parse tree, using the SML grammar's own vocabulary:
// sequences, dynamic-length sequences and tag-dispatched choices.
package parser

import (
	"github.com/nugget/smldaq/internal/crc16"
	"github.com/nugget/smldaq/internal/sml/lexer"
)

// FeedResult is the outcome of feeding one token into a Node.
type FeedResult int

const (
	// Processing means the node needs more tokens before it can
	// report a result.
	Processing FeedResult = iota
	// Done means the node, and everything beneath it, matched
	// completely.
	Done
	// Error means the token stream does not match this node's
	// grammar.
	Error
)

// Node is one production in the grammar. Feed pushes the next token
// into it and reports whether more input is needed.
type Node interface {
	Feed(ctx *Context, tok lexer.Token) FeedResult
}

// Container is a Node that holds other Nodes, for tree traversal.
type Container interface {
	Node
	Children() []Node
}

// Context is threaded through every Feed call. It carries the
// message-level CRC16 accumulator (a second checksum, independent of
// the file-level one escseq computes) and the ignore-rest-of-sequence
// signal that MessageBodyAny raises when it swallows an
// unrecognized message body all the way to its End-of-message marker,
// letting the enclosing SmlMessage skip its own crc16/end-of-message
// fields rather than demanding bytes that were never sent.
type Context struct {
	MessageCRC           *crc16.CRC16
	IgnoreRestOfSequence bool
}

// NewContext returns a Context ready to parse a new SML file.
func NewContext() *Context {
	return &Context{MessageCRC: crc16.New()}
}

// Walk calls visit for every Container in the tree rooted at n,
// depth-first, including n itself if it is a Container. visit
// receives each container in turn; Walk does not consult its return
// value, so visit functions that only care about one container kind
// should simply type-switch and ignore the rest.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	if c, ok := n.(Container); ok {
		visit(c)
		for _, child := range c.Children() {
			Walk(child, visit)
		}
	}
}

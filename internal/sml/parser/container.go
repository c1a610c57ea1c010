package parser

import "github.com/nugget/smldaq/internal/sml/lexer"

// Sequence is a fixed-arity grammar production: a LIST token
// announcing the field count, followed by each declared child in
// order. When ignorableTail is set and a child's completion leaves
// ctx.IgnoreRestOfSequence true, the sequence finishes immediately
// without demanding its remaining children — the mechanism
// SmlMessage uses to tolerate a message body that consumed its own
// framing all the way to the message's end.
type Sequence struct {
	list          listPrefix
	children      []Node
	cursor        int
	ignorableTail bool
}

// NewSequence returns a Sequence over the given children in order.
func NewSequence(ignorableTail bool, children ...Node) *Sequence {
	return &Sequence{children: children, ignorableTail: ignorableTail}
}

func (s *Sequence) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if !s.list.done {
		if r := s.list.Feed(ctx, tok); r == Error {
			return Error
		}
		return Processing
	}
	if s.cursor >= len(s.children) {
		return Done
	}
	res := s.children[s.cursor].Feed(ctx, tok)
	switch res {
	case Error:
		return Error
	case Done:
		s.cursor++
		if s.cursor >= len(s.children) {
			return Done
		}
		if s.ignorableTail && ctx.IgnoreRestOfSequence {
			ctx.IgnoreRestOfSequence = false
			return Done
		}
		return Processing
	default:
		return Processing
	}
}

// Children exposes the declared children for tree traversal. The
// length-prefix list itself carries no data of interest and is not
// included.
func (s *Sequence) Children() []Node { return s.children }

// SequenceOf is a dynamic-arity grammar production: a LIST token
// announcing how many elements follow, then that many freshly
// constructed elements fed in order.
type SequenceOf struct {
	list     listPrefix
	newElem  func() Node
	children []Node
	cursor   int
}

// NewSequenceOf returns a SequenceOf whose elements are built with
// newElem once the element count is known.
func NewSequenceOf(newElem func() Node) *SequenceOf {
	return &SequenceOf{newElem: newElem}
}

func (s *SequenceOf) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if !s.list.done {
		if r := s.list.Feed(ctx, tok); r == Error {
			return Error
		}
		s.children = make([]Node, s.list.Length)
		for i := range s.children {
			s.children[i] = s.newElem()
		}
		if s.list.Length == 0 {
			return Done
		}
		return Processing
	}
	if s.cursor >= len(s.children) {
		return Done
	}
	res := s.children[s.cursor].Feed(ctx, tok)
	switch res {
	case Error:
		return Error
	case Done:
		s.cursor++
		if s.cursor >= len(s.children) {
			return Done
		}
		return Processing
	default:
		return Processing
	}
}

func (s *SequenceOf) Children() []Node { return s.children }

// Choice is a tag-dispatched grammar production: a 2-element LIST
// token, an unsigned tag selecting a concrete body type from factory,
// then that body. A tag with no matching factory entry uses fallback
// if one is supplied (SmlMessageBody's MessageBodyAny escape
// hatch); otherwise it is an Error.
type Choice struct {
	list     listPrefix
	tag      Unsigned
	factory  map[uint64]func() Node
	fallback func() Node
	body     Node
}

// NewChoice returns a Choice dispatching on factory, or fallback when
// the tag has no registered body type.
func NewChoice(factory map[uint64]func() Node, fallback func() Node) *Choice {
	return &Choice{factory: factory, fallback: fallback}
}

func (c *Choice) Feed(ctx *Context, tok lexer.Token) FeedResult {
	if !c.list.done {
		if r := c.list.Feed(ctx, tok); r == Error {
			return Error
		}
		return Processing
	}
	if !c.tag.done {
		r := c.tag.Feed(ctx, tok)
		switch r {
		case Error:
			return Error
		case Done:
			if f, ok := c.factory[c.tag.Value]; ok {
				c.body = f()
			} else if c.fallback != nil {
				c.body = c.fallback()
			} else {
				return Error
			}
		}
		return Processing
	}
	return c.body.Feed(ctx, tok)
}

func (c *Choice) Children() []Node {
	if c.body == nil {
		return nil
	}
	return []Node{c.body}
}

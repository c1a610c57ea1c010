// Package registry holds the two kinds of global lookup the rest of
// smldaq needs without resorting to package-level mutable globals
// scattered across call sites: a tag-keyed factory, and sync.Once-guarded
// shared instances of the Reactor and Proactor (the Go reading of the
// original's template-based SINGLETON_FOR_CLASS macro).
package registry

import (
	"sync"

	"github.com/nugget/smldaq/internal/proactor"
	"github.com/nugget/smldaq/internal/reactor"
)

// Factory is a tag-keyed registry of zero-argument constructors, generic
// over the constructed type. The Choice nodes in internal/sml/parser do
// not use it; they take a plain tag-keyed map.
type Factory[T any] struct {
	mu    sync.RWMutex
	ctors map[uint64]func() T
}

// NewFactory returns an empty Factory.
func NewFactory[T any]() *Factory[T] {
	return &Factory[T]{ctors: make(map[uint64]func() T)}
}

// Register associates tag with ctor. Registering the same tag twice
// replaces the previous constructor.
func (f *Factory[T]) Register(tag uint64, ctor func() T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[tag] = ctor
}

// New constructs a fresh T for tag, and reports whether tag was
// registered at all.
func (f *Factory[T]) New(tag uint64) (T, bool) {
	f.mu.RLock()
	ctor, ok := f.ctors[tag]
	f.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	return ctor(), true
}

var (
	reactorOnce sync.Once
	reactorInst *reactor.Reactor

	proactorOnce sync.Once
	proactorInst *proactor.Proactor
)

// Reactor returns the process-wide Reactor, constructing it on first
// use.
func Reactor() *reactor.Reactor {
	reactorOnce.Do(func() {
		reactorInst = reactor.New()
	})
	return reactorInst
}

// Proactor returns the process-wide Proactor, registered with Reactor()
// on first use.
func Proactor() *proactor.Proactor {
	proactorOnce.Do(func() {
		proactorInst = proactor.New(Reactor())
	})
	return proactorInst
}

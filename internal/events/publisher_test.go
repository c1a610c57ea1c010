package events

import "testing"

type recorder struct {
	got []int
}

func (r *recorder) Notify(v int) { r.got = append(r.got, v) }

func TestSubscribeDuplicateIsNoop(t *testing.T) {
	p := New[int]()
	r := &recorder{}
	if !p.Subscribe(r) {
		t.Fatal("first Subscribe should succeed")
	}
	if p.Subscribe(r) {
		t.Fatal("duplicate Subscribe should report false")
	}
	if got := p.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestNotifyDeliversInOrder(t *testing.T) {
	p := New[int]()
	var a, b recorder
	p.Subscribe(&a)
	p.Subscribe(&b)

	p.Notify(1)
	p.Notify(2)

	if len(a.got) != 2 || a.got[0] != 1 || a.got[1] != 2 {
		t.Errorf("a.got = %v", a.got)
	}
	if len(b.got) != 2 || b.got[0] != 1 || b.got[1] != 2 {
		t.Errorf("b.got = %v", b.got)
	}
}

func TestUnsubscribe(t *testing.T) {
	p := New[int]()
	r := &recorder{}
	p.Subscribe(r)
	p.Unsubscribe(r)

	p.Notify(1)
	if len(r.got) != 0 {
		t.Errorf("expected no notifications after Unsubscribe, got %v", r.got)
	}
	if got := p.Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}

func TestDoubleUnsubscribe(t *testing.T) {
	p := New[int]()
	r := &recorder{}
	p.Subscribe(r)
	p.Unsubscribe(r)
	p.Unsubscribe(r) // must not panic
}

// selfUnsubscriber removes itself from the Publisher during Notify,
// exercising the deferred-removal path: the removal must not disturb
// the in-progress iteration or affect any other subscriber's delivery.
type selfUnsubscriber struct {
	p    *Publisher[int]
	got  []int
	seen int
}

func (s *selfUnsubscriber) Notify(v int) {
	s.got = append(s.got, v)
	s.seen++
	if s.seen == 1 {
		s.p.Unsubscribe(s)
	}
}

func TestUnsubscribeDuringNotifyIsDeferred(t *testing.T) {
	p := New[int]()
	self := &selfUnsubscriber{p: p}
	other := &recorder{}
	p.Subscribe(self)
	p.Subscribe(other)

	p.Notify(1)
	if len(self.got) != 1 || len(other.got) != 1 {
		t.Fatalf("first notify: self=%v other=%v", self.got, other.got)
	}

	p.Notify(2)
	if len(self.got) != 1 {
		t.Errorf("self should not receive second notify after unsubscribing, got %v", self.got)
	}
	if len(other.got) != 2 {
		t.Errorf("other should still receive second notify, got %v", other.got)
	}
	if got := p.Count(); got != 1 {
		t.Errorf("Count after compaction = %d, want 1", got)
	}
}

func TestNotifyNoSubscribers(t *testing.T) {
	p := New[int]()
	p.Notify(1) // must not panic
}

func TestResubscribeAfterCompaction(t *testing.T) {
	p := New[int]()
	r := &recorder{}
	p.Subscribe(r)
	p.Unsubscribe(r)
	p.Notify(1) // compacts r's entry out

	if !p.Subscribe(r) {
		t.Fatal("re-subscribing after Unsubscribe should succeed")
	}
	p.Notify(2)
	if len(r.got) != 1 || r.got[0] != 2 {
		t.Errorf("got = %v, want [2]", r.got)
	}
}

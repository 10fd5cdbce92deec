package notify

import (
	"fmt"
	"sync"
)

// Recorder stores every notification it receives and checks that brackets
// are well formed. It is safe to read from another goroutine while the
// engine is emitting.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	open   *Event
	errs   []error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) begin(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open != nil {
		r.errs = append(r.errs, fmt.Errorf("%s opened while %s is open", e, *r.open))
	}
	r.open = &e
	r.events = append(r.events, e)
}

func (r *Recorder) end(e Event, opening Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.open == nil:
		r.errs = append(r.errs, fmt.Errorf("%s closed with no open bracket", e))
	case r.open.Kind != opening || r.open.Parent != e.Parent || r.open.First != e.First || r.open.Last != e.Last:
		r.errs = append(r.errs, fmt.Errorf("%s does not match open %s", e, *r.open))
	}
	r.open = nil
	r.events = append(r.events, e)
}

func (r *Recorder) single(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open != nil {
		r.errs = append(r.errs, fmt.Errorf("%s emitted inside %s", e, *r.open))
	}
	r.events = append(r.events, e)
}

func (r *Recorder) RowsAboutToBeInserted(parent NodeID, first, last int) {
	r.begin(Event{Kind: KindAboutToInsert, Parent: parent, First: first, Last: last})
}

func (r *Recorder) RowsInserted(parent NodeID, first, last int) {
	r.end(Insert(parent, first, last), KindAboutToInsert)
}

func (r *Recorder) RowsAboutToBeRemoved(parent NodeID, first, last int) {
	r.begin(Event{Kind: KindAboutToRemove, Parent: parent, First: first, Last: last})
}

func (r *Recorder) RowsRemoved(parent NodeID, first, last int) {
	r.end(Remove(parent, first, last), KindAboutToRemove)
}

func (r *Recorder) DataChanged(parent NodeID, row int) {
	r.single(Changed(parent, row))
}

func (r *Recorder) TreeAboutToReset() {
	r.begin(Event{Kind: KindAboutToReset})
}

func (r *Recorder) TreeReset() {
	r.end(Event{Kind: KindReset}, KindAboutToReset)
}

func (r *Recorder) ScanProgress(count int) {
	r.single(Event{Kind: KindProgress, Count: count})
}

func (r *Recorder) ScanComplete(count int) {
	r.single(Event{Kind: KindComplete, Count: count})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Closed returns only the events that finish a change: the closing half of
// each bracket plus data-changed notifications. Progress is left out.
func (r *Recorder) Closed() []Event {
	var out []Event
	for _, e := range r.Events() {
		switch e.Kind {
		case KindInserted, KindRemoved, KindDataChanged, KindReset:
			out = append(out, e)
		}
	}
	return out
}

// Err reports the first bracket violation seen, or an unclosed bracket.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) > 0 {
		return r.errs[0]
	}
	if r.open != nil {
		return fmt.Errorf("%s never closed", *r.open)
	}
	return nil
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.open = nil
	r.errs = nil
}

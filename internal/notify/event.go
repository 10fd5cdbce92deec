package notify

import "fmt"

// Kind names one notification.
type Kind int

const (
	KindAboutToInsert Kind = iota
	KindInserted
	KindAboutToRemove
	KindRemoved
	KindDataChanged
	KindAboutToReset
	KindReset
	KindProgress
	KindComplete
)

var kindNames = [...]string{
	KindAboutToInsert: "about-to-insert",
	KindInserted:      "inserted",
	KindAboutToRemove: "about-to-remove",
	KindRemoved:       "removed",
	KindDataChanged:   "data-changed",
	KindAboutToReset:  "about-to-reset",
	KindReset:         "reset",
	KindProgress:      "progress",
	KindComplete:      "complete",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is one notification as a value. First and Last are the row range
// for bracket kinds, Row for data-changed and Count for progress kinds.
type Event struct {
	Kind   Kind
	Parent NodeID
	First  int
	Last   int
	Count  int
}

func (e Event) String() string {
	switch e.Kind {
	case KindAboutToInsert, KindInserted, KindAboutToRemove, KindRemoved:
		return fmt.Sprintf("%s(%s, %d..%d)", e.Kind, e.Parent, e.First, e.Last)
	case KindDataChanged:
		return fmt.Sprintf("%s(%s, %d)", e.Kind, e.Parent, e.First)
	case KindProgress, KindComplete:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Count)
	default:
		return e.Kind.String()
	}
}

// Insert, Remove and Changed build the closing events of a bracket, for
// comparing against recorded sequences.
func Insert(parent NodeID, first, last int) Event {
	return Event{Kind: KindInserted, Parent: parent, First: first, Last: last}
}

func Remove(parent NodeID, first, last int) Event {
	return Event{Kind: KindRemoved, Parent: parent, First: first, Last: last}
}

func Changed(parent NodeID, row int) Event {
	return Event{Kind: KindDataChanged, Parent: parent, First: row, Last: row}
}

package notify

// Multi fans every notification out to each listener in order. Listeners
// that also implement ProgressListener receive progress too.
type Multi []Listener

func (m Multi) RowsAboutToBeInserted(parent NodeID, first, last int) {
	for _, l := range m {
		l.RowsAboutToBeInserted(parent, first, last)
	}
}

func (m Multi) RowsInserted(parent NodeID, first, last int) {
	for _, l := range m {
		l.RowsInserted(parent, first, last)
	}
}

func (m Multi) RowsAboutToBeRemoved(parent NodeID, first, last int) {
	for _, l := range m {
		l.RowsAboutToBeRemoved(parent, first, last)
	}
}

func (m Multi) RowsRemoved(parent NodeID, first, last int) {
	for _, l := range m {
		l.RowsRemoved(parent, first, last)
	}
}

func (m Multi) DataChanged(parent NodeID, row int) {
	for _, l := range m {
		l.DataChanged(parent, row)
	}
}

func (m Multi) TreeAboutToReset() {
	for _, l := range m {
		l.TreeAboutToReset()
	}
}

func (m Multi) TreeReset() {
	for _, l := range m {
		l.TreeReset()
	}
}

func (m Multi) ScanProgress(count int) {
	for _, l := range m {
		if p, ok := l.(ProgressListener); ok {
			p.ScanProgress(count)
		}
	}
}

func (m Multi) ScanComplete(count int) {
	for _, l := range m {
		if p, ok := l.(ProgressListener); ok {
			p.ScanComplete(count)
		}
	}
}

package notify

import "log/slog"

// Log writes every notification to a logger at debug level.
type Log struct {
	Logger *slog.Logger
}

func (l Log) bracket(msg string, parent NodeID, first, last int) {
	l.Logger.Debug(msg, "parent", parent.String(), "first", first, "last", last)
}

func (l Log) RowsAboutToBeInserted(parent NodeID, first, last int) {
	l.bracket("rows about to be inserted", parent, first, last)
}

func (l Log) RowsInserted(parent NodeID, first, last int) {
	l.bracket("rows inserted", parent, first, last)
}

func (l Log) RowsAboutToBeRemoved(parent NodeID, first, last int) {
	l.bracket("rows about to be removed", parent, first, last)
}

func (l Log) RowsRemoved(parent NodeID, first, last int) {
	l.bracket("rows removed", parent, first, last)
}

func (l Log) DataChanged(parent NodeID, row int) {
	l.Logger.Debug("data changed", "parent", parent.String(), "row", row)
}

func (l Log) TreeAboutToReset() {
	l.Logger.Debug("tree about to reset")
}

func (l Log) TreeReset() {
	l.Logger.Debug("tree reset")
}

func (l Log) ScanProgress(count int) {
	l.Logger.Debug("scan progress", "files", count)
}

func (l Log) ScanComplete(count int) {
	l.Logger.Info("scan complete", "files", count)
}

package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

var spinner = []string{"|", "/", "-", "\\"}

// Counter shows the running number of scanned files on one terminal line.
// The total is unknown while the walk is still going, so it spins instead
// of filling a bar.
type Counter struct {
	writer     io.Writer
	mu         sync.Mutex
	current    int
	frame      int
	enabled    bool
	interval   time.Duration
	lastUpdate time.Time
}

func New(w io.Writer) *Counter {
	if w == nil {
		w = os.Stdout
	}
	return &Counter{
		writer:   w,
		enabled:  true,
		interval: 100 * time.Millisecond,
	}
}

// Disable turns the counter into a no-op, for non-interactive output.
func (c *Counter) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func (c *Counter) ScanProgress(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = count
	if !c.enabled {
		return
	}

	// Update at most every interval to reduce flickering
	now := time.Now()
	if now.Sub(c.lastUpdate) > c.interval {
		c.lastUpdate = now
		c.render()
	}
}

func (c *Counter) ScanComplete(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = count
	if !c.enabled {
		return
	}
	fmt.Fprintf(c.writer, "\r\033[K%s\n", Line(count))
}

// Current is the last count received.
func (c *Counter) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// render must be called with mu already locked
func (c *Counter) render() {
	c.frame = (c.frame + 1) % len(spinner)
	fmt.Fprintf(c.writer, "\r\033[K%s %s", spinner[c.frame], Line(c.current))
}

// Line returns the counter text without terminal control sequences.
func Line(count int) string {
	return "Files scanned: " + humanize.Comma(int64(count))
}

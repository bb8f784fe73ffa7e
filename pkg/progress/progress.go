// Package progress reports progress of long-running operations such as a gc
// restore over many staged copies.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Event is one progress update.
type Event struct {
	Op    string
	Done  int
	Total int
	// Item names what was just finished, usually a path.
	Item string
}

// Percent returns the completed share in [0, 100].
func (e Event) Percent() int {
	if e.Total <= 0 {
		return 100
	}
	p := e.Done * 100 / e.Total
	return min(max(p, 0), 100)
}

// Callback receives progress events.
type Callback func(Event)

// Tracker counts finished steps of one operation and reports each step.
// Safe for concurrent use.
type Tracker struct {
	op    string
	total int
	done  atomic.Int64
	cb    Callback
}

// NewTracker returns a tracker for total steps. A nil cb discards events.
func NewTracker(op string, total int, cb Callback) *Tracker {
	return &Tracker{op: op, total: total, cb: cb}
}

// Step records one finished step.
func (t *Tracker) Step(item string) {
	n := int(t.done.Add(1))
	if t.cb != nil {
		t.cb(Event{Op: t.op, Done: n, Total: t.total, Item: item})
	}
}

// Done returns the number of finished steps.
func (t *Tracker) Done() int {
	return int(t.done.Load())
}

const barWidth = 30

// Bar draws events as a single, redrawn terminal line.
type Bar struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	width   int // length of the line last drawn
}

// NewBar returns a bar writing to w. A disabled bar draws nothing.
func NewBar(w io.Writer, enabled bool) *Bar {
	return &Bar{w: w, enabled: enabled}
}

// Report draws ev. It has the Callback signature.
func (b *Bar) Report(ev Event) {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	filled := barWidth * ev.Percent() / 100
	line := fmt.Sprintf("%s [%s%s] %d/%d",
		ev.Op, strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled), ev.Done, ev.Total)
	if ev.Item != "" {
		line += " " + ev.Item
	}

	pad := ""
	if b.width > len(line) {
		pad = strings.Repeat(" ", b.width-len(line))
	}
	fmt.Fprint(b.w, "\r"+line+pad)
	b.width = len(line)
}

// Finish terminates the line if anything was drawn.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.width == 0 {
		return
	}
	fmt.Fprintln(b.w)
	b.width = 0
}

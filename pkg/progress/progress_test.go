package progress_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fileguard-project/fileguard/pkg/progress"
)

func TestTracker_Step(t *testing.T) {
	var events []progress.Event
	tr := progress.NewTracker("restore", 3, func(ev progress.Event) {
		events = append(events, ev)
	})

	tr.Step("a")
	tr.Step("b")
	assert.Equal(t, 2, tr.Done())
	assert.Equal(t, []progress.Event{
		{Op: "restore", Done: 1, Total: 3, Item: "a"},
		{Op: "restore", Done: 2, Total: 3, Item: "b"},
	}, events)
}

func TestTracker_NilCallback(t *testing.T) {
	tr := progress.NewTracker("restore", 1, nil)
	tr.Step("")
	assert.Equal(t, 1, tr.Done())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := progress.NewTracker("restore", 50, nil)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Step("x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tr.Done())
}

func TestEvent_Percent(t *testing.T) {
	assert.Equal(t, 50, progress.Event{Done: 1, Total: 2}.Percent())
	assert.Equal(t, 100, progress.Event{Done: 5, Total: 2}.Percent())
	assert.Equal(t, 100, progress.Event{}.Percent())
}

func TestBar_Report(t *testing.T) {
	var buf bytes.Buffer
	bar := progress.NewBar(&buf, true)

	bar.Report(progress.Event{Op: "restore", Done: 1, Total: 2, Item: "/tmp/long/path"})
	assert.Contains(t, buf.String(), "restore [")
	assert.Contains(t, buf.String(), "1/2 /tmp/long/path")

	bar.Report(progress.Event{Op: "restore", Done: 2, Total: 2, Item: "/b"})
	bar.Finish()
	out := buf.String()
	assert.Contains(t, out, "["+strings.Repeat("=", 30)+"]")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestBar_Disabled(t *testing.T) {
	var buf bytes.Buffer
	bar := progress.NewBar(&buf, false)
	bar.Report(progress.Event{Op: "restore", Done: 1, Total: 1})
	bar.Finish()
	assert.Empty(t, buf.String())
}

package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"walletcheckin/pkg/checkin"
)

var _ checkin.Progress = (*ProgressDisplay)(nil)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := SetOutput(buf)
	SetColor(false)
	SetQuietMode(false)
	t.Cleanup(func() {
		SetOutput(prev)
		SetQuietMode(false)
	})
	return buf
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat(ProgressEmpty, 20), Bar(0, 10))
	assert.Equal(t, strings.Repeat(ProgressBar, 10)+strings.Repeat(ProgressEmpty, 10), Bar(5, 10))
	assert.Equal(t, strings.Repeat(ProgressBar, 20), Bar(12, 10))
	assert.Equal(t, strings.Repeat(ProgressEmpty, 20), Bar(3, 0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "3m5s", FormatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h15m", FormatDuration(2*time.Hour+15*time.Minute))
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0xabc", ShortAddress("0xabc"))
	assert.Equal(t, "0x123456…cdef", ShortAddress("0x1234567890abcdef1234567890abcdef"))
}

func TestPercentAndRate(t *testing.T) {
	assert.Equal(t, 50.0, Percent(5, 10))
	assert.Equal(t, 0.0, Percent(5, 0))
	assert.Equal(t, 30.0, Rate(15, 30*time.Second))
	assert.Equal(t, 0.0, Rate(15, 0))
}

func TestProgressDisplayLines(t *testing.T) {
	buf := capture(t)
	p := NewProgressDisplay("wallets.txt", true)

	p.JobStarted(4, 0, 2)
	p.ItemStarted(0, 4, "0xaaa")
	p.ItemFinished(0, 4, "0xaaa", true, "")
	p.ItemStarted(1, 4, "0xbbb")
	p.ItemFinished(1, 4, "0xbbb", false, "failed after 3 attempts: boom")
	p.BatchFinished(1, 2, 1, 1, 1)
	p.Finished(1, 1, time.Minute)

	out := buf.String()
	assert.Contains(t, out, "wallets.txt: 4 addresses in 2 batches")
	assert.Contains(t, out, "[1/4] processing 0xaaa")
	assert.Contains(t, out, "[2/4] processing 0xbbb")
	assert.Contains(t, out, "[2/4] ✗ 0xbbb: failed after 3 attempts: boom")
	assert.Contains(t, out, "batch 1/2: 1 ok, 1 failed")
	assert.Contains(t, out, "2/4 (50%)")
	assert.Contains(t, out, "Checked in 1 of 2 addresses")
	assert.Contains(t, out, "1 failed")

	done, failed := p.Counts()
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)
}

func TestProgressDisplayResumeAndNothingToDo(t *testing.T) {
	buf := capture(t)
	p := NewProgressDisplay("wallets.txt", false)

	p.JobStarted(10, 6, 2)
	p.NothingToDo(10, 10)

	assert.Contains(t, buf.String(), "resuming wallets.txt at 6/10 (2 batches left)")
	assert.Contains(t, buf.String(), "nothing to do: checkpoint is at 10 of 10 addresses")
}

func TestProgressDisplayConcurrentItems(t *testing.T) {
	capture(t)
	p := NewProgressDisplay("wallets.txt", false)
	p.JobStarted(50, 0, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.ItemStarted(i, 50, "0xabc")
			p.ItemFinished(i, 50, "0xabc", i%5 != 0, "")
		}(i)
	}
	wg.Wait()

	done, failed := p.Counts()
	assert.Equal(t, 50, done)
	assert.Equal(t, 10, failed)
}

func TestQuietMode(t *testing.T) {
	buf := capture(t)
	SetQuietMode(true)
	assert.True(t, IsQuietMode())

	PrintInfo("Source", "wallets.txt")
	PrintSuccess("done")
	PrintWarning("careful")
	assert.Empty(t, buf.String())

	PrintError("Run failed", errors.New("disk full"))
	assert.Equal(t, "Run failed: disk full\n", buf.String())
}

func TestPrintHelpers(t *testing.T) {
	buf := capture(t)

	PrintInfo("Source", "wallets.txt")
	PrintWarning("Checkpoint write failed")
	PrintHighlight("hi")

	assert.Equal(t, "Source: wallets.txt\nCheckpoint write failed\nhi\n", buf.String())
}

type fakeSender struct {
	titles []string
	err    error
}

func (f *fakeSender) Send(title, message string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func TestNotifier(t *testing.T) {
	buf := capture(t)
	sender := &fakeSender{err: errors.New("no display")}
	n := NewNotifierWithSender(sender)

	n.JobFinished("wallets.txt", 5, 0)
	n.JobFinished("wallets.txt", 4, 1)

	assert.Equal(t, []string{"Check-in finished", "Check-in finished with failures"}, sender.titles)
	assert.Contains(t, buf.String(), "wallets.txt: 4 checked in, 1 failed")
}

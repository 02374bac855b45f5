package ui

import (
	"fmt"
	"sync"
	"time"
)

// ProgressDisplay prints per-item lines, batch summaries and the final
// report of a check-in job. Item callbacks may arrive concurrently.
type ProgressDisplay struct {
	mu         sync.Mutex
	source     string
	total      int
	startIndex int
	done       int
	failed     int
	startTime  time.Time
	verbose    bool
}

// NewProgressDisplay creates a display for the job reading source. In
// verbose mode full addresses and error messages are printed.
func NewProgressDisplay(source string, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		source:    source,
		startTime: time.Now(),
		verbose:   verbose,
	}
}

// JobStarted prints the job header
func (p *ProgressDisplay) JobStarted(total, startIndex, batches int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.startIndex = startIndex
	p.startTime = time.Now()

	if startIndex > 0 {
		printf(false, "%s resuming %s at %d/%d (%d batches left)\n",
			Magenta("→"), p.source, startIndex, total, batches)
		return
	}
	printf(false, "%s %s: %d addresses in %d batches\n",
		Magenta("→"), p.source, total, batches)
}

// ItemStarted prints the "[i/total] processing" line
func (p *ProgressDisplay) ItemStarted(position, total int, address string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	printf(false, "%s processing %s\n",
		Dim(fmt.Sprintf("[%d/%d]", position+1, total)), p.address(address))
}

// ItemFinished prints the item outcome
func (p *ProgressDisplay) ItemFinished(position, total int, address string, success bool, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	label := Dim(fmt.Sprintf("[%d/%d]", position+1, total))
	if success {
		printf(false, "%s %s %s\n", label, Green("✓"), p.address(address))
		return
	}

	p.failed++
	if p.verbose && errMsg != "" {
		printf(false, "%s %s %s: %s\n", label, Red("✗"), p.address(address), errMsg)
		return
	}
	printf(false, "%s %s %s\n", label, Red("✗"), p.address(address))
}

// BatchFinished prints the batch summary with overall progress
func (p *ProgressDisplay) BatchFinished(batch, batches, succeeded, failed, lastIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	committed := lastIndex + 1
	line := fmt.Sprintf("%s batch %d/%d: %s ok, %s failed [%s] %d/%d (%.0f%%)",
		Cyan("■"),
		batch, batches,
		Green(fmt.Sprint(succeeded)),
		Red(fmt.Sprint(failed)),
		Bar(committed, p.total), committed, p.total, Percent(committed, p.total),
	)
	printf(false, "%s\n", line)
}

// NothingToDo reports that the checkpoint already covers the whole list
func (p *ProgressDisplay) NothingToDo(total, startIndex int) {
	printf(false, "%s nothing to do: checkpoint is at %d of %d addresses\n",
		Green("✓"), startIndex, total)
}

// Finished prints the final report
func (p *ProgressDisplay) Finished(successful, failed int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	printf(false, "\n%s Checked in %d of %d addresses\n",
		Green("✓"), successful, successful+failed)
	printf(false, "  %s %s (%.1f addresses/min)\n",
		Dim("•"), FormatDuration(elapsed), Rate(successful+failed, elapsed))
	if failed > 0 {
		printf(false, "  %s %s\n", Dim("•"), Red(fmt.Sprintf("%d failed", failed)))
	}
}

// Counts returns how many items finished and how many of them failed
func (p *ProgressDisplay) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

func (p *ProgressDisplay) address(a string) string {
	if p.verbose {
		return a
	}
	return ShortAddress(a)
}

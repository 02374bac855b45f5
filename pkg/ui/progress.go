package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// Bar renders a fixed-width progress bar for done out of total
func Bar(done, total int) string {
	if total <= 0 {
		return strings.Repeat(ProgressEmpty, barWidth)
	}
	if done > total {
		done = total
	}
	if done < 0 {
		done = 0
	}
	filled := done * barWidth / total
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
}

// Percent returns done as a percentage of total
func Percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) * 100 / float64(total)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// ShortAddress abbreviates long addresses to their head and tail
func ShortAddress(address string) string {
	if len(address) <= 14 {
		return address
	}
	return address[:8] + "…" + address[len(address)-4:]
}

// Rate returns items per minute
func Rate(items int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(items) / elapsed.Minutes()
}

// Package source loads the list of wallet addresses a job works through.
package source

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	errs "walletcheckin/pkg/errors"
	"walletcheckin/pkg/logger"
)

// DefaultPrefix is the literal every valid address starts with
const DefaultPrefix = "0x"

// Stats describes what the loader kept and dropped
type Stats struct {
	Lines   int
	Valid   int
	Blank   int
	Invalid int
}

// Valid reports whether line is a usable address for prefix
func Valid(line, prefix string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(line, prefix) && len(line) > len(prefix)
}

// Load reads one address per line from path. Blank lines and lines that do
// not start with prefix are dropped; the rest keep their relative order.
// A missing file or a file with no valid address is a configuration error.
func Load(path, prefix string) ([]string, error) {
	addrs, stats, err := LoadWithStats(path, prefix)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger().WithField("source", path)
	if stats.Blank > 0 || stats.Invalid > 0 {
		log.WarnWithFields("Dropped lines from address list", map[string]interface{}{
			"blank":   stats.Blank,
			"invalid": stats.Invalid,
			"prefix":  prefix,
		})
	}
	log.InfoWithFields("Address list loaded", map[string]interface{}{
		"addresses": stats.Valid,
	})

	return addrs, nil
}

// LoadWithStats is Load without logging, returning line counts as well
func LoadWithStats(path, prefix string) ([]string, Stats, error) {
	var stats Stats

	file, err := os.Open(path)
	if err != nil {
		return nil, stats, errs.Configuration(fmt.Sprintf("cannot read address list %s", path), err)
	}
	defer file.Close()

	var addrs []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			stats.Blank++
		case !Valid(line, prefix):
			stats.Invalid++
		default:
			addrs = append(addrs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, errs.Configuration(fmt.Sprintf("cannot read address list %s", path), err)
	}

	stats.Valid = len(addrs)
	if len(addrs) == 0 {
		return nil, stats, errs.Configuration(fmt.Sprintf("no valid addresses in %s", path), nil)
	}

	return addrs, stats, nil
}

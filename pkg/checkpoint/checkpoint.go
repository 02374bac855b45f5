package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	errs "walletcheckin/pkg/errors"
	"walletcheckin/pkg/logger"
)

// ArchiveTimeFormat is the UTC timestamp layout appended to archived files
const ArchiveTimeFormat = "20060102T150405Z"

// ErrRegression is returned when a checkpoint would move backwards
var ErrRegression = errors.New("checkpoint index cannot decrease")

// Checkpoint is the persisted progress marker of a job
type Checkpoint struct {
	LastProcessedIndex int    `json:"lastProcessedIndex"`
	Timestamp          string `json:"timestamp"`
	Source             string `json:"source,omitempty"`
	Total              int    `json:"total,omitempty"`
}

// NextIndex is the index of the first address that still needs work
func (c *Checkpoint) NextIndex() int {
	if c == nil {
		return 0
	}
	return c.LastProcessedIndex + 1
}

// UpdatedAt parses Timestamp, returning the zero time if it is malformed
func (c *Checkpoint) UpdatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, c.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Manager handles checkpoint operations for one checkpoint file.
// It has a single writer: the job driving it.
type Manager struct {
	checkpointPath string
	logger         logger.Logger
	last           *int
	now            func() time.Time
}

// NewManager creates a manager for path. An empty path is resolved with
// DefaultPath(sourcePath).
func NewManager(path, sourcePath string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = DefaultPath(sourcePath)
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errs.Persistence("failed to create checkpoint directory", err)
	}

	return &Manager{
		checkpointPath: path,
		logger:         logger.GetLogger(),
		now:            time.Now,
	}, nil
}

// DefaultPath returns the checkpoint location for a source file inside the
// platform data directory.
func DefaultPath(sourcePath string) (string, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return "", fmt.Errorf("failed to get data directory: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "addresses"
	}

	return filepath.Join(dataDir, "checkpoints", name+".checkpoint.json"), nil
}

// SetLogger replaces the manager's logger
func (m *Manager) SetLogger(l logger.Logger) {
	m.logger = l
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load loads an existing checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Persistence("failed to read checkpoint", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errs.Persistence(fmt.Sprintf("checkpoint %s is not valid JSON", m.checkpointPath), err)
	}
	if cp.LastProcessedIndex < -1 {
		return nil, errs.Persistence(fmt.Sprintf("checkpoint %s has negative index %d", m.checkpointPath, cp.LastProcessedIndex), nil)
	}

	idx := cp.LastProcessedIndex
	m.last = &idx

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"path":                 m.checkpointPath,
		"last_processed_index": cp.LastProcessedIndex,
		"timestamp":            cp.Timestamp,
	})

	return &cp, nil
}

// Record stamps and saves a checkpoint for lastIndex
func (m *Manager) Record(lastIndex int, source string, total int) (*Checkpoint, error) {
	if m.last != nil && lastIndex < *m.last {
		return nil, fmt.Errorf("%w: %d < %d", ErrRegression, lastIndex, *m.last)
	}

	cp := &Checkpoint{
		LastProcessedIndex: lastIndex,
		Timestamp:          m.now().UTC().Format(time.RFC3339),
		Source:             source,
		Total:              total,
	}
	if err := m.Save(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(cp *Checkpoint) error {
	if cp.Timestamp == "" {
		cp.Timestamp = m.now().UTC().Format(time.RFC3339)
	}

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return errs.Persistence("failed to create temporary checkpoint file", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Persistence("failed to encode checkpoint", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.Persistence("failed to sync checkpoint file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Persistence("failed to close checkpoint file", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return errs.Persistence("failed to replace checkpoint file", err)
	}

	idx := cp.LastProcessedIndex
	m.last = &idx

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"path":                 m.checkpointPath,
		"last_processed_index": cp.LastProcessedIndex,
	})

	return nil
}

// Archive renames the checkpoint to <path>.completed-<timestamp> and returns
// the new path. A missing checkpoint is not an error and yields "".
func (m *Manager) Archive() (string, error) {
	if !m.Exists() {
		return "", nil
	}

	archived := fmt.Sprintf("%s.completed-%s", m.checkpointPath, m.now().UTC().Format(ArchiveTimeFormat))
	if err := os.Rename(m.checkpointPath, archived); err != nil {
		return "", errs.Persistence("failed to archive checkpoint", err)
	}
	m.last = nil

	m.logger.InfoWithFields("Checkpoint archived", map[string]interface{}{
		"path": archived,
	})
	return archived, nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return errs.Persistence("failed to delete checkpoint", err)
	}
	m.last = nil

	m.logger.InfoWithFields("Checkpoint deleted", map[string]interface{}{
		"path": m.checkpointPath,
	})
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Archives lists completed checkpoints for this path, oldest first
func (m *Manager) Archives() ([]string, error) {
	matches, err := filepath.Glob(m.checkpointPath + ".completed-*")
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Info returns a summary of the checkpoint for display
func (m *Manager) Info() (map[string]interface{}, error) {
	cp, err := m.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}

	info := map[string]interface{}{
		"path":                 m.checkpointPath,
		"last_processed_index": cp.LastProcessedIndex,
		"next_index":           cp.NextIndex(),
		"timestamp":            cp.Timestamp,
	}
	if cp.Source != "" {
		info["source"] = cp.Source
	}
	if cp.Total > 0 {
		info["total"] = cp.Total
		info["percent"] = float64(cp.NextIndex()) * 100 / float64(cp.Total)
	}
	if ts := cp.UpdatedAt(); !ts.IsZero() {
		info["age"] = m.now().Sub(ts).Round(time.Second)
	}
	return info, nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "walletcheckin")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "walletcheckin")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "walletcheckin")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "walletcheckin")
		}
	}

	return dataDir, nil
}

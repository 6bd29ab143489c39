package cache

import (
	"fmt"
)

// DefaultKeepCount is the default number of cached versions to retain.
const DefaultKeepCount = 2

// PruneResult contains information about what was pruned.
type PruneResult struct {
	Deleted []Entry `json:"deleted" yaml:"deleted"`
	Kept    int     `json:"kept" yaml:"kept"`
}

// Prune removes old cached versions, keeping only the newest N. The helper
// directory is never touched.
func (m *Manager) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative")
	}

	entries, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{Deleted: []Entry{}}

	// Entries are already sorted newest first
	if len(entries) <= keep {
		result.Kept = len(entries)
		return result, nil
	}

	result.Kept = keep
	for _, e := range entries[keep:] {
		if err := m.Delete(e.Version); err != nil {
			return nil, fmt.Errorf("failed to delete cached version %s: %w", e.Version, err)
		}
		result.Deleted = append(result.Deleted, e)
	}

	return result, nil
}

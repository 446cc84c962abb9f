package pagestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// PruneSelfNamedDirs removes every root/X/X directory, the leftovers of
// crawls that nested a pass-through task inside a folder of the same name.
// With dryRun set nothing is deleted. The affected paths are returned.
func PruneSelfNamedDirs(root string, dryRun bool) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		nested := filepath.Join(root, entry.Name(), entry.Name())
		info, err := os.Stat(nested)
		if err != nil || !info.IsDir() {
			continue
		}
		if !dryRun {
			if err := os.RemoveAll(nested); err != nil {
				return removed, fmt.Errorf("remove %s: %w", nested, err)
			}
		}
		removed = append(removed, nested)
	}
	return removed, nil
}

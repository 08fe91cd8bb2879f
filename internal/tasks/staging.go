package tasks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// Staging is the directory holding files waiting for upload.
//
// Its listing is the only record of what is pending: regular files whose name does not start
// with a dot. In-progress downloads use hidden temporary names and are therefore never listed.
type Staging struct {
	Dir string
}

// Ensure creates the directory if it does not exist.
func (s Staging) Ensure() error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// Path returns where a file named name is staged. Path separators in name are flattened.
func (s Staging) Path(name string) string {
	return filepath.Join(s.Dir, sanitizeName(name))
}

// List returns the pending items sorted by name. A missing directory lists as empty.
func (s Staging) List() ([]models.PendingItem, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list staging directory: %w", err)
	}

	var items []models.PendingItem
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, models.PendingItem{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(s.Dir, entry.Name()),
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].FileName < items[j].FileName })
	return items, nil
}

// Names returns the file names of the pending items.
func (s Staging) Names() ([]string, error) {
	items, err := s.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.FileName
	}
	return names, nil
}

// Remove deletes a consumed item. An already missing file is not an error.
func (s Staging) Remove(item models.PendingItem) error {
	if err := os.Remove(item.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", item.FileName, err)
	}
	return nil
}

// Rename gives a staged file a new base name, keeping its extension.
// It returns the new file name.
func (s Staging) Rename(oldName, newBase string) (string, error) {
	newBase = strings.TrimSpace(newBase)
	if newBase == "" || strings.ContainsAny(newBase, `/\`) || strings.HasPrefix(newBase, ".") {
		return "", fmt.Errorf("%w: invalid file name %q", shared.ErrInvalidArgument, newBase)
	}

	oldPath := filepath.Join(s.Dir, oldName)
	if _, err := os.Stat(oldPath); err != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrNotFound, oldName)
	}

	ext := filepath.Ext(oldName)
	newName := newBase
	if ext != "" && !strings.EqualFold(filepath.Ext(newBase), ext) {
		newName = newBase + ext
	}
	if newName == oldName {
		return newName, nil
	}

	newPath := filepath.Join(s.Dir, newName)
	if _, err := os.Stat(newPath); err == nil {
		return "", fmt.Errorf("%w: %s already exists", shared.ErrInvalidArgument, newName)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", oldName, err)
	}
	return newName, nil
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, name)
	return strings.TrimLeft(name, ".")
}

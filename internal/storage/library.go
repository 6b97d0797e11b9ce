package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mousereel/internal/core/macro"
)

// ListMacros returns the macro files in dir, newest first. Samples are not
// loaded. A missing directory yields an empty list.
func ListMacros(dir string) ([]macro.Macro, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list macros: %w", err)
	}

	macros := make([]macro.Macro, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isMacroFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		path := filepath.Join(dir, entry.Name())
		macros = append(macros, macro.Macro{
			Name:      macro.NameFromPath(path),
			Path:      path,
			CreatedAt: info.ModTime(),
		})
	}

	sort.SliceStable(macros, func(i, j int) bool {
		if macros[i].CreatedAt.Equal(macros[j].CreatedAt) {
			return macros[i].Name > macros[j].Name
		}
		return macros[i].CreatedAt.After(macros[j].CreatedAt)
	})
	return macros, nil
}

func isMacroFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), macro.Extension) && !strings.HasPrefix(name, ".")
}

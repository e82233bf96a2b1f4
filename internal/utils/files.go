package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// configFileNames are skipped when a directory is expanded
var configFileNames = map[string]bool{
	"metamodel.yml":  true,
	"metamodel.yaml": true,
}

// IsDefinitionFile reports whether path has a YAML extension
func IsDefinitionFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yml" || ext == ".yaml"
}

// FindDefinitionFiles recursively finds the model definitions under dir in
// lexical order. Configuration files and hidden directories are skipped.
func FindDefinitionFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if IsDefinitionFile(path) && !configFileNames[d.Name()] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ExpandPaths replaces every directory argument by the definitions it
// contains. File arguments are kept as given, whatever their extension.
// The result has no duplicates and keeps argument order.
func ExpandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// missing files are reported by the loader
			add(arg)
			continue
		}
		found, err := FindDefinitionFiles(arg)
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, path := range found {
			add(path)
		}
	}
	return paths, nil
}

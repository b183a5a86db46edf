// Package utils discovers JavaScript sources under a project directory.
package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"

	"funcfile/internal/parser"
)

var excludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"coverage":     true,
}

// GetAllSourceFiles returns the JavaScript files under rootPath, sorted, skipping
// well-known dependency/build directories and anything matched by the root .gitignore.
func GetAllSourceFiles(rootPath string) ([]string, error) {
	var files []string
	err := walkSources(rootPath, func(path string, d fs.DirEntry) {
		if !d.IsDir() && parser.IsSourceFile(path) {
			files = append(files, path)
		}
	})
	sort.Strings(files)
	return files, err
}

// GetSourceDirs returns rootPath and every directory below it that GetAllSourceFiles would descend into.
func GetSourceDirs(rootPath string) ([]string, error) {
	var dirs []string
	err := walkSources(rootPath, func(path string, d fs.DirEntry) {
		if d.IsDir() {
			dirs = append(dirs, path)
		}
	})
	sort.Strings(dirs)
	return dirs, err
}

// ExpandPaths replaces each directory in paths with the source files under it.
// Plain files are kept as given, whatever their extension.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := GetAllSourceFiles(p)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func walkSources(rootPath string, visit func(path string, d fs.DirEntry)) error {
	gi := loadGitIgnore(rootPath)
	return filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Compute path relative to root for .gitignore-style matching.
		relPath, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path != rootPath {
				if excludedDirs[d.Name()] {
					return filepath.SkipDir
				}
				if gi != nil && gi.MatchesPath(relPath+"/") {
					return filepath.SkipDir
				}
			}
			visit(path, d)
			return nil
		}

		if gi != nil && gi.MatchesPath(relPath) {
			return nil
		}
		visit(path, d)
		return nil
	})
}

// loadGitIgnore compiles the root-level .gitignore, if present.
func loadGitIgnore(rootPath string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

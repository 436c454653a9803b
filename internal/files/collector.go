// Package files collects the candidate file list handed to file-based wrappers.
package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git", "node_modules", ".venv", "venv", "__pycache__", ".mypy_cache",
	".pytest_cache", ".ruff_cache", "dist", "build", ".next", "coverage",
	".qacoord", "megalinter-reports",
}

// Collector walks a repository honoring .gitignore and scope path prefixes.
type Collector struct {
	root     string
	excludes []string
	ignorer  *ignore.GitIgnore
}

// NewCollector creates a collector rooted at root. A missing .gitignore is
// not an error.
func NewCollector(root string) (*Collector, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	c := &Collector{root: abs, excludes: DefaultExcludes}

	gi := filepath.Join(abs, ".gitignore")
	if _, err := os.Stat(gi); err == nil {
		compiled, err := ignore.CompileIgnoreFile(gi)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", gi, err)
		}
		c.ignorer = compiled
	}
	return c, nil
}

// Root returns the absolute repository root.
func (c *Collector) Root() string {
	return c.root
}

// Collect returns every non-ignored file under the given path prefixes, as
// slash-separated paths relative to the root, sorted. When none of the
// prefixes exist the whole tree is walked, so single-project repositories
// without a frontend/ or backend/ split still get their files.
func (c *Collector) Collect(prefixes []string) ([]string, error) {
	var starts []string
	for _, p := range prefixes {
		if info, err := os.Stat(filepath.Join(c.root, p)); err == nil && info.IsDir() {
			starts = append(starts, filepath.Join(c.root, p))
		}
	}
	if len(starts) == 0 {
		starts = []string{c.root}
	}

	seen := make(map[string]bool)
	var out []string
	for _, start := range starts {
		err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			rel, relErr := filepath.Rel(c.root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path != c.root && (slices.Contains(c.excludes, d.Name()) || c.ignored(rel+"/")) {
					return filepath.SkipDir
				}
				return nil
			}
			if c.ignored(rel) || seen[rel] {
				return nil
			}
			seen[rel] = true
			out = append(out, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", start, err)
		}
	}

	slices.Sort(out)
	return out, nil
}

func (c *Collector) ignored(rel string) bool {
	return c.ignorer != nil && c.ignorer.MatchesPath(rel)
}

// FilterByPrefix keeps files under any of the prefixes. An empty prefix
// list, or one none of the files fall under, keeps everything.
func FilterByPrefix(files, prefixes []string) []string {
	if len(prefixes) == 0 {
		return files
	}
	var out []string
	for _, f := range files {
		norm := filepath.ToSlash(f)
		for _, p := range prefixes {
			p = strings.TrimSuffix(filepath.ToSlash(p), "/") + "/"
			if strings.HasPrefix(norm, p) {
				out = append(out, f)
				break
			}
		}
	}
	if len(out) == 0 {
		return files
	}
	return out
}

// FilterByExt keeps files whose extension is in exts (case-insensitive,
// including the dot).
func FilterByExt(files []string, exts ...string) []string {
	var out []string
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		if slices.Contains(exts, ext) {
			out = append(out, f)
		}
	}
	return out
}

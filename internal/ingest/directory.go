package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type DiscoverOptions struct {
	// Exts overrides the allowed extension set (lowercase, without '.').
	Exts       map[string]struct{}
	SkipHidden bool
	Logger     *slog.Logger
}

// Discover expands inputs into receipt file paths. Each input may be a
// file, a directory (walked recursively) or a glob pattern. Results are
// absolute, sorted and de-duplicated. Missing inputs are counted as
// failures, not returned as errors.
func Discover(inputs []string, opts DiscoverOptions) ([]string, DirStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seen := map[string]struct{}{}
	var stats DirStats

	keep := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		stats.Matched++
	}

	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		paths := []string{in}
		if hasGlobMeta(in) {
			matches, err := filepath.Glob(in)
			if err != nil {
				return nil, stats, fmt.Errorf("bad pattern %q: %w", in, err)
			}
			paths = matches
		}
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				logger.Warn("input not found, skipping", "path", p, "error", err)
				stats.Scanned++
				stats.Failed++
				continue
			}
			if !info.IsDir() {
				stats.Scanned++
				if AllowedExt(filepath.Ext(p), opts.Exts) {
					keep(p)
				} else {
					stats.Skipped++
				}
				continue
			}
			found, dirStats, err := walkDir(p, opts)
			stats.add(dirStats)
			if err != nil {
				return nil, stats, err
			}
			for _, f := range found {
				if _, dup := seen[f]; !dup {
					seen[f] = struct{}{}
				}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	logger.Debug("ingest.discover.ok", "inputs", len(inputs), "matched", len(out), "scanned", stats.Scanned)
	return out, stats, nil
}

// walkDir walks root, skips hidden entries if requested and collects files
// with an allowed extension.
func walkDir(root string, opts DiscoverOptions) ([]string, DirStats, error) {
	var results []string
	var stats DirStats

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, stats, fmt.Errorf("abs path: %w", err)
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			stats.Scanned++
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && path != absRoot && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path), opts.Exts) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		results = append(results, path)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

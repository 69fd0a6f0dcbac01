// Package ingest finds receipt files on disk, loads them for analysis and
// keeps the retry queue of files whose analysis failed.
package ingest

import "time"

// File is a receipt document read from disk and checked against the
// analysis service limits.
type File struct {
	Path    string
	Name    string
	Ext     string
	Size    int64
	HashHex string
	ModTime time.Time
	Data    []byte
}

// DirStats summarizes a discovery walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

func (s *DirStats) add(o DirStats) {
	s.Scanned += o.Scanned
	s.Matched += o.Matched
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

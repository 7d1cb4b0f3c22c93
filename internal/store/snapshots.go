// Package store persists the monitor's view of the world as flat CSV files:
// one tabular snapshot record per target, plus an append-only interaction
// log. Both are written by exactly one flow at a time; the sequential
// execution model makes line-level locking unnecessary.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Snapshot is a target's last-observed state.
type Snapshot struct {
	PostCount     int
	FollowerCount int
}

// SnapshotStore keeps per-target snapshots in memory, backed by a CSV file
// with an update-by-key-or-append rewrite on every commit. Single writer:
// the monitor loop.
type SnapshotStore struct {
	path      string
	snapshots map[string]Snapshot
}

// OpenSnapshotStore reads the full snapshot file. A missing file is an empty
// store.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	s := &SnapshotStore{
		path:      path,
		snapshots: make(map[string]Snapshot),
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot store %s: %w", path, err)
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(rec) < 3 {
			continue
		}
		posts, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("snapshot store %s line %d: bad post count %q", path, line, rec[1])
		}
		followers, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("snapshot store %s line %d: bad follower count %q", path, line, rec[2])
		}
		s.snapshots[rec[0]] = Snapshot{PostCount: posts, FollowerCount: followers}
	}
	return s, nil
}

// Get returns the persisted snapshot for a target.
func (s *SnapshotStore) Get(target string) (Snapshot, bool) {
	snap, ok := s.snapshots[target]
	return snap, ok
}

// Len returns the number of tracked targets.
func (s *SnapshotStore) Len() int {
	return len(s.snapshots)
}

// Put commits a snapshot and rewrites the whole file. Targets are written in
// sorted order so the file is stable across rewrites. The in-memory view
// changes only once the rename lands: a failed write leaves both memory and
// disk at the previous observation, so the delta is re-detected rather than
// silently half-committed.
func (s *SnapshotStore) Put(target string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	names := make([]string, 0, len(s.snapshots)+1)
	for name := range s.snapshots {
		names = append(names, name)
	}
	if _, ok := s.snapshots[target]; !ok {
		names = append(names, target)
	}
	sort.Strings(names)

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write snapshot store: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"username", "post_count", "follower_count"}); err != nil {
		f.Close()
		return err
	}
	for _, name := range names {
		rec := s.snapshots[name]
		if name == target {
			rec = snap
		}
		if err := w.Write([]string{name, strconv.Itoa(rec.PostCount), strconv.Itoa(rec.FollowerCount)}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}

	s.snapshots[target] = snap
	return nil
}

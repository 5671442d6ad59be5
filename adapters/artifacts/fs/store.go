// Package fs persists power summaries and reads simulation replicates as
// JSON files, one per (family, replicate) under a per-family directory.
// Disjoint file paths give work items isolation by construction; no locking
// is needed.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"subpower/domain/core"
	"subpower/domain/dataset"
	"subpower/domain/power"
	"subpower/internal/errors"
	"subpower/ports"
)

// summaryFile names the persisted record for one replicate index
func summaryFile(index int) string {
	return fmt.Sprintf("simulation_%d.json", index)
}

// SummaryStore implements ports.SummaryStore over a directory tree
type SummaryStore struct {
	root string
}

// NewSummaryStore creates a store rooted at dir
func NewSummaryStore(dir string) *SummaryStore {
	return &SummaryStore{root: dir}
}

var _ ports.SummaryStore = (*SummaryStore)(nil)

func (s *SummaryStore) path(family core.FamilyName, index int) string {
	return filepath.Join(s.root, family.String(), summaryFile(index))
}

// Save writes the summary, creating the family directory if missing. A
// failed write is retried once before surfacing, to ride out transient
// disk errors.
func (s *SummaryStore) Save(ctx context.Context, summary *power.PowerSummary) error {
	if err := summary.Validate(); err != nil {
		return err
	}
	dir := filepath.Join(s.root, summary.Family.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Persistence("creating output directory", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.Persistence("encoding power summary", err)
	}

	path := s.path(summary.Family, summary.Replicate)
	if err := writeAtomic(path, data); err != nil {
		time.Sleep(100 * time.Millisecond)
		if err := writeAtomic(path, data); err != nil {
			return errors.Persistence("writing power summary", err)
		}
	}
	return nil
}

// Load reads a persisted summary back. The round-trip reproduces the exact
// counts schedule, alpha and power arrays written.
func (s *SummaryStore) Load(ctx context.Context, family core.FamilyName, index int) (*power.PowerSummary, error) {
	data, err := os.ReadFile(s.path(family, index))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrSummaryNotFound
		}
		return nil, errors.Persistence("reading power summary", err)
	}
	var summary power.PowerSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, errors.Persistence("decoding power summary", err)
	}
	return &summary, nil
}

// Exists reports whether a summary was already persisted
func (s *SummaryStore) Exists(ctx context.Context, family core.FamilyName, index int) (bool, error) {
	_, err := os.Stat(s.path(family, index))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Persistence("checking power summary", err)
}

// writeAtomic writes via a temp file and rename so readers never observe a
// partial summary
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReplicateSource implements ports.ReplicateSource over a directory tree
// written by the external simulation-generation stage
type ReplicateSource struct {
	root string
}

// NewReplicateSource creates a source rooted at dir
func NewReplicateSource(dir string) *ReplicateSource {
	return &ReplicateSource{root: dir}
}

var _ ports.ReplicateSource = (*ReplicateSource)(nil)

// Load reads replicate index for the family
func (s *ReplicateSource) Load(ctx context.Context, family core.FamilyName, index int) (*dataset.Replicate, error) {
	path := filepath.Join(s.root, family.String(), summaryFile(index))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrReplicateNotFound
		}
		return nil, errors.Persistence("reading replicate", err)
	}
	var rep dataset.Replicate
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, errors.Persistence("decoding replicate", err)
	}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Count returns how many consecutive replicates exist for the family,
// starting at index 0
func (s *ReplicateSource) Count(ctx context.Context, family core.FamilyName) (int, error) {
	dir := filepath.Join(s.root, family.String())
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Persistence("checking input directory", err)
	}
	count := 0
	for {
		if _, err := os.Stat(filepath.Join(dir, summaryFile(count))); err != nil {
			break
		}
		count++
	}
	return count, nil
}

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/eduardhabryd/slack-alert-agent/internal/logging"
)

// fileState is the on-disk shape: a single JSON object with a flat id list.
type fileState struct {
	ProcessedIDs []string `json:"processed_ids"`
}

// FileStore is a Ledger backed by a JSON file. The whole set is loaded at
// construction and rewritten on every mutation; writes go through a temp
// file and rename so a crash mid-write cannot truncate the ledger.
type FileStore struct {
	path string
	ids  map[string]struct{}
}

// NewFileStore loads the ledger at path. A missing or corrupt file yields an
// empty ledger: losing dedup history means at worst a duplicate alert, which
// beats refusing to start.
func NewFileStore(path string) *FileStore {
	s := &FileStore{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get().Info().Str("path", path).Msg("no state file found, starting fresh")
		} else {
			logging.Get().Error().Err(err).Str("path", path).Msg("failed to read state file, starting fresh")
		}
		return s
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		logging.Get().Error().Err(err).Str("path", path).Msg("corrupt state file, starting fresh")
		return s
	}
	for _, id := range st.ProcessedIDs {
		s.ids[id] = struct{}{}
	}
	logging.Get().Info().Int("count", len(s.ids)).Msg("loaded processed ids from state")
	return s
}

// IsHandled reports set membership. The error return exists only to satisfy
// Ledger; a file store lookup cannot fail.
func (s *FileStore) IsHandled(_ context.Context, id string) (bool, error) {
	_, ok := s.ids[id]
	return ok, nil
}

// MarkHandled unions the ids into the set and persists immediately. An empty
// slice triggers no write.
func (s *FileStore) MarkHandled(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s.save()
}

func (s *FileStore) save() error {
	out := fileState{ProcessedIDs: make([]string, 0, len(s.ids))}
	for id := range s.ids {
		out.ProcessedIDs = append(out.ProcessedIDs, id)
	}
	// Stable output keeps the file diffable.
	sort.Strings(out.ProcessedIDs)

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	logging.Get().Debug().Int("count", len(s.ids)).Msg("state saved")
	return nil
}

// Len returns the number of recorded ids.
func (s *FileStore) Len() int {
	return len(s.ids)
}

package profile

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/region"
)

// Store persists profiles keyed by area identity. All accessors hand out
// copies; callers can mutate results freely without corrupting the store.
type Store struct {
	mu             sync.RWMutex
	profiles       map[string]Profile
	path           string
	smallThreshold int
	largeThreshold int
	now            func() time.Time
}

// NewStore loads the profile collection from path. A load failure starts the
// store empty rather than failing; a later save can still succeed.
func NewStore(path string, smallThreshold, largeThreshold int) *Store {
	s := &Store{
		profiles:       make(map[string]Profile),
		path:           path,
		smallThreshold: smallThreshold,
		largeThreshold: largeThreshold,
		now:            time.Now,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no profile file found, starting with empty set", "path", s.path)
		} else {
			slog.Error("failed to load profiles, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var list []Profile
	if err := json.Unmarshal(data, &list); err != nil {
		slog.Error("failed to parse profile file, starting empty", "path", s.path, "error", err)
		return
	}

	for _, p := range list {
		if p.AreaID != "" {
			s.profiles[p.AreaID] = p
		}
	}
	slog.Info("loaded recognition profiles", "count", len(s.profiles))
}

// GetForRegion returns a copy of the stored profile for the region, or a
// size-appropriate default when the region has never been tuned.
func (s *Store) GetForRegion(r region.Rect) Profile {
	s.mu.RLock()
	p, ok := s.profiles[r.AreaID()]
	s.mu.RUnlock()

	if ok {
		slog.Debug("retrieved profile", "area", r.AreaID(), "description", p.Description)
		return p.Clone()
	}

	class := r.Classify(s.smallThreshold, s.largeThreshold)
	slog.Debug("no stored profile, using size default", "area", r.AreaID(), "class", class.String())
	return ForSizeClass(class)
}

// Get returns a copy of the profile for an area ID, if one is stored.
func (s *Store) Get(areaID string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[areaID]
	return p.Clone(), ok
}

// Save stores a copy of the profile under areaID, stamps LastModified, and
// persists the whole collection. The in-memory update survives a save failure
// so the next save can retry.
func (s *Store) Save(areaID string, p Profile) error {
	p.AreaID = areaID
	p.LastModified = s.now()

	s.mu.Lock()
	s.profiles[areaID] = p.Clone()
	s.mu.Unlock()

	slog.Info("saved profile", "area", areaID, "description", p.Description)
	return s.persist()
}

// Delete removes the profile for areaID and persists, a no-op when absent.
func (s *Store) Delete(areaID string) error {
	s.mu.Lock()
	_, existed := s.profiles[areaID]
	delete(s.profiles, areaID)
	s.mu.Unlock()

	if !existed {
		return nil
	}
	slog.Info("deleted profile", "area", areaID)
	return s.persist()
}

// All returns copies of every stored profile.
func (s *Store) All() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	return out
}

// persist writes the full collection as one atomic file replace.
func (s *Store) persist() error {
	s.mu.RLock()
	list := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		list = append(list, p)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		slog.Error("failed to encode profiles", "error", err)
		return apperrors.Wrap(err, apperrors.StagePersistence, apperrors.CodePersistenceFailed, "encode profiles")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("failed to create profile directory", "dir", dir, "error", err)
		return apperrors.Wrap(err, apperrors.StagePersistence, apperrors.CodePersistenceFailed, "create profile dir")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Error("failed to write profiles", "path", tmp, "error", err)
		return apperrors.Wrap(err, apperrors.StagePersistence, apperrors.CodePersistenceFailed, "write profiles")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("failed to replace profile file", "path", s.path, "error", err)
		return apperrors.Wrap(err, apperrors.StagePersistence, apperrors.CodePersistenceFailed, "replace profile file")
	}

	slog.Debug("persisted profiles", "count", len(list), "path", s.path)
	return nil
}

package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/screensub/platform/internal/region"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.json")
	return NewStore(path, 0, 0)
}

func TestGetForRegionUnseenSmall(t *testing.T) {
	s := newTestStore(t)

	p := s.GetForRegion(region.Rect{Width: 50, Height: 50})

	if p.TextScaleFactor != 1.5 {
		t.Errorf("TextScaleFactor = %v, want 1.5 (small text tuning)", p.TextScaleFactor)
	}
	if p.MinimumConfidence != 0.5 {
		t.Errorf("MinimumConfidence = %v, want 0.5", p.MinimumConfidence)
	}
	if p.MinimumTextHeight != 6 {
		t.Errorf("MinimumTextHeight = %v, want 6", p.MinimumTextHeight)
	}
}

func TestGetForRegionUnseenLarge(t *testing.T) {
	s := newTestStore(t)

	p := s.GetForRegion(region.Rect{Width: 2000, Height: 2000})

	if p.MinimumConfidence != 0.7 {
		t.Errorf("MinimumConfidence = %v, want 0.7 (large text tuning)", p.MinimumConfidence)
	}
	if p.MaximumTextHeight != 200 {
		t.Errorf("MaximumTextHeight = %v, want 200", p.MaximumTextHeight)
	}
}

func TestGetForRegionUnseenDefault(t *testing.T) {
	s := newTestStore(t)

	p := s.GetForRegion(region.Rect{Width: 200, Height: 100})
	if p.MinimumConfidence != 0.6 || p.TextScaleFactor != 1.0 {
		t.Errorf("got %+v, want baseline defaults", p)
	}
}

func TestSaveThenGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	r := region.Rect{X: 10, Y: 10, Width: 400, Height: 60}

	p := Default()
	p.Contrast = 1.7
	if err := s.Save(r.AreaID(), p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.GetForRegion(r)
	if got.Contrast != 1.7 {
		t.Fatalf("Contrast = %v, want 1.7", got.Contrast)
	}
	if got.LastModified.IsZero() {
		t.Error("Save should stamp LastModified")
	}

	// Mutating the retrieved profile must not leak into the store.
	got.Contrast = 0.1
	again := s.GetForRegion(r)
	if again.Contrast != 1.7 {
		t.Errorf("store corrupted by caller mutation: Contrast = %v", again.Contrast)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	r := region.Rect{X: 1, Y: 2, Width: 300, Height: 40}

	s1 := NewStore(path, 0, 0)
	p := SmallText()
	p.Description = "news ticker"
	if err := s1.Save(r.AreaID(), p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2 := NewStore(path, 0, 0)
	got, ok := s2.Get(r.AreaID())
	if !ok {
		t.Fatal("profile not found after reload")
	}
	if got.Description != "news ticker" {
		t.Errorf("Description = %q, want %q", got.Description, "news ticker")
	}
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, 0, 0)
	if n := len(s.All()); n != 0 {
		t.Errorf("All() = %d entries, want 0 after corrupt load", n)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	r := region.Rect{Width: 100, Height: 100}

	if err := s.Save(r.AreaID(), Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(r.AreaID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(r.AreaID()); ok {
		t.Error("profile still present after Delete")
	}

	// Deleting an absent area is a no-op.
	if err := s.Delete("area_9_9_9_9"); err != nil {
		t.Errorf("Delete of absent area = %v, want nil", err)
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	// Point the store at a path whose parent cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(filepath.Join(blocker, "sub", "profiles.json"), 0, 0)

	r := region.Rect{Width: 100, Height: 100}
	p := Default()
	p.Description = "kept in memory"
	if err := s.Save(r.AreaID(), p); err == nil {
		t.Fatal("expected save failure")
	}

	got, ok := s.Get(r.AreaID())
	if !ok || got.Description != "kept in memory" {
		t.Error("in-memory update should survive a persist failure")
	}
}

func TestAllReturnsCopies(t *testing.T) {
	s := newTestStore(t)
	r := region.Rect{Width: 100, Height: 100}
	_ = s.Save(r.AreaID(), Default())

	all := s.All()
	if len(all) != 1 {
		t.Fatalf("All() = %d entries, want 1", len(all))
	}
	all[0].Contrast = 99

	got, _ := s.Get(r.AreaID())
	if got.Contrast == 99 {
		t.Error("All() leaked internal reference")
	}
}

func TestLastModifiedMonotonic(t *testing.T) {
	s := newTestStore(t)
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return tick }

	r := region.Rect{Width: 100, Height: 100}
	_ = s.Save(r.AreaID(), Default())

	got, _ := s.Get(r.AreaID())
	if !got.LastModified.Equal(tick) {
		t.Errorf("LastModified = %v, want %v", got.LastModified, tick)
	}
}

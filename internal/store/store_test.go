package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
// It is closed and deleted automatically when the test ends.
// This is the only pattern used — no test ever touches the production DB.
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// makeProgress builds a snapshot with a single in-progress work package.
func makeProgress(id string, percent int) store.ProgressSnapshot {
	return store.ProgressSnapshot{
		ID:      id,
		TakenAt: time.Now().UTC(),
		Progress: eas.WorkPackagesProgress{
			Pending: []string{"queued-1"},
			InProgress: []eas.WorkPackageProgress{
				{ID: "wp-1", ProgressPercent: percent, Execution: []string{"feeder-a"}},
			},
		},
	}
}

// makeModel builds a minimal OpenDssModel for testing.
func makeModel(id int, name string, state eas.OpenDssModelState) eas.OpenDssModel {
	return eas.OpenDssModel{
		ID:       id,
		Name:     name,
		State:    state,
		IsPublic: true,
	}
}

// ─── Open / Path ──────────────────────────────────────────────────────────────

func TestOpenCreatesDB(t *testing.T) {
	s := testDB(t)
	if s.Path() == "" {
		t.Error("Path() should return the db path after open")
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	// Open with nested path that doesn't exist yet
	path := filepath.Join(t.TempDir(), "a", "b", "c", "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open with nested path: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %q, got %q", path, s.Path())
	}
}

func TestOpenSetsSchemaVersion(t *testing.T) {
	s := testDB(t)
	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 1 {
		t.Errorf("schema version: expected 1, got %d", v)
	}
}

// ─── Progress snapshots ───────────────────────────────────────────────────────

func TestPutGetProgress(t *testing.T) {
	s := testDB(t)
	snap := makeProgress("20250101000000aaaa", 40)

	if err := s.PutProgress(snap); err != nil {
		t.Fatalf("PutProgress: %v", err)
	}

	got, ok, err := s.GetProgress(snap.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if !ok {
		t.Fatal("snapshot should be found")
	}
	if len(got.Progress.InProgress) != 1 {
		t.Fatalf("InProgress: expected 1 entry, got %d", len(got.Progress.InProgress))
	}
	if got.Progress.InProgress[0].ProgressPercent != 40 {
		t.Errorf("ProgressPercent: expected 40, got %d", got.Progress.InProgress[0].ProgressPercent)
	}
	if got.Progress.Pending[0] != "queued-1" {
		t.Errorf("Pending: expected queued-1, got %q", got.Progress.Pending[0])
	}
}

func TestGetProgressMissing(t *testing.T) {
	s := testDB(t)
	_, ok, err := s.GetProgress("nope")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if ok {
		t.Error("missing snapshot should report not found")
	}
}

func TestListProgressCaptureOrder(t *testing.T) {
	s := testDB(t)
	// Time-sortable IDs: insertion out of order, listing in key order.
	for _, id := range []string{"20250103000000cccc", "20250101000000aaaa", "20250102000000bbbb"} {
		if err := s.PutProgress(makeProgress(id, 10)); err != nil {
			t.Fatalf("PutProgress %s: %v", id, err)
		}
	}

	snaps, err := s.ListProgress()
	if err != nil {
		t.Fatalf("ListProgress: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].ID > snaps[i].ID {
			t.Errorf("snapshots out of order: %q before %q", snaps[i-1].ID, snaps[i].ID)
		}
	}
}

func TestDeleteProgress(t *testing.T) {
	s := testDB(t)
	snap := makeProgress("20250101000000aaaa", 10)
	if err := s.PutProgress(snap); err != nil {
		t.Fatalf("PutProgress: %v", err)
	}
	if err := s.DeleteProgress(snap.ID); err != nil {
		t.Fatalf("DeleteProgress: %v", err)
	}
	_, ok, _ := s.GetProgress(snap.ID)
	if ok {
		t.Error("deleted snapshot should not be found")
	}
}

func TestNewProgressIDSortable(t *testing.T) {
	a := store.NewProgressID()
	time.Sleep(time.Second + 10*time.Millisecond)
	b := store.NewProgressID()
	if a >= b {
		t.Errorf("IDs should sort by creation time: %q vs %q", a, b)
	}
}

// ─── Models ───────────────────────────────────────────────────────────────────

func TestPutModelsAndGet(t *testing.T) {
	s := testDB(t)
	models := []eas.OpenDssModel{
		makeModel(7, "seven", eas.OpenDssModelStateCompleted),
		makeModel(3, "three", eas.OpenDssModelStateCreating),
	}
	if err := s.PutModels(models); err != nil {
		t.Fatalf("PutModels: %v", err)
	}

	got, ok, err := s.GetModel(7)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if !ok {
		t.Fatal("model 7 should be found")
	}
	if got.Model.Name != "seven" {
		t.Errorf("Name: expected seven, got %q", got.Model.Name)
	}
	if got.FetchedAt.IsZero() {
		t.Error("FetchedAt should be stamped on put")
	}
}

func TestGetModelMissing(t *testing.T) {
	s := testDB(t)
	_, ok, err := s.GetModel(999)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if ok {
		t.Error("missing model should report not found")
	}
}

func TestListModelsIDOrder(t *testing.T) {
	s := testDB(t)
	// Zero-padded keys keep numeric order even past 9.
	models := []eas.OpenDssModel{
		makeModel(100, "hundred", eas.OpenDssModelStateCompleted),
		makeModel(2, "two", eas.OpenDssModelStateCompleted),
		makeModel(30, "thirty", eas.OpenDssModelStateCompleted),
	}
	if err := s.PutModels(models); err != nil {
		t.Fatalf("PutModels: %v", err)
	}

	stored, err := s.ListModels()
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 models, got %d", len(stored))
	}
	want := []int{2, 30, 100}
	for i, m := range stored {
		if m.Model.ID != want[i] {
			t.Errorf("position %d: expected id %d, got %d", i, want[i], m.Model.ID)
		}
	}
}

func TestPutModelsUpserts(t *testing.T) {
	s := testDB(t)
	if err := s.PutModels([]eas.OpenDssModel{makeModel(1, "old", eas.OpenDssModelStateCreating)}); err != nil {
		t.Fatalf("PutModels: %v", err)
	}
	if err := s.PutModels([]eas.OpenDssModel{makeModel(1, "new", eas.OpenDssModelStateCompleted)}); err != nil {
		t.Fatalf("PutModels (second): %v", err)
	}

	stored, err := s.ListModels()
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("upsert should not duplicate: got %d entries", len(stored))
	}
	if stored[0].Model.Name != "new" {
		t.Errorf("upsert should keep latest record, got %q", stored[0].Model.Name)
	}
}

func TestDeleteModel(t *testing.T) {
	s := testDB(t)
	if err := s.PutModels([]eas.OpenDssModel{makeModel(5, "five", eas.OpenDssModelStateCompleted)}); err != nil {
		t.Fatalf("PutModels: %v", err)
	}
	if err := s.DeleteModel(5); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	_, ok, _ := s.GetModel(5)
	if ok {
		t.Error("deleted model should not be found")
	}
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

func TestStatsCounts(t *testing.T) {
	s := testDB(t)
	if err := s.PutProgress(makeProgress("20250101000000aaaa", 10)); err != nil {
		t.Fatalf("PutProgress: %v", err)
	}
	if err := s.PutModels([]eas.OpenDssModel{
		makeModel(1, "one", eas.OpenDssModelStateCompleted),
		makeModel(2, "two", eas.OpenDssModelStateCompleted),
	}); err != nil {
		t.Fatalf("PutModels: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	byName := map[string]store.BucketStats{}
	for _, st := range stats {
		byName[st.Name] = st
	}
	if byName["progress"].Count != 1 {
		t.Errorf("progress count: expected 1, got %d", byName["progress"].Count)
	}
	if byName["models"].Count != 2 {
		t.Errorf("models count: expected 2, got %d", byName["models"].Count)
	}
	if byName["models"].Bytes == 0 {
		t.Error("models bucket should report non-zero bytes")
	}
}

func TestClearAll(t *testing.T) {
	s := testDB(t)
	if err := s.PutProgress(makeProgress("20250101000000aaaa", 10)); err != nil {
		t.Fatalf("PutProgress: %v", err)
	}
	if err := s.PutModels([]eas.OpenDssModel{makeModel(1, "one", eas.OpenDssModelStateCompleted)}); err != nil {
		t.Fatalf("PutModels: %v", err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, st := range stats {
		if st.Count != 0 {
			t.Errorf("bucket %s should be empty after ClearAll, got %d", st.Name, st.Count)
		}
	}
}

package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"pgregory.net/rapid"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (i item) EntityID() int64 { return i.ID }

func seedItems() []item {
	return []item{{ID: 1, Name: "one"}, {ID: 2, Name: "two"}}
}

// tb is the subset of testing.TB that *rapid.T also provides.
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

func newTestCollection(t tb, store kv.Store, policy CorruptPolicy) *Collection[item, int64] {
	t.Helper()
	c := New[item, int64](store, Options[item]{Key: "items", Seed: seedItems, Policy: policy})
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func stored(t tb, store kv.Store) []item {
	t.Helper()
	var got []item
	if _, err := kv.ReadJSON(context.Background(), store, "items", &got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return got
}

func TestLoad_SeedsAbsentKeyAndPersists(t *testing.T) {
	t.Parallel()
	store := kv.NewMemory()
	c := newTestCollection(t, store, PolicyFail)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want seed of 2", c.Len())
	}
	if got := stored(t, store); len(got) != 2 {
		t.Fatalf("seed not persisted: %v", got)
	}
}

func TestLoad_EmptyStoredArrayIsNotReseeded(t *testing.T) {
	t.Parallel()
	store := kv.NewMemory()
	if err := store.Write(context.Background(), "items", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	c := newTestCollection(t, store, PolicyFail)
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0 (user deleted everything)", c.Len())
	}
}

func TestLoad_CorruptPolicies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	failStore := kv.NewMemory()
	failStore.Write(ctx, "items", []byte("{oops"))
	c := New[item, int64](failStore, Options[item]{Key: "items", Seed: seedItems})
	err := c.Load(ctx)
	if !errs.Is(err, errs.Internal) || !errors.Is(err, kv.ErrCorrupt) {
		t.Fatalf("PolicyFail Load = %v, want Internal wrapping ErrCorrupt", err)
	}
	raw, _, _ := failStore.Read(ctx, "items")
	if string(raw) != "{oops" {
		t.Fatalf("PolicyFail must keep bytes, got %q", raw)
	}
	if err := c.Add(ctx, item{ID: 9}); err == nil {
		t.Fatal("Add on an unloaded collection should fail")
	}

	resetStore := kv.NewMemory()
	resetStore.Write(ctx, "items", []byte("{oops"))
	c = newTestCollection(t, resetStore, PolicyReset)
	if c.Len() != 2 {
		t.Fatalf("PolicyReset should reseed, Len = %d", c.Len())
	}
	quarantined, ok, _ := resetStore.Read(ctx, "items"+CorruptSuffix)
	if !ok || string(quarantined) != "{oops" {
		t.Fatalf("quarantine copy = %q, %v", quarantined, ok)
	}
}

func TestParseCorruptPolicy(t *testing.T) {
	t.Parallel()
	if p, err := ParseCorruptPolicy("reset"); err != nil || p != PolicyReset {
		t.Fatalf("reset -> %v, %v", p, err)
	}
	if p, err := ParseCorruptPolicy(""); err != nil || p != PolicyFail {
		t.Fatalf("empty -> %v, %v", p, err)
	}
	if _, err := ParseCorruptPolicy("ignore"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

// testCollection_MemoryMatchesStorage runs a random sequence of mutations and
// checks after each step that the stored array equals Items().
func testCollection_MemoryMatchesStorage(t *rapid.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	c := newTestCollection(t, store, PolicyFail)
	nextID := int64(100)

	steps := rapid.IntRange(1, 30).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		before := c.Items()
		switch rapid.IntRange(0, 3).Draw(t, "op") {
		case 0:
			nextID++
			if err := c.Add(ctx, item{ID: nextID, Name: rapid.String().Draw(t, "name")}); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if c.Len() != len(before)+1 {
				t.Fatalf("Add changed Len by %d", c.Len()-len(before))
			}
		case 1:
			id := rapid.Int64Range(0, nextID+1).Draw(t, "removeID")
			_, existed := c.Get(id)
			removed, err := c.Remove(ctx, id)
			if err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if removed != existed {
				t.Fatalf("Remove(%d) = %v, existed = %v", id, removed, existed)
			}
		case 2:
			id := rapid.Int64Range(0, nextID+1).Draw(t, "updateID")
			_, existed := c.Get(id)
			updated, err := c.Update(ctx, id, func(it *item) { it.Name += "!" })
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if updated != existed {
				t.Fatalf("Update(%d) = %v, existed = %v", id, updated, existed)
			}
		case 3:
			if err := c.Reset(ctx, []item{{ID: 1, Name: "reset"}}); err != nil {
				t.Fatalf("Reset failed: %v", err)
			}
		}

		got := stored(t, store)
		items := c.Items()
		if len(got) != len(items) {
			t.Fatalf("step %d: stored %d items, memory has %d", i, len(got), len(items))
		}
		for j := range got {
			if got[j] != items[j] {
				t.Fatalf("step %d: stored[%d]=%v memory=%v", i, j, got[j], items[j])
			}
		}
	}
}

func TestCollection_MemoryMatchesStorage(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCollection_MemoryMatchesStorage)
}

type countingStore struct {
	kv.Store
	mu     sync.Mutex
	writes int
	fail   bool
}

func (s *countingStore) Write(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.writes++
	return s.Store.Write(ctx, key, value)
}

func TestRemove_MissingIDDoesNotRewrite(t *testing.T) {
	t.Parallel()
	store := &countingStore{Store: kv.NewMemory()}
	c := newTestCollection(t, store, PolicyFail)
	before := store.writes

	removed, err := c.Remove(context.Background(), 404)
	if err != nil || removed {
		t.Fatalf("Remove(404) = %v, %v", removed, err)
	}
	if store.writes != before {
		t.Fatalf("missing-id Remove wrote %d times", store.writes-before)
	}
}

func TestAdd_FailedWriteLeavesMemoryUnchanged(t *testing.T) {
	t.Parallel()
	store := &countingStore{Store: kv.NewMemory()}
	c := newTestCollection(t, store, PolicyFail)
	store.fail = true

	err := c.Add(context.Background(), item{ID: 3})
	if !errs.Is(err, errs.Unavailable) {
		t.Fatalf("Add with failing store = %v, want Unavailable", err)
	}
	if c.Len() != 2 {
		t.Fatalf("failed Add mutated memory: Len = %d", c.Len())
	}
}

func TestCollection_ConcurrentAddsAreNotLost(t *testing.T) {
	t.Parallel()
	store := kv.NewMemory()
	c := newTestCollection(t, store, PolicyFail)
	ids := NewIntIDs(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Add(context.Background(), item{ID: ids.Next()}); err != nil {
				t.Errorf("Add failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := stored(t, store); len(got) != 52 {
		t.Fatalf("stored %d items after 50 concurrent adds, want 52", len(got))
	}
}

func testIntIDs_StrictlyIncreasing(t *rapid.T) {
	base := time.UnixMilli(rapid.Int64Range(1_600_000_000_000, 1_900_000_000_000).Draw(t, "base"))
	offsets := rapid.SliceOfN(rapid.Int64Range(-5, 5), 1, 50).Draw(t, "offsets")
	i := 0
	ids := NewIntIDs(func() time.Time {
		d := offsets[i%len(offsets)]
		i++
		return base.Add(time.Duration(d) * time.Millisecond)
	})
	floor := rapid.Int64Range(0, base.UnixMilli()+10).Draw(t, "floor")
	ids.Observe(floor)

	prev := floor
	for range offsets {
		id := ids.Next()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestIntIDs_StrictlyIncreasing(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testIntIDs_StrictlyIncreasing)
}

func TestCollection_StaleWriterKeepsOtherWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kv.NewMemory()
	var seen []int64
	a := New[item, int64](store, Options[item]{Key: "items", Seed: seedItems, Policy: PolicyFail,
		OnLoad: func(items []item) {
			seen = seen[:0]
			for _, it := range items {
				seen = append(seen, it.ID)
			}
		}})
	if err := a.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	b := newTestCollection(t, store, PolicyFail)

	if err := b.Add(ctx, item{ID: 3, Name: "from b"}); err != nil {
		t.Fatalf("Add via b failed: %v", err)
	}
	if err := a.Add(ctx, item{ID: 4, Name: "from a"}); err != nil {
		t.Fatalf("Add via a failed: %v", err)
	}
	if len(seen) != 3 || seen[2] != 3 {
		t.Fatalf("OnLoad saw %v, want the list carrying b's item", seen)
	}
	if got := stored(t, store); len(got) != 4 {
		t.Fatalf("stored %v, want both adds kept", got)
	}

	if err := b.Load(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, ok := b.Get(4); !ok || b.Len() != 4 {
		t.Fatalf("b did not pick up a's item: %v", b.Items())
	}
}

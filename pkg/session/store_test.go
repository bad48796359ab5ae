package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

func newTestStore(cfg Config) *Store {
	return NewStore(zerolog.Nop(), cfg)
}

func TestCreateAndGet(t *testing.T) {
	st := newTestStore(Config{})

	sess := st.Create()
	if sess.ID == "" {
		t.Fatal("expected generated session ID")
	}
	if sess.Created.IsZero() {
		t.Fatal("expected creation timestamp")
	}

	got, ok := st.Get(sess.ID)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got != sess {
		t.Fatal("expected the same session instance")
	}
}

func TestGet_Missing(t *testing.T) {
	st := newTestStore(Config{})
	if _, ok := st.Get("nope"); ok {
		t.Fatal("expected missing session")
	}
}

func TestGet_TouchesLastAccessed(t *testing.T) {
	st := newTestStore(Config{})
	sess := st.Create()
	before := sess.LastAccessed()
	time.Sleep(5 * time.Millisecond)
	st.Get(sess.ID)
	if !sess.LastAccessed().After(before) {
		t.Fatal("expected last-accessed to advance on read")
	}
}

func TestResolve(t *testing.T) {
	st := newTestStore(Config{})

	fresh := st.Resolve("")
	if fresh == nil || fresh.ID == "" {
		t.Fatal("expected a fresh session for empty ID")
	}

	same := st.Resolve(fresh.ID)
	if same != fresh {
		t.Fatal("expected resolve to return the existing session")
	}

	// A stale identifier is recoverable: a new session, not an error.
	replacement := st.Resolve("stale-id")
	if replacement.ID == "stale-id" {
		t.Fatal("expected a newly generated ID for unknown session")
	}
}

func TestUniqueIDs(t *testing.T) {
	st := newTestStore(Config{})
	seen := make(map[string]bool)
	for range 100 {
		id := st.Create().ID
		if seen[id] {
			t.Fatalf("duplicate session ID %s", id)
		}
		seen[id] = true
	}
}

func TestSweep(t *testing.T) {
	st := newTestStore(Config{IdleThreshold: 50 * time.Millisecond})

	idle := st.Create()
	active := st.Create()

	time.Sleep(60 * time.Millisecond)
	active.Touch()

	if evicted := st.Sweep(); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, ok := st.Get(idle.ID); ok {
		t.Fatal("expected idle session to be evicted")
	}
	if _, ok := st.Get(active.ID); !ok {
		t.Fatal("expected active session to survive")
	}

	// An in-flight reference to an evicted session stays usable.
	idle.Append(Record{ToolName: "echo"})
	if idle.ContextSize() != 1 {
		t.Fatal("expected evicted session reference to remain usable")
	}
}

func TestRecordCap(t *testing.T) {
	st := newTestStore(Config{MaxRecords: 3})
	sess := st.Create()

	for i := range 5 {
		sess.Append(Record{ToolName: "echo", Params: types.Params{"i": i}})
	}

	records := sess.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records after cap, got %d", len(records))
	}
	if records[0].Params["i"] != 2 {
		t.Fatalf("expected oldest surviving record to be #2, got %v", records[0].Params["i"])
	}
}

func TestCount(t *testing.T) {
	st := newTestStore(Config{})
	if st.Count() != 0 {
		t.Fatal("expected empty store")
	}
	st.Create()
	st.Create()
	if st.Count() != 2 {
		t.Fatalf("expected 2 sessions, got %d", st.Count())
	}
}

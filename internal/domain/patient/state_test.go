package patient

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/platform/store"
)

// gateClient wraps a store client so one Select can be stalled after it
// has read its snapshot, letting a test overlap two refreshes.
type gateClient struct {
	store.Client

	mu      sync.Mutex
	hold    chan struct{} // armed: the next Select blocks until closed
	entered chan struct{} // closed once the held Select has its snapshot
}

func (g *gateClient) arm() (entered <-chan struct{}, release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	hold := make(chan struct{})
	enteredCh := make(chan struct{})
	g.hold, g.entered = hold, enteredCh
	return enteredCh, func() { close(hold) }
}

func (g *gateClient) Select(ctx context.Context, q store.Query, dest interface{}) error {
	err := g.Client.Select(ctx, q, dest)
	g.mu.Lock()
	hold, entered := g.hold, g.entered
	g.hold, g.entered = nil, nil
	g.mu.Unlock()
	if hold != nil {
		close(entered)
		<-hold
	}
	return err
}

func newTestState(t *testing.T) (*State, *Service) {
	t.Helper()
	svc := NewService(store.NewMemory(), zerolog.Nop())
	return NewState(svc), svc
}

func TestStateAnonymousGuard(t *testing.T) {
	st, svc := newTestState(t)
	ctx := context.Background()
	svc.Create(ctx, Patient{Name: "Alice Nguyen", PharmacistID: "u1"})

	st.SetUser(ctx, "")
	if len(st.Items()) != 0 {
		t.Error("expected empty items while anonymous")
	}
	if st.Loading() {
		t.Error("expected loading cleared while anonymous")
	}
	if st.Add(ctx, Patient{Name: "Bob Carter"}) != nil {
		t.Error("expected add to no-op while anonymous")
	}
	if st.Remove(ctx, "any") {
		t.Error("expected remove to no-op while anonymous")
	}
	if len(svc.List(ctx)) != 1 {
		t.Error("expected the store to be untouched by anonymous mutators")
	}
}

func TestStateRefreshLoadsItems(t *testing.T) {
	st, svc := newTestState(t)
	ctx := context.Background()
	svc.Create(ctx, Patient{Name: "Bob Carter", PharmacistID: "u1"})
	svc.Create(ctx, Patient{Name: "Alice Nguyen", PharmacistID: "u1"})

	st.SetUser(ctx, "u1")
	items := st.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "Alice Nguyen" {
		t.Errorf("expected alphabetical order, got %v", items)
	}
	if st.Loading() {
		t.Error("expected loading cleared after refresh")
	}
}

func TestStateAddAppendsAtEnd(t *testing.T) {
	st, svc := newTestState(t)
	ctx := context.Background()
	svc.Create(ctx, Patient{Name: "Zoe Adams", PharmacistID: "u1"})
	st.SetUser(ctx, "u1")

	created := st.Add(ctx, Patient{Name: "Alice Nguyen"})
	if created == nil {
		t.Fatal("expected created patient")
	}
	if created.PharmacistID != "u1" {
		t.Errorf("expected owner u1, got %s", created.PharmacistID)
	}

	items := st.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	// New entries land at the end regardless of sort order until the next
	// refresh.
	if items[1].ID != created.ID {
		t.Errorf("expected new patient appended at end, got %v", items)
	}
}

func TestStateEditReplacesInPlace(t *testing.T) {
	st, _ := newTestState(t)
	ctx := context.Background()
	st.SetUser(ctx, "u1")

	a := st.Add(ctx, Patient{Name: "Alice Nguyen"})
	b := st.Add(ctx, Patient{Name: "Bob Carter"})

	updated := st.Edit(ctx, a.ID, map[string]interface{}{"phone": "0400 111 222"})
	if updated == nil {
		t.Fatal("expected updated patient")
	}

	items := st.Items()
	if items[0].ID != a.ID || items[0].Phone != "0400 111 222" {
		t.Errorf("expected first entry updated in place, got %v", items)
	}
	if items[1].ID != b.ID {
		t.Error("expected other entries untouched")
	}
}

func TestStateEditMissingSetsError(t *testing.T) {
	st, _ := newTestState(t)
	ctx := context.Background()
	st.SetUser(ctx, "u1")

	if st.Edit(ctx, "nope", map[string]interface{}{"name": "x"}) != nil {
		t.Fatal("expected nil for missing patient")
	}
	if st.Err() == "" {
		t.Error("expected mutation error to be recorded")
	}
}

func TestStateRemoveFiltersList(t *testing.T) {
	st, _ := newTestState(t)
	ctx := context.Background()
	st.SetUser(ctx, "u1")

	a := st.Add(ctx, Patient{Name: "Alice Nguyen"})
	st.Add(ctx, Patient{Name: "Bob Carter"})

	if !st.Remove(ctx, a.ID) {
		t.Fatal("expected remove to succeed")
	}
	items := st.Items()
	if len(items) != 1 || items[0].Name != "Bob Carter" {
		t.Errorf("expected only Bob left, got %v", items)
	}

	// A second remove of the same id resolves false and changes nothing.
	if st.Remove(ctx, a.ID) {
		t.Error("expected second remove to resolve false")
	}
	if len(st.Items()) != 1 {
		t.Error("expected list unchanged after failed remove")
	}
}

func TestStateSignOutClearsItems(t *testing.T) {
	st, _ := newTestState(t)
	ctx := context.Background()
	st.SetUser(ctx, "u1")
	st.Add(ctx, Patient{Name: "Alice Nguyen"})

	st.SetUser(ctx, "")
	if len(st.Items()) != 0 {
		t.Error("expected items cleared on sign out")
	}
}

func TestStateStaleRefreshDiscarded(t *testing.T) {
	gate := &gateClient{Client: store.NewMemory()}
	svc := NewService(gate, zerolog.Nop())
	st := NewState(svc)
	ctx := context.Background()

	svc.Create(ctx, Patient{Name: "Alice Nguyen", PharmacistID: "u1"})
	st.SetUser(ctx, "u1")

	// Stall a refresh after it has read the single-item snapshot.
	entered, release := gate.arm()
	done := make(chan struct{})
	go func() {
		defer close(done)
		st.Refresh(ctx)
	}()
	<-entered

	// A newer refresh completes with two items while the first is stalled.
	svc.Create(ctx, Patient{Name: "Bob Carter", PharmacistID: "u1"})
	st.Refresh(ctx)
	if len(st.Items()) != 2 {
		t.Fatalf("expected 2 items after the newer refresh, got %d", len(st.Items()))
	}

	release()
	<-done

	// The stalled response carries one item but a superseded generation;
	// it must not clobber the newer list.
	if len(st.Items()) != 2 {
		t.Errorf("expected stale response discarded, got %v", st.Items())
	}
	if st.Loading() {
		t.Error("expected loading cleared by the newer refresh")
	}
}

func TestStateFilter(t *testing.T) {
	st, _ := newTestState(t)
	ctx := context.Background()
	st.SetUser(ctx, "u1")
	st.Add(ctx, Patient{Name: "Alice Nguyen", Email: "alice@example.com", Phone: "0400 111 222"})
	st.Add(ctx, Patient{Name: "Bob Carter", Email: "bob@example.com", Phone: "0400 333 444"})

	if got := st.Filter("ALICE"); len(got) != 1 || got[0].Name != "Alice Nguyen" {
		t.Errorf("expected case-insensitive name match, got %v", got)
	}
	if got := st.Filter("333"); len(got) != 1 || got[0].Name != "Bob Carter" {
		t.Errorf("expected phone match, got %v", got)
	}
	if got := st.Filter(""); len(got) != 2 {
		t.Errorf("expected empty term to return everything, got %v", got)
	}
	if got := st.Filter("nobody"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

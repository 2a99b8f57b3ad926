package medication

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/platform/store"
)

func newTestStates(t *testing.T) (*States, *Service) {
	t.Helper()
	svc := NewService(store.NewMemory(), zerolog.Nop())
	return NewStates(svc), svc
}

func TestStateAddScopedToPatient(t *testing.T) {
	reg, svc := newTestStates(t)
	ctx := context.Background()
	reg.SetUser(ctx, "u1")

	st := reg.For(ctx, "p1")
	created := st.Add(ctx, Medication{Name: "Metformin", Active: true})
	if created == nil {
		t.Fatal("expected created medication")
	}
	if created.PatientID != "p1" {
		t.Errorf("expected patient p1, got %s", created.PatientID)
	}
	if len(svc.ListByPatient(ctx, "p2")) != 0 {
		t.Error("expected other patients unaffected")
	}
}

func TestStateEditReplacesInPlace(t *testing.T) {
	reg, _ := newTestStates(t)
	ctx := context.Background()
	reg.SetUser(ctx, "u1")

	st := reg.For(ctx, "p1")
	a := st.Add(ctx, Medication{Name: "Metformin", Active: true})
	b := st.Add(ctx, Medication{Name: "Warfarin", Active: true})

	updated := st.Edit(ctx, a.ID, map[string]interface{}{"active": false})
	if updated == nil || updated.Active {
		t.Fatalf("expected deactivated medication, got %v", updated)
	}

	items := st.Items()
	if items[0].ID != a.ID || items[0].Active {
		t.Errorf("expected first entry updated in place, got %v", items)
	}
	if items[1].ID != b.ID {
		t.Error("expected other entries untouched")
	}
}

func TestStateAnonymousGuard(t *testing.T) {
	reg, svc := newTestStates(t)
	ctx := context.Background()
	svc.Create(ctx, Medication{PatientID: "p1", Name: "Metformin", Active: true})

	st := reg.For(ctx, "p1")
	if len(st.Items()) != 0 {
		t.Error("expected empty items while anonymous")
	}
	if st.Add(ctx, Medication{Name: "Warfarin"}) != nil {
		t.Error("expected add to no-op while anonymous")
	}
	if st.Edit(ctx, "any", map[string]interface{}{"active": false}) != nil {
		t.Error("expected edit to no-op while anonymous")
	}
	if len(svc.ListByPatient(ctx, "p1")) != 1 {
		t.Error("expected the store untouched by anonymous mutators")
	}
}

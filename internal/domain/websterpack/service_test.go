package websterpack

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/domain/medication"
	"github.com/webstertrack/webstertrack/internal/domain/patient"
	"github.com/webstertrack/webstertrack/internal/platform/store"
)

type testEnv struct {
	packs *Service
	pats  *patient.Service
	meds  *medication.Service
}

func newTestEnv() *testEnv {
	client := store.NewMemory()
	pats := patient.NewService(client, zerolog.Nop())
	meds := medication.NewService(client, zerolog.Nop())
	return &testEnv{
		packs: NewService(client, pats, meds, zerolog.Nop()),
		pats:  pats,
		meds:  meds,
	}
}

func ts(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func TestCreatePackDefaultsPending(t *testing.T) {
	env := newTestEnv()
	p := env.packs.Create(context.Background(), WebsterPack{
		Barcode: "WP12345", PatientID: "p1", PharmacistID: "u1",
	})
	if p == nil {
		t.Fatal("expected created pack")
	}
	if p.Status != StatusPending {
		t.Errorf("expected status pending, got %s", p.Status)
	}
	if p.ID == "" {
		t.Error("expected id to be assigned")
	}
}

func TestListReverseChronological(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: "p1", PharmacistID: "u1", Timestamp: ts("2026-01-01T00:00:00Z")})
	env.packs.Create(ctx, WebsterPack{Barcode: "WP3", PatientID: "p1", PharmacistID: "u1", Timestamp: ts("2026-03-01T00:00:00Z")})
	env.packs.Create(ctx, WebsterPack{Barcode: "WP2", PatientID: "p1", PharmacistID: "u1", Timestamp: ts("2026-02-01T00:00:00Z")})

	got := env.packs.List(ctx)
	if len(got) != 3 {
		t.Fatalf("expected 3 packs, got %d", len(got))
	}
	if got[0].Barcode != "WP3" || got[2].Barcode != "WP1" {
		t.Errorf("expected newest first, got %v", got)
	}
}

func TestScanBarcode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.packs.Create(ctx, WebsterPack{Barcode: "WP12345", PatientID: "p1", PharmacistID: "u1"})

	found := env.packs.GetByBarcode(ctx, "WP12345")
	if found == nil {
		t.Fatal("expected pack for known barcode")
	}
	if found.Barcode != "WP12345" {
		t.Errorf("expected WP12345, got %s", found.Barcode)
	}

	if env.packs.GetByBarcode(ctx, "UNKNOWN") != nil {
		t.Error("expected nil for unknown barcode")
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	p := env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: "p1", PharmacistID: "u1"})

	updated := env.packs.Update(ctx, p.ID, map[string]interface{}{"status": StatusCompleted})
	if updated == nil {
		t.Fatal("expected updated pack")
	}
	if updated.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}

	// The update path is generic; the reverse transition is not forbidden.
	back := env.packs.Update(ctx, p.ID, map[string]interface{}{"status": StatusPending})
	if back == nil || back.Status != StatusPending {
		t.Errorf("expected reverse transition to apply, got %v", back)
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	p := env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: "p1", PharmacistID: "u1"})

	if env.packs.Update(ctx, p.ID, map[string]interface{}{"status": "bogus"}) != nil {
		t.Error("expected nil for invalid status value")
	}
	if got := env.packs.GetByID(ctx, p.ID); got.Status != StatusPending {
		t.Errorf("expected stored status untouched, got %s", got.Status)
	}
}

func TestPackMedicationLinks(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	p := env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: "p1", PharmacistID: "u1"})

	link := env.packs.AddMedication(ctx, p.ID, "m1")
	if link == nil {
		t.Fatal("expected created link")
	}
	env.packs.AddMedication(ctx, p.ID, "m2")

	links := env.packs.ListPackMedications(ctx, p.ID)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}

	if !env.packs.RemoveMedication(ctx, p.ID, "m1") {
		t.Fatal("expected unlink to succeed")
	}
	if env.packs.RemoveMedication(ctx, p.ID, "m1") {
		t.Error("expected second unlink to resolve false")
	}
	if len(env.packs.ListPackMedications(ctx, p.ID)) != 1 {
		t.Error("expected one link left")
	}
}

func TestRemoveLinkByID(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	p := env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: "p1", PharmacistID: "u1"})
	link := env.packs.AddMedication(ctx, p.ID, "m1")

	if !env.packs.RemoveLink(ctx, link.ID) {
		t.Fatal("expected unlink by row id to succeed")
	}
	if env.packs.RemoveLink(ctx, link.ID) {
		t.Error("expected second unlink to resolve false")
	}
}

func TestGetDetailsAssembly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.pats.Create(ctx, patient.Patient{Name: "Alice Nguyen", PharmacistID: "u1"})
	med := env.meds.Create(ctx, medication.Medication{PatientID: owner.ID, Name: "Metformin", Active: true})
	pack := env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: owner.ID, PharmacistID: "u1"})
	env.packs.AddMedication(ctx, pack.ID, med.ID)

	d := env.packs.GetDetails(ctx, pack.ID)
	if d == nil {
		t.Fatal("expected assembled details")
	}
	if d.Patient.ID != owner.ID {
		t.Errorf("expected owning patient, got %v", d.Patient)
	}
	if len(d.Medications) != 1 || d.Medications[0].Name != "Metformin" {
		t.Errorf("expected linked medication, got %v", d.Medications)
	}
}

func TestGetDetailsMissingPack(t *testing.T) {
	env := newTestEnv()
	if env.packs.GetDetails(context.Background(), "nope") != nil {
		t.Error("expected nil for missing pack")
	}
}

func TestGetDetailsMissingPatientShortCircuits(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.pats.Create(ctx, patient.Patient{Name: "Alice Nguyen", PharmacistID: "u1"})
	pack := env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: owner.ID, PharmacistID: "u1"})

	// The patient vanishes out-of-band; the assembly must fail whole.
	env.pats.Delete(ctx, owner.ID)

	if env.packs.GetDetails(ctx, pack.ID) != nil {
		t.Error("expected nil when the owning patient is gone")
	}
}

func TestGetDetailsSkipsMissingMedication(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owner := env.pats.Create(ctx, patient.Patient{Name: "Alice Nguyen", PharmacistID: "u1"})
	kept := env.meds.Create(ctx, medication.Medication{PatientID: owner.ID, Name: "Metformin", Active: true})
	gone := env.meds.Create(ctx, medication.Medication{PatientID: owner.ID, Name: "Warfarin", Active: true})
	pack := env.packs.Create(ctx, WebsterPack{Barcode: "WP1", PatientID: owner.ID, PharmacistID: "u1"})
	env.packs.AddMedication(ctx, pack.ID, kept.ID)
	env.packs.AddMedication(ctx, pack.ID, gone.ID)

	env.meds.Delete(ctx, gone.ID)

	d := env.packs.GetDetails(ctx, pack.ID)
	if d == nil {
		t.Fatal("expected assembled details despite the dangling link")
	}
	if len(d.Medications) != 1 || d.Medications[0].ID != kept.ID {
		t.Errorf("expected only the surviving medication, got %v", d.Medications)
	}
}

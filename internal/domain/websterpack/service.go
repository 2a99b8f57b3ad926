package websterpack

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/domain/medication"
	"github.com/webstertrack/webstertrack/internal/domain/patient"
	"github.com/webstertrack/webstertrack/internal/platform/store"
)

const (
	table     = "webster_packs"
	linkTable = "webster_pack_medications"
)

// PatientSource resolves the patient owning a pack for the details
// assembly.
type PatientSource interface {
	GetByID(ctx context.Context, id string) *patient.Patient
}

// MedicationSource resolves linked medications for the details assembly.
type MedicationSource interface {
	GetByID(ctx context.Context, id string) *medication.Medication
}

// Details is the assembled composite view of one pack: the pack itself,
// its owning patient, and every linked medication that still exists.
type Details struct {
	Pack        WebsterPack             `json:"pack"`
	Patient     patient.Patient         `json:"patient"`
	Medications []medication.Medication `json:"medications"`
}

// Service translates webster pack operations into store client calls.
// Failures are logged and collapsed into benign sentinels.
type Service struct {
	client   store.Client
	patients PatientSource
	meds     MedicationSource
	logger   zerolog.Logger
}

func NewService(client store.Client, patients PatientSource, meds MedicationSource, logger zerolog.Logger) *Service {
	return &Service{client: client, patients: patients, meds: meds, logger: logger}
}

// List returns every pack, newest event first, or an empty list on
// failure.
func (s *Service) List(ctx context.Context) []WebsterPack {
	var packs []WebsterPack
	err := s.client.Select(ctx, store.Table(table).OrderDesc("timestamp"), &packs)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack").Str("op", "list").Msg("store query failed")
		return []WebsterPack{}
	}
	if packs == nil {
		packs = []WebsterPack{}
	}
	return packs
}

// ListByPatient returns one patient's packs, newest event first, or an
// empty list on failure.
func (s *Service) ListByPatient(ctx context.Context, patientID string) []WebsterPack {
	var packs []WebsterPack
	err := s.client.Select(ctx, store.Table(table).Eq("patient_id", patientID).OrderDesc("timestamp"), &packs)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack").Str("op", "list").Str("patient_id", patientID).Msg("store query failed")
		return []WebsterPack{}
	}
	if packs == nil {
		packs = []WebsterPack{}
	}
	return packs
}

// GetByID returns the pack, or nil when missing or unreachable.
func (s *Service) GetByID(ctx context.Context, id string) *WebsterPack {
	var p WebsterPack
	err := s.client.Select(ctx, store.Table(table).Eq("id", id).Single(), &p)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack").Str("op", "get").Str("id", id).Msg("store query failed")
		return nil
	}
	return &p
}

// GetByBarcode resolves a scanned code to its pack, or nil when no pack
// carries that barcode.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) *WebsterPack {
	var p WebsterPack
	err := s.client.Select(ctx, store.Table(table).Eq("barcode", barcode).Single(), &p)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack").Str("op", "get_by_barcode").Str("barcode", barcode).Msg("store query failed")
		return nil
	}
	return &p
}

// Create inserts a pack and returns the stored row, or nil on failure.
// Status defaults to pending when unset.
func (s *Service) Create(ctx context.Context, p WebsterPack) *WebsterPack {
	if p.Status == "" {
		p.Status = StatusPending
	}
	row := map[string]interface{}{
		"barcode":       p.Barcode,
		"patient_id":    p.PatientID,
		"pharmacist_id": p.PharmacistID,
		"status":        p.Status,
	}
	if p.Timestamp != nil {
		row["timestamp"] = p.Timestamp
	}

	var created WebsterPack
	if err := s.client.Insert(ctx, table, row, &created); err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack").Str("op", "create").Str("barcode", p.Barcode).Msg("store insert failed")
		return nil
	}
	return &created
}

// Update applies the partial fields and returns the full updated row, or
// nil on failure. A status field must hold one of the literal values.
func (s *Service) Update(ctx context.Context, id string, fields map[string]interface{}) *WebsterPack {
	if status, ok := fields["status"]; ok {
		if status != StatusPending && status != StatusCompleted {
			s.logger.Error().Str("entity", "webster_pack").Str("op", "update").Str("id", id).Interface("status", status).Msg("invalid status value")
			return nil
		}
	}
	var updated WebsterPack
	err := s.client.Update(ctx, store.Table(table).Eq("id", id), fields, &updated)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack").Str("op", "update").Str("id", id).Msg("store update failed")
		return nil
	}
	return &updated
}

// Delete reports whether the deletion succeeded. Link rows go with the
// pack via the store's cascade.
func (s *Service) Delete(ctx context.Context, id string) bool {
	err := s.client.Delete(ctx, store.Table(table).Eq("id", id))
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack").Str("op", "delete").Str("id", id).Msg("store delete failed")
		return false
	}
	return true
}

// ListPackMedications returns the pack's link rows in insertion order,
// or an empty list on failure.
func (s *Service) ListPackMedications(ctx context.Context, packID string) []PackMedication {
	var links []PackMedication
	err := s.client.Select(ctx, store.Table(linkTable).Eq("webster_pack_id", packID).Order("created_at"), &links)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack_medication").Str("op", "list").Str("pack_id", packID).Msg("store query failed")
		return []PackMedication{}
	}
	if links == nil {
		links = []PackMedication{}
	}
	return links
}

// AddMedication links a medication into a pack and returns the stored
// join row, or nil on failure.
func (s *Service) AddMedication(ctx context.Context, packID, medicationID string) *PackMedication {
	row := map[string]interface{}{
		"webster_pack_id": packID,
		"medication_id":   medicationID,
	}
	var created PackMedication
	if err := s.client.Insert(ctx, linkTable, row, &created); err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack_medication").Str("op", "add").Str("pack_id", packID).Str("medication_id", medicationID).Msg("store insert failed")
		return nil
	}
	return &created
}

// RemoveMedication unlinks a medication from a pack and reports whether
// a row was removed.
func (s *Service) RemoveMedication(ctx context.Context, packID, medicationID string) bool {
	err := s.client.Delete(ctx, store.Table(linkTable).Eq("webster_pack_id", packID).Eq("medication_id", medicationID))
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack_medication").Str("op", "remove").Str("pack_id", packID).Str("medication_id", medicationID).Msg("store delete failed")
		return false
	}
	return true
}

// RemoveLink deletes a join row by its own id and reports whether it was
// removed.
func (s *Service) RemoveLink(ctx context.Context, id string) bool {
	err := s.client.Delete(ctx, store.Table(linkTable).Eq("id", id))
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "webster_pack_medication").Str("op", "remove_link").Str("id", id).Msg("store delete failed")
		return false
	}
	return true
}

// GetDetails assembles the composite view of one pack. It short-circuits
// to nil as soon as the pack or its patient cannot be found; a link row
// whose medication has since been deleted is skipped rather than failing
// the whole assembly.
func (s *Service) GetDetails(ctx context.Context, packID string) *Details {
	pack := s.GetByID(ctx, packID)
	if pack == nil {
		return nil
	}
	owner := s.patients.GetByID(ctx, pack.PatientID)
	if owner == nil {
		return nil
	}

	links := s.ListPackMedications(ctx, packID)
	meds := make([]medication.Medication, 0, len(links))
	for _, link := range links {
		m := s.meds.GetByID(ctx, link.MedicationID)
		if m == nil {
			s.logger.Warn().Str("pack_id", packID).Str("medication_id", link.MedicationID).Msg("linked medication missing, skipping")
			continue
		}
		meds = append(meds, *m)
	}

	return &Details{Pack: *pack, Patient: *owner, Medications: meds}
}

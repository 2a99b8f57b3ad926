package medication

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/platform/store"
)

const table = "medications"

// Service translates medication operations into store client calls.
// Failures are logged and collapsed into benign sentinels.
type Service struct {
	client store.Client
	logger zerolog.Logger
}

func NewService(client store.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// ListByPatient returns the patient's medications ordered by name, or an
// empty list on failure.
func (s *Service) ListByPatient(ctx context.Context, patientID string) []Medication {
	var meds []Medication
	err := s.client.Select(ctx, store.Table(table).Eq("patient_id", patientID).Order("name"), &meds)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "medication").Str("op", "list").Str("patient_id", patientID).Msg("store query failed")
		return []Medication{}
	}
	if meds == nil {
		meds = []Medication{}
	}
	return meds
}

// GetByID returns the medication, or nil when missing or unreachable.
func (s *Service) GetByID(ctx context.Context, id string) *Medication {
	var m Medication
	err := s.client.Select(ctx, store.Table(table).Eq("id", id).Single(), &m)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "medication").Str("op", "get").Str("id", id).Msg("store query failed")
		return nil
	}
	return &m
}

// Create inserts a medication and returns the stored row, or nil on
// failure. New medications default to active unless told otherwise.
func (s *Service) Create(ctx context.Context, m Medication) *Medication {
	row := map[string]interface{}{
		"patient_id": m.PatientID,
		"name":       m.Name,
		"active":     m.Active,
	}
	if m.Dosage != "" {
		row["dosage"] = m.Dosage
	}
	if m.Frequency != "" {
		row["frequency"] = m.Frequency
	}
	if m.Instructions != "" {
		row["instructions"] = m.Instructions
	}
	if m.StartDate != "" {
		row["start_date"] = m.StartDate
	}
	if m.EndDate != "" {
		row["end_date"] = m.EndDate
	}

	var created Medication
	if err := s.client.Insert(ctx, table, row, &created); err != nil {
		s.logger.Error().Err(err).Str("entity", "medication").Str("op", "create").Str("patient_id", m.PatientID).Msg("store insert failed")
		return nil
	}
	return &created
}

// Update applies the partial fields and returns the full updated row, or
// nil on failure.
func (s *Service) Update(ctx context.Context, id string, fields map[string]interface{}) *Medication {
	var updated Medication
	err := s.client.Update(ctx, store.Table(table).Eq("id", id), fields, &updated)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "medication").Str("op", "update").Str("id", id).Msg("store update failed")
		return nil
	}
	return &updated
}

// Delete reports whether the deletion succeeded.
func (s *Service) Delete(ctx context.Context, id string) bool {
	err := s.client.Delete(ctx, store.Table(table).Eq("id", id))
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "medication").Str("op", "delete").Str("id", id).Msg("store delete failed")
		return false
	}
	return true
}

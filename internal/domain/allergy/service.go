package allergy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/platform/store"
)

const table = "patient_allergies"

// Service translates allergy operations into store client calls. Like the
// other entity services it never returns an error: failures are logged
// and collapsed into benign sentinels.
type Service struct {
	client store.Client
	logger zerolog.Logger
}

func NewService(client store.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// ListByPatient returns the patient's allergies in insertion order, or an
// empty list on failure.
func (s *Service) ListByPatient(ctx context.Context, patientID string) []Allergy {
	var allergies []Allergy
	err := s.client.Select(ctx, store.Table(table).Eq("patient_id", patientID).Order("created_at"), &allergies)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "allergy").Str("op", "list").Str("patient_id", patientID).Msg("store query failed")
		return []Allergy{}
	}
	if allergies == nil {
		allergies = []Allergy{}
	}
	return allergies
}

// Add records an allergy for the patient and returns the stored row, or
// nil on failure.
func (s *Service) Add(ctx context.Context, patientID, name string) *Allergy {
	row := map[string]interface{}{
		"patient_id": patientID,
		"allergy":    name,
	}
	var created Allergy
	if err := s.client.Insert(ctx, table, row, &created); err != nil {
		s.logger.Error().Err(err).Str("entity", "allergy").Str("op", "add").Str("patient_id", patientID).Msg("store insert failed")
		return nil
	}
	return &created
}

// Delete reports whether the allergy row was removed.
func (s *Service) Delete(ctx context.Context, id string) bool {
	err := s.client.Delete(ctx, store.Table(table).Eq("id", id))
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "allergy").Str("op", "delete").Str("id", id).Msg("store delete failed")
		return false
	}
	return true
}

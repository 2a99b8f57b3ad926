package patient

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/webstertrack/webstertrack/internal/platform/store"
)

const table = "patients"

// Service is the patients entity service: it translates domain operations
// into store client calls. Store failures are logged with their context
// and collapsed into benign sentinels: callers never receive an error
// from this layer, and absence is indistinguishable from failure.
type Service struct {
	client store.Client
	logger zerolog.Logger
}

func NewService(client store.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// List returns all patients ordered by name, or an empty list on failure.
func (s *Service) List(ctx context.Context) []Patient {
	var patients []Patient
	err := s.client.Select(ctx, store.Table(table).Order("name"), &patients)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "patient").Str("op", "list").Msg("store query failed")
		return []Patient{}
	}
	if patients == nil {
		patients = []Patient{}
	}
	return patients
}

// GetByID returns the patient, or nil when missing or unreachable.
func (s *Service) GetByID(ctx context.Context, id string) *Patient {
	var p Patient
	err := s.client.Select(ctx, store.Table(table).Eq("id", id).Single(), &p)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "patient").Str("op", "get").Str("id", id).Msg("store query failed")
		return nil
	}
	return &p
}

// Create inserts a patient and returns the stored row with its generated
// id and timestamps, or nil on failure. The caller supplies the owning
// pharmacist id; the store assigns everything else.
func (s *Service) Create(ctx context.Context, p Patient) *Patient {
	row := map[string]interface{}{
		"name":          p.Name,
		"pharmacist_id": p.PharmacistID,
	}
	if p.Email != "" {
		row["email"] = p.Email
	}
	if p.Phone != "" {
		row["phone"] = p.Phone
	}
	if p.Address != "" {
		row["address"] = p.Address
	}
	if p.DateOfBirth != "" {
		row["date_of_birth"] = p.DateOfBirth
	}
	if p.Notes != "" {
		row["notes"] = p.Notes
	}

	var created Patient
	if err := s.client.Insert(ctx, table, row, &created); err != nil {
		s.logger.Error().Err(err).Str("entity", "patient").Str("op", "create").Msg("store insert failed")
		return nil
	}
	return &created
}

// Update applies the partial fields and returns the full updated row, or
// nil on failure.
func (s *Service) Update(ctx context.Context, id string, fields map[string]interface{}) *Patient {
	var updated Patient
	err := s.client.Update(ctx, store.Table(table).Eq("id", id), fields, &updated)
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "patient").Str("op", "update").Str("id", id).Msg("store update failed")
		return nil
	}
	return &updated
}

// Delete reports whether the deletion succeeded.
func (s *Service) Delete(ctx context.Context, id string) bool {
	err := s.client.Delete(ctx, store.Table(table).Eq("id", id))
	if err != nil {
		s.logger.Error().Err(err).Str("entity", "patient").Str("op", "delete").Str("id", id).Msg("store delete failed")
		return false
	}
	return true
}

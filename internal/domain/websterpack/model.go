package websterpack

import "time"

// Status values a pack may hold. Packs move pending to completed; the
// update path is generic and does not forbid the reverse.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// WebsterPack maps to the webster_packs table. The barcode is the
// scanner-facing unique key; timestamp is the scheduled or recorded
// dosing event time, distinct from the row's created_at.
type WebsterPack struct {
	ID           string     `json:"id"`
	Barcode      string     `json:"barcode"`
	PatientID    string     `json:"patient_id"`
	PharmacistID string     `json:"pharmacist_id"`
	Status       string     `json:"status"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// PackMedication maps to the webster_pack_medications join table: two
// references and nothing else.
type PackMedication struct {
	ID           string     `json:"id"`
	PackID       string     `json:"webster_pack_id"`
	MedicationID string     `json:"medication_id"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// StatusSummary is the pending/completed breakdown of a pack list.
type StatusSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

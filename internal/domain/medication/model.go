package medication

import "time"

// Medication maps to the medications table. Dates travel as plain
// yyyy-mm-dd strings; an empty end_date means the course is open-ended.
type Medication struct {
	ID           string     `json:"id"`
	PatientID    string     `json:"patient_id"`
	Name         string     `json:"name"`
	Dosage       string     `json:"dosage,omitempty"`
	Frequency    string     `json:"frequency,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	StartDate    string     `json:"start_date,omitempty"`
	EndDate      string     `json:"end_date,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

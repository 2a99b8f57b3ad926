package allergy

import "time"

// Allergy maps to the patient_allergies table. Rows are append-only;
// correcting an entry means removing it and adding a new one.
type Allergy struct {
	ID        string     `json:"id"`
	PatientID string     `json:"patient_id"`
	Allergy   string     `json:"allergy"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

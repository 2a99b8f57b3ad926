package patient

import "time"

// Patient maps to the patients table. Ids and timestamps are assigned by
// the store on creation; pharmacist_id is fixed at creation and never
// mutated afterwards.
type Patient struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	DateOfBirth  string     `json:"date_of_birth,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	PharmacistID string     `json:"pharmacist_id"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

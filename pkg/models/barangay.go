package models

type Barangay struct {
	ID           int     `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Municipality string  `json:"municipality" db:"municipality"`
	Details      *string `json:"details" db:"details"`
}

type VaccineDose struct {
	ID           int    `json:"id" db:"id"`
	VaccineName  string `json:"vaccine_name" db:"vaccine_name"`
	DoseCode     string `json:"dose_code" db:"dose_code"`
	DosesPerVial int    `json:"doses_per_vial" db:"doses_per_vial"`
}

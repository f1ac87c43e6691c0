package models

import (
	"time"
	"vaxsync/pkg/metadata"
)

type VaccinationSession struct {
	ID           int                    `json:"id" db:"id"`
	BarangayID   int                    `json:"barangay_id" db:"barangay_id"`
	LotID        int                    `json:"vaccine_id" db:"vaccine_id"` // references inventory_lots.id
	Target       int                    `json:"target" db:"target"`
	Administered int                    `json:"administered" db:"administered"`
	Status       metadata.SessionStatus `json:"status" db:"status"`
	SessionDate  time.Time              `json:"session_date" db:"session_date"`
	Notes        *string                `json:"notes,omitempty" db:"notes"`
	CreatedBy    *int                   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
}

func (s *VaccinationSession) IsOpen() bool {
	return !s.Status.IsTerminal()
}

func (s *VaccinationSession) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   s.ID,
		ResourceType: "vaccination_session",
	}
}

// SessionWithKey is a session joined with the vaccine dose of its lot.
type SessionWithKey struct {
	VaccinationSession
	VaccineDoseID int `json:"vaccine_dose_id" db:"vaccine_dose_id"`
}

func (s *SessionWithKey) Key() LotKey {
	return LotKey{BarangayID: s.BarangayID, VaccineDoseID: s.VaccineDoseID}
}

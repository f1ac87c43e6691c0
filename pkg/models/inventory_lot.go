package models

import (
	"fmt"
	"time"
)

// LotKey identifies every lot of one vaccine dose held by one barangay.
type LotKey struct {
	BarangayID    int `json:"barangay_id"`
	VaccineDoseID int `json:"vaccine_id"`
}

func (k LotKey) String() string {
	return fmt.Sprintf("barangay=%d vaccine=%d", k.BarangayID, k.VaccineDoseID)
}

type InventoryLot struct {
	ID               int        `json:"id" db:"id"`
	BarangayID       int        `json:"barangay_id" db:"barangay_id"`
	VaccineDoseID    int        `json:"vaccine_id" db:"vaccine_dose_id"`
	QuantityOnHand   int        `json:"quantity_on_hand" db:"quantity_on_hand"`
	QuantityReserved int        `json:"quantity_reserved" db:"quantity_reserved"`
	BatchNumber      string     `json:"batch_number" db:"batch_number"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	Source           string     `json:"source" db:"source"`
	Version          int        `json:"version" db:"version"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

func (l *InventoryLot) Key() LotKey {
	return LotKey{BarangayID: l.BarangayID, VaccineDoseID: l.VaccineDoseID}
}

// Validate rejects rows that cannot have been written by this service.
func (l *InventoryLot) Validate() error {
	switch {
	case l.ID <= 0:
		return fmt.Errorf("inventory lot has no id")
	case l.BarangayID <= 0 || l.VaccineDoseID <= 0:
		return fmt.Errorf("inventory lot %d has no barangay/vaccine reference", l.ID)
	case l.QuantityOnHand < 0:
		return fmt.Errorf("inventory lot %d has negative quantity on hand (%d)", l.ID, l.QuantityOnHand)
	case l.QuantityReserved < 0:
		return fmt.Errorf("inventory lot %d has negative reserved quantity (%d)", l.ID, l.QuantityReserved)
	}
	return nil
}

func (l *InventoryLot) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   l.ID,
		ResourceType: "inventory_lot",
	}
}

package models

// LotDeduction is one applied (or planned) decrement of a single lot.
type LotDeduction struct {
	LotID  int `json:"lotId"`
	Amount int `json:"amount"`
}

type LotReservation struct {
	LotID            int `json:"lotId"`
	QuantityReserved int `json:"quantityReserved"`
}

// Reservation is the result of recomputing reserved doses for a LotKey.
type Reservation struct {
	Key              LotKey           `json:"-"`
	QuantityReserved int              `json:"quantityReserved"`
	Lots             []LotReservation `json:"lots"`
}

func (r *Reservation) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   r.Key.VaccineDoseID,
		ResourceType: "reservation",
	}
}

// Deduction groups the lots touched by one Deduct call for audit purposes.
type Deduction struct {
	Key     LotKey
	Records []LotDeduction
}

func (d *Deduction) Total() int {
	total := 0
	for _, record := range d.Records {
		total += record.Amount
	}
	return total
}

func (d *Deduction) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   d.Key.VaccineDoseID,
		ResourceType: "deduction",
	}
}

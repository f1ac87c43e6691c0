package reports

import "time"

type InventorySummary struct {
	BarangayID       int        `json:"barangayId"`
	BarangayName     string     `json:"barangayName"`
	VaccineDoseID    int        `json:"vaccineId"`
	VaccineName      string     `json:"vaccineName"`
	DoseCode         string     `json:"doseCode"`
	QuantityOnHand   int        `json:"quantityOnHand"`
	QuantityReserved int        `json:"quantityReserved"`
	Available        int        `json:"available"`
	LotCount         int        `json:"lotCount"`
	EarliestExpiry   *time.Time `json:"earliestExpiry,omitempty"`
	OverReserved     bool       `json:"overReserved"`
}

// BuildInventorySummary derives availability per key. Reserved may briefly
// exceed on hand; such keys are flagged and report zero available.
func BuildInventorySummary(totals []InventoryTotals) []InventorySummary {
	summaries := make([]InventorySummary, 0, len(totals))
	for _, t := range totals {
		available := t.QuantityOnHand - t.QuantityReserved
		if available < 0 {
			available = 0
		}

		summaries = append(summaries, InventorySummary{
			BarangayID:       t.BarangayID,
			BarangayName:     t.BarangayName,
			VaccineDoseID:    t.VaccineDoseID,
			VaccineName:      t.VaccineName,
			DoseCode:         t.DoseCode,
			QuantityOnHand:   t.QuantityOnHand,
			QuantityReserved: t.QuantityReserved,
			Available:        available,
			LotCount:         t.LotCount,
			EarliestExpiry:   t.EarliestExpiry,
			OverReserved:     t.QuantityReserved > t.QuantityOnHand,
		})
	}

	return summaries
}

var inventorySheetHeader = []interface{}{
	"Barangay", "Vaccine", "Dose", "On hand", "Reserved", "Available", "Lots", "Earliest expiry", "Over reserved",
}

func inventorySheetRows(summaries []InventorySummary) [][]interface{} {
	rows := make([][]interface{}, 0, len(summaries))
	for _, s := range summaries {
		expiry := ""
		if s.EarliestExpiry != nil {
			expiry = s.EarliestExpiry.Format(dateLayout)
		}
		rows = append(rows, []interface{}{
			s.BarangayName,
			s.VaccineName,
			s.DoseCode,
			s.QuantityOnHand,
			s.QuantityReserved,
			s.Available,
			s.LotCount,
			expiry,
			s.OverReserved,
		})
	}
	return rows
}

package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		name   string
		period Period
		in     time.Time
		want   time.Time
		label  string
	}{
		{"monday stays", PeriodWeek, day(2025, time.April, 7), day(2025, time.April, 7), "2025-W15"},
		{"sunday belongs to previous monday", PeriodWeek, day(2025, time.April, 13), day(2025, time.April, 7), "2025-W15"},
		{"week across year end", PeriodWeek, day(2025, time.January, 1), day(2024, time.December, 30), "2025-W01"},
		{"month", PeriodMonth, day(2025, time.April, 30), day(2025, time.April, 1), "2025-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := tt.period.Start(tt.in)
			assert.Equal(t, tt.want, start)
			assert.Equal(t, tt.label, tt.period.Label(start))
		})
	}
}

func TestNewPeriod(t *testing.T) {
	period, err := NewPeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, period)

	period, err = NewPeriod(" Month ")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, period)

	_, err = NewPeriod("quarter")
	assert.Error(t, err)
}

func TestAggregateAdministeredByWeek(t *testing.T) {
	sessions := []CompletedSession{
		{SessionDate: day(2025, time.April, 8), VaccineDoseID: 2, VaccineName: "PCV", DoseCode: "D1", Target: 20, Administered: 18},
		{SessionDate: day(2025, time.April, 10), VaccineDoseID: 2, VaccineName: "PCV", DoseCode: "D1", Target: 10, Administered: 6},
		{SessionDate: day(2025, time.April, 9), VaccineDoseID: 1, VaccineName: "BCG", DoseCode: "D1", Target: 15, Administered: 15},
		{SessionDate: day(2025, time.April, 14), VaccineDoseID: 2, VaccineName: "PCV", DoseCode: "D1", Target: 3, Administered: 1},
	}

	buckets := AggregateAdministered(sessions, PeriodWeek)

	require.Len(t, buckets, 3)
	assert.Equal(t, AdministeredBucket{
		Period: "2025-W15", PeriodStart: day(2025, time.April, 7), VaccineDoseID: 1, VaccineName: "BCG", DoseCode: "D1",
		Sessions: 1, Target: 15, Administered: 15, CoveragePercent: 100,
	}, buckets[0])
	assert.Equal(t, AdministeredBucket{
		Period: "2025-W15", PeriodStart: day(2025, time.April, 7), VaccineDoseID: 2, VaccineName: "PCV", DoseCode: "D1",
		Sessions: 2, Target: 30, Administered: 24, CoveragePercent: 80,
	}, buckets[1])
	assert.Equal(t, "2025-W16", buckets[2].Period)
	assert.Equal(t, 33.3, buckets[2].CoveragePercent)
}

func TestAggregateAdministeredByMonth(t *testing.T) {
	sessions := []CompletedSession{
		{SessionDate: day(2025, time.March, 31), VaccineDoseID: 1, Target: 10, Administered: 12},
		{SessionDate: day(2025, time.April, 1), VaccineDoseID: 1, Target: 10, Administered: 5},
	}

	buckets := AggregateAdministered(sessions, PeriodMonth)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2025-03", buckets[0].Period)
	assert.Equal(t, 120.0, buckets[0].CoveragePercent)
	assert.Equal(t, "2025-04", buckets[1].Period)
	assert.Equal(t, 50.0, buckets[1].CoveragePercent)
}

func TestAggregateAdministeredEmpty(t *testing.T) {
	buckets := AggregateAdministered(nil, PeriodWeek)

	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestBuildInventorySummaryFlagsOverReserved(t *testing.T) {
	expiry := day(2025, time.June, 30)
	summaries := BuildInventorySummary([]InventoryTotals{
		{BarangayID: 1, VaccineDoseID: 2, QuantityOnHand: 50, QuantityReserved: 20, LotCount: 2, EarliestExpiry: &expiry},
		{BarangayID: 1, VaccineDoseID: 3, QuantityOnHand: 5, QuantityReserved: 12, LotCount: 1},
	})

	require.Len(t, summaries, 2)
	assert.Equal(t, 30, summaries[0].Available)
	assert.False(t, summaries[0].OverReserved)
	assert.Equal(t, 0, summaries[1].Available)
	assert.True(t, summaries[1].OverReserved)

	rows := inventorySheetRows(summaries)
	assert.Equal(t, "2025-06-30", rows[0][7])
	assert.Equal(t, "", rows[1][7])
	assert.Equal(t, true, rows[1][8])
}

package reports

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func NewPeriod(value string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(value))) {
	case "", PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("invalid period %q, only valid values are: %s, %s", value, PeriodWeek, PeriodMonth)
	}
}

// Start returns the first day of the bucket containing t: the ISO week's
// Monday or the first of the month.
func (p Period) Start(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if p == PeriodMonth {
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (p Period) Label(start time.Time) string {
	if p == PeriodMonth {
		return start.Format("2006-01")
	}
	year, week := start.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

type AdministeredBucket struct {
	Period          string    `json:"period"`
	PeriodStart     time.Time `json:"periodStart"`
	VaccineDoseID   int       `json:"vaccineId"`
	VaccineName     string    `json:"vaccineName"`
	DoseCode        string    `json:"doseCode"`
	Sessions        int       `json:"sessions"`
	Target          int       `json:"target"`
	Administered    int       `json:"administered"`
	CoveragePercent float64   `json:"coveragePercent"`
}

// AggregateAdministered groups completed sessions per period and vaccine dose,
// ordered by period start and then vaccine dose id.
func AggregateAdministered(sessions []CompletedSession, period Period) []AdministeredBucket {
	type bucketKey struct {
		start         time.Time
		vaccineDoseID int
	}

	buckets := make(map[bucketKey]*AdministeredBucket)
	for _, session := range sessions {
		start := period.Start(session.SessionDate)
		key := bucketKey{start: start, vaccineDoseID: session.VaccineDoseID}

		bucket, ok := buckets[key]
		if !ok {
			bucket = &AdministeredBucket{
				Period:        period.Label(start),
				PeriodStart:   start,
				VaccineDoseID: session.VaccineDoseID,
				VaccineName:   session.VaccineName,
				DoseCode:      session.DoseCode,
			}
			buckets[key] = bucket
		}

		bucket.Sessions++
		bucket.Target += session.Target
		bucket.Administered += session.Administered
	}

	result := make([]AdministeredBucket, 0, len(buckets))
	for _, bucket := range buckets {
		bucket.CoveragePercent = coverage(bucket.Administered, bucket.Target)
		result = append(result, *bucket)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].PeriodStart.Equal(result[j].PeriodStart) {
			return result[i].PeriodStart.Before(result[j].PeriodStart)
		}
		return result[i].VaccineDoseID < result[j].VaccineDoseID
	})

	return result
}

func coverage(administered, target int) float64 {
	if target <= 0 {
		return 0
	}
	return math.Round(float64(administered)/float64(target)*1000) / 10
}

package fleet

import "time"

// Period filters for expense aggregation.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// inPeriod reports whether a date falls in the selected window relative to
// now: same calendar day, trailing seven days, or same calendar month.
func inPeriod(date, now time.Time, period Period) bool {
	switch period {
	case PeriodDaily:
		y1, m1, d1 := date.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case PeriodWeekly:
		return !date.After(now) && now.Sub(date) <= 7*24*time.Hour
	case PeriodMonthly:
		y1, m1, _ := date.Date()
		y2, m2, _ := now.Date()
		return y1 == y2 && m1 == m2
	default:
		return false
	}
}

// TotalByPeriod sums expense amounts falling in the period ending at now.
func TotalByPeriod(expenses []Expense, period Period, now time.Time) float64 {
	var total float64
	for _, exp := range expenses {
		if inPeriod(exp.Date, now, period) {
			total += exp.Amount
		}
	}
	return total
}

// TotalsByCategory sums expense amounts per category over all records.
func TotalsByCategory(expenses []Expense) map[ExpenseCategory]float64 {
	totals := make(map[ExpenseCategory]float64)
	for _, exp := range expenses {
		totals[exp.Category] += exp.Amount
	}
	return totals
}

// TotalsByBus sums expense amounts per bus, dropping buses with no spend.
func TotalsByBus(expenses []Expense) map[string]float64 {
	totals := make(map[string]float64)
	for _, exp := range expenses {
		totals[exp.BusNumber] += exp.Amount
	}
	for bus, amount := range totals {
		if amount == 0 {
			delete(totals, bus)
		}
	}
	return totals
}

// FuelFillSummary aggregates fill records for the fuel report page.
type FuelFillSummary struct {
	TotalLitres  float64 `json:"totalLitres"`
	TotalSpend   float64 `json:"totalSpend"`
	AveragePrice float64 `json:"averagePrice"`
	RecordCount  int     `json:"recordCount"`
}

func SummarizeFuelFills(records []FuelFillRecord) FuelFillSummary {
	var s FuelFillSummary
	for _, rec := range records {
		s.TotalLitres += rec.Quantity
		s.TotalSpend += rec.TotalCost
		s.RecordCount++
	}
	if s.TotalLitres > 0 {
		s.AveragePrice = s.TotalSpend / s.TotalLitres
	}
	return s
}

package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTotalByPeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)
	expenses := []Expense{
		{Amount: 50, Date: now.Add(-2 * time.Hour)},
		{Amount: 30, Date: now.Add(-3 * time.Hour)},
		{Amount: 120, Date: now.AddDate(0, 0, -3)},
		{Amount: 500, Date: now.AddDate(0, 0, -12)},
		{Amount: 900, Date: now.AddDate(0, -1, 0)},
	}

	assert.Equal(t, 80.0, TotalByPeriod(expenses, PeriodDaily, now))
	assert.Equal(t, 200.0, TotalByPeriod(expenses, PeriodWeekly, now))
	assert.Equal(t, 700.0, TotalByPeriod(expenses, PeriodMonthly, now))
	assert.Equal(t, 0.0, TotalByPeriod(expenses, Period("yearly"), now))
}

func TestTotalByPeriodDailyIsCalendarDay(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 30, 0, 0, time.UTC)
	expenses := []Expense{
		// Late yesterday: within 24h but a different calendar day.
		{Amount: 40, Date: now.Add(-2 * time.Hour)},
		{Amount: 10, Date: now.Add(-10 * time.Minute)},
	}
	assert.Equal(t, 10.0, TotalByPeriod(expenses, PeriodDaily, now))
}

func TestTotalsByCategory(t *testing.T) {
	expenses := []Expense{
		{Category: ExpenseFuel, Amount: 100},
		{Category: ExpenseFuel, Amount: 50},
		{Category: ExpenseMaintenance, Amount: 75},
	}
	totals := TotalsByCategory(expenses)
	assert.Equal(t, 150.0, totals[ExpenseFuel])
	assert.Equal(t, 75.0, totals[ExpenseMaintenance])
	assert.Len(t, totals, 2)
}

func TestTotalsByBusDropsZeroSpend(t *testing.T) {
	expenses := []Expense{
		{BusNumber: "B1", Amount: 100},
		{BusNumber: "B1", Amount: 25},
		{BusNumber: "B2", Amount: 60},
		{BusNumber: "B3", Amount: 0},
	}
	totals := TotalsByBus(expenses)
	assert.Equal(t, map[string]float64{"B1": 125, "B2": 60}, totals)
}

func TestSummarizeFuelFills(t *testing.T) {
	records := []FuelFillRecord{
		{Quantity: 40, PricePerLiter: 1.5, TotalCost: 60},
		{Quantity: 60, PricePerLiter: 2.0, TotalCost: 120},
	}
	s := SummarizeFuelFills(records)
	assert.Equal(t, 100.0, s.TotalLitres)
	assert.Equal(t, 180.0, s.TotalSpend)
	assert.Equal(t, 1.8, s.AveragePrice)
	assert.Equal(t, 2, s.RecordCount)
}

func TestSummarizeFuelFillsEmpty(t *testing.T) {
	s := SummarizeFuelFills(nil)
	assert.Equal(t, 0.0, s.AveragePrice)
	assert.Equal(t, 0, s.RecordCount)
}

package core

import "github.com/shopspring/decimal"

// WeekWindow is the Sunday-to-Saturday span containing an anchor date.
// Both ends are inclusive.
type WeekWindow struct {
	Start Date
	End   Date
}

// WeekWindowFor returns the window whose Start is the most recent Sunday at
// or before anchor.
func WeekWindowFor(anchor Date) WeekWindow {
	start := anchor.AddDays(-int(anchor.Weekday()))
	return WeekWindow{Start: start, End: start.AddDays(6)}
}

func (w WeekWindow) Contains(d Date) bool {
	return d.Within(w.Start, w.End)
}

// Days lists the seven dates of the window, Sunday first.
func (w WeekWindow) Days() [7]Date {
	var days [7]Date
	for i := range days {
		days[i] = w.Start.AddDays(i)
	}
	return days
}

// ShiftWeek moves anchor by deltaWeeks whole weeks.
func ShiftWeek(anchor Date, deltaWeeks int) Date {
	return anchor.AddDays(7 * deltaWeeks)
}

// BillsBetween keeps bills dated within [start, end], preserving order.
func BillsBetween(bills []Bill, start, end Date) []Bill {
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if b.Date.Within(start, end) {
			out = append(out, b)
		}
	}
	return out
}

// BillsOn keeps bills dated exactly on day.
func BillsOn(bills []Bill, day Date) []Bill {
	return BillsBetween(bills, day, day)
}

func BillsInWeek(bills []Bill, w WeekWindow) []Bill {
	return BillsBetween(bills, w.Start, w.End)
}

// SumAmounts adds up bill amounts. Negative values never reach a store, but
// are clamped here too so a total cannot go below zero.
func SumAmounts(bills []Bill) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		total = total.Add(b.Amount.NonNegative().Decimal())
	}
	return total
}

// WeeklyTotal formats the summed amounts for display, "0.00" when empty.
func WeeklyTotal(bills []Bill) string {
	return SumAmounts(bills).StringFixed(2)
}

// DailyTotal sums one day's bills.
func DailyTotal(bills []Bill) Amount {
	return NewAmount(SumAmounts(bills))
}

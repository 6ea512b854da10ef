package core

// DayOverview is one calendar cell of the weekly view.
type DayOverview struct {
	Date  Date
	Bills []Bill
	Total Amount
}

// WeekOverview is the derived weekly aggregate shown by the calendar.
type WeekOverview struct {
	Window WeekWindow
	Days   [7]DayOverview
	Count  int
	Total  string
}

// NewWeekOverview buckets bills into the week containing anchor.
func NewWeekOverview(bills []Bill, anchor Date) WeekOverview {
	w := WeekWindowFor(anchor)
	inWeek := BillsInWeek(bills, w)

	ov := WeekOverview{
		Window: w,
		Count:  len(inWeek),
		Total:  WeeklyTotal(inWeek),
	}
	for i, day := range w.Days() {
		dayBills := BillsOn(inWeek, day)
		ov.Days[i] = DayOverview{
			Date:  day,
			Bills: dayBills,
			Total: DailyTotal(dayBills),
		}
	}
	return ov
}

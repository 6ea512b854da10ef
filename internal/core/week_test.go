package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekWindowFor(t *testing.T) {
	// 2025-03-09 is a Sunday.
	for offset := 0; offset < 7; offset++ {
		anchor := NewDate(2025, time.March, 9).AddDays(offset)
		w := WeekWindowFor(anchor)
		assert.Equal(t, NewDate(2025, time.March, 9), w.Start, anchor.String())
		assert.Equal(t, NewDate(2025, time.March, 15), w.End, anchor.String())
		assert.True(t, w.Contains(anchor))
	}
}

func TestWeekWindowAcrossYearBoundary(t *testing.T) {
	d := NewDate(2024, time.January, 1)
	for i := 0; i < 400; i++ {
		w := WeekWindowFor(d)
		require.Equal(t, time.Sunday, w.Start.Weekday(), d.String())
		require.Equal(t, w.Start.AddDays(6), w.End, d.String())
		require.True(t, w.Contains(d), d.String())
		d = d.AddDays(1)
	}
}

func TestWeekWindowAcrossMonthBoundary(t *testing.T) {
	w := WeekWindowFor(NewDate(2025, time.March, 1)) // Saturday
	assert.Equal(t, NewDate(2025, time.February, 23), w.Start)
	assert.Equal(t, NewDate(2025, time.March, 1), w.End)
	assert.Equal(t, NewDate(2025, time.February, 28), w.Days()[5])
}

func TestShiftWeek(t *testing.T) {
	anchor := NewDate(2025, time.March, 12)
	assert.Equal(t, NewDate(2025, time.March, 19), ShiftWeek(anchor, 1))
	assert.Equal(t, NewDate(2025, time.February, 26), ShiftWeek(anchor, -2))
	assert.Equal(t, anchor, ShiftWeek(anchor, 0))
}

func TestWeeklyTotal(t *testing.T) {
	assert.Equal(t, "0.00", WeeklyTotal(nil))

	bills := []Bill{
		{ID: 1, Name: "A", Amount: mustAmount(t, "10.00"), Date: NewDate(2025, 3, 10)},
		{ID: 2, Name: "B", Amount: mustAmount(t, "5.5"), Date: NewDate(2025, 3, 11)},
	}
	assert.Equal(t, "15.50", WeeklyTotal(bills))
}

func TestBillsInWeekIsInclusive(t *testing.T) {
	w := WeekWindowFor(NewDate(2025, time.March, 12))
	bills := []Bill{
		{ID: 1, Name: "before", Date: NewDate(2025, 3, 8)},
		{ID: 2, Name: "sunday", Date: NewDate(2025, 3, 9)},
		{ID: 3, Name: "saturday", Date: NewDate(2025, 3, 15)},
		{ID: 4, Name: "after", Date: NewDate(2025, 3, 16)},
	}
	got := BillsInWeek(bills, w)
	require.Len(t, got, 2)
	assert.Equal(t, BillID(2), got[0].ID)
	assert.Equal(t, BillID(3), got[1].ID)
}

func TestNewWeekOverview(t *testing.T) {
	bills := []Bill{
		{ID: 1, Name: "Water", Amount: mustAmount(t, "45.50"), Date: NewDate(2025, 3, 10)},
		{ID: 2, Name: "Phone", Amount: mustAmount(t, "20"), Date: NewDate(2025, 3, 10)},
		{ID: 3, Name: "Hulu", Amount: mustAmount(t, "7.99"), Date: NewDate(2025, 3, 14)},
		{ID: 4, Name: "Next week", Amount: mustAmount(t, "100"), Date: NewDate(2025, 3, 17)},
	}
	ov := NewWeekOverview(bills, NewDate(2025, time.March, 12))

	assert.Equal(t, 3, ov.Count)
	assert.Equal(t, "73.49", ov.Total)
	assert.Equal(t, "65.50", ov.Days[1].Total.Fixed())
	assert.Len(t, ov.Days[1].Bills, 2)
	assert.Equal(t, "7.99", ov.Days[5].Total.Fixed())
	assert.True(t, ov.Days[0].Total.IsZero())
	assert.Empty(t, ov.Days[6].Bills)
}

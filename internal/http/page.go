package http

import (
	"sort"

	"billtracker/internal/core"
)

// dayCell is one column of the calendar grid.
type dayCell struct {
	Date     core.Date
	Weekday  string
	Label    string
	IsToday  bool
	Count    int
	Total    string
	AddURL   string
	Selected bool
}

type billRow struct {
	ID     core.BillID
	Name   string
	When   string
	Amount string
}

// confirmPrompt re-posts Fields to Action with confirm=true once the user
// agrees.
type confirmPrompt struct {
	Message string
	Action  string
	Fields  []formField
}

type formField struct {
	Name, Value string
}

type indexPage struct {
	View      ViewState
	Title     string
	PrevURL   string
	NextURL   string
	CloseURL  string
	AddURL    string
	TypeURL   string
	DeleteURL string
	Days      []dayCell
	Bills     []billRow
	WeekTotal string
	BillTypes []string
	Notice    string
	Error     string
	Confirm   *confirmPrompt
}

func money(a core.Amount) string {
	return "$" + a.Fixed()
}

func newIndexPage(view ViewState, today core.Date, week core.WeekOverview, types []string) indexPage {
	p := indexPage{
		View:      view,
		Title:     week.Window.Start.Format("Jan 2") + " - " + week.Window.End.Format("Jan 2, 2006"),
		PrevURL:   view.PrevWeek().URL(),
		NextURL:   view.NextWeek().URL(),
		CloseURL:  view.Close().URL(),
		AddURL:    view.AddOn(today).URL(),
		TypeURL:   view.WithMode(DialogCustomType).URL(),
		DeleteURL: view.Close().WithMode(DialogDeleteType).URL(),
		WeekTotal: "$" + week.Total,
		BillTypes: types,
	}

	for _, day := range week.Days {
		p.Days = append(p.Days, dayCell{
			Date:     day.Date,
			Weekday:  day.Date.Format("Mon"),
			Label:    day.Date.Format("Jan 2"),
			IsToday:  day.Date.Equal(today.Time),
			Count:    len(day.Bills),
			Total:    money(day.Total),
			AddURL:   view.AddOn(day.Date).URL(),
			Selected: view.ShowAddBill() && day.Date.Equal(view.Selected.Time),
		})
		for _, b := range day.Bills {
			p.Bills = append(p.Bills, billRow{
				ID:     b.ID,
				Name:   b.Name,
				When:   b.Date.Format("Monday, Jan 2"),
				Amount: money(b.Amount),
			})
		}
	}
	return p
}

func fieldsOf(values map[string]string) []formField {
	fields := make([]formField, 0, len(values))
	for k, v := range values {
		fields = append(fields, formField{Name: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

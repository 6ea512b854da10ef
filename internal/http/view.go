package http

import (
	"net/url"

	"billtracker/internal/core"
)

// DialogMode is the single dialog the week page may show.
type DialogMode int

const (
	DialogNone DialogMode = iota
	DialogAddBill
	DialogCustomType
	DialogDeleteType
)

var dialogModeNames = map[DialogMode]string{
	DialogAddBill:    "add-bill",
	DialogCustomType: "custom-type",
	DialogDeleteType: "delete-type",
}

func (m DialogMode) String() string {
	return dialogModeNames[m]
}

// ParseDialogMode maps a query value to a mode; unknown values close the
// dialog.
func ParseDialogMode(s string) DialogMode {
	for mode, name := range dialogModeNames {
		if name == s {
			return mode
		}
	}
	return DialogNone
}

// ViewState is everything the week page needs from the URL: the week being
// shown, the open dialog and the day preselected in the add form.
type ViewState struct {
	Anchor   core.Date
	Mode     DialogMode
	Selected core.Date
}

// parseViewState reads date, mode and selected. Missing or malformed dates
// fall back to today.
func parseViewState(q url.Values, today core.Date) ViewState {
	v := ViewState{
		Anchor: today,
		Mode:   ParseDialogMode(q.Get("mode")),
	}
	if d, err := core.ParseDate(q.Get("date")); err == nil {
		v.Anchor = d
	}
	if d, err := core.ParseDate(q.Get("selected")); err == nil {
		v.Selected = d
	} else if v.Mode == DialogAddBill {
		v.Selected = today
	}
	return v
}

// URL renders the state back into a page link.
func (v ViewState) URL() string {
	q := url.Values{}
	q.Set("date", v.Anchor.String())
	if v.Mode != DialogNone {
		q.Set("mode", v.Mode.String())
	}
	if v.Mode == DialogAddBill && !v.Selected.IsZero() {
		q.Set("selected", v.Selected.String())
	}
	return "/?" + q.Encode()
}

func (v ViewState) WithMode(m DialogMode) ViewState {
	v.Mode = m
	return v
}

// AddOn opens the add-bill dialog preselecting day.
func (v ViewState) AddOn(day core.Date) ViewState {
	v.Mode = DialogAddBill
	v.Selected = day
	return v
}

func (v ViewState) Close() ViewState {
	v.Mode = DialogNone
	v.Selected = core.Date{}
	return v
}

func (v ViewState) PrevWeek() ViewState {
	return ViewState{Anchor: core.ShiftWeek(v.Anchor, -1)}
}

func (v ViewState) NextWeek() ViewState {
	return ViewState{Anchor: core.ShiftWeek(v.Anchor, 1)}
}

func (v ViewState) ShowAddBill() bool    { return v.Mode == DialogAddBill || v.Mode == DialogCustomType }
func (v ViewState) ShowCustomType() bool { return v.Mode == DialogCustomType }
func (v ViewState) ShowDeleteType() bool { return v.Mode == DialogDeleteType }

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"billtracker/internal/bills"
	"billtracker/internal/core"
	applog "billtracker/internal/log"
	"billtracker/internal/metrics"
	"billtracker/internal/quickadd"
)

// formView restores the page a form was posted from. Forms carry the shown
// week in "week" and the open dialog in "mode".
func (s *Server) formView(p *RequestBodyParser) ViewState {
	v := ViewState{Anchor: s.today(), Mode: ParseDialogMode(p.Get("mode"))}
	if d, err := core.ParseDate(p.Get("week")); err == nil {
		v.Anchor = d
	}
	if d, err := core.ParseDate(p.Get("date")); err == nil {
		v.Selected = d
	}
	return v
}

// redirect sends browsers back to the week page after a mutation.
func redirect(w http.ResponseWriter, r *http.Request, view ViewState, notice string) {
	target := view.URL()
	if notice != "" {
		target += "&notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	list := s.store.ListBills()
	q := r.URL.Query()

	switch {
	case q.Get("date") != "":
		d, err := core.ParseDate(q.Get("date"))
		if err != nil {
			JSONError(http.StatusUnprocessableEntity, "date must be a YYYY-MM-DD date").Write(w)
			return
		}
		list = s.store.FilterByExactDate(d)
	case q.Get("start") != "" || q.Get("end") != "":
		start, err1 := core.ParseDate(q.Get("start"))
		end, err2 := core.ParseDate(q.Get("end"))
		if err1 != nil || err2 != nil {
			JSONError(http.StatusUnprocessableEntity, "start and end must be YYYY-MM-DD dates").Write(w)
			return
		}
		list = s.store.FilterByDateRange(start, end)
	}
	if list == nil {
		list = []core.Bill{}
	}
	NewResponse().JSON(list).Write(w)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, ViewState{Anchor: s.today()}, errMalformedBody, nil)
		return
	}
	view := s.formView(p)

	bill, err := s.store.AddBill(r.Context(), bills.NewBill{
		Name:   p.Get("name"),
		Amount: p.Get("amount"),
		Date:   p.Get("date"),
	})
	if err != nil {
		if view.Mode == DialogNone {
			view.Mode = DialogAddBill
		}
		s.fail(w, r, view, err, nil)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Bill created",
		applog.FieldBillID, int64(bill.ID),
		applog.FieldBillName, bill.Name,
		applog.FieldAmount, bill.Amount.String(),
		applog.FieldDate, bill.Date.String())

	if wantsJSON(r) {
		NewResponse().Status(http.StatusCreated).JSON(bill).Write(w)
		return
	}
	redirect(w, r, ViewState{Anchor: bill.Date}, fmt.Sprintf("Added: %s - %s", bill.Name, money(bill.Amount)))
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	view := parseViewState(r.URL.Query(), s.today()).Close()
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.fail(w, r, view, core.NewValidationError("id", "must be a number"), nil)
		return
	}

	removed, err := s.store.DeleteBill(r.Context(), core.BillID(id))
	if err != nil {
		s.fail(w, r, view, err, nil)
		return
	}
	if wantsJSON(r) {
		if !removed {
			JSONError(http.StatusNotFound, errUnknownBill.Error()).Write(w)
			return
		}
		NewResponse().JSON(map[string]bool{"deleted": true}).Write(w)
		return
	}
	// Deleting an absent bill is a no-op for the page.
	redirect(w, r, view, "")
}

type quickAddJSON struct {
	Bill    core.Bill `json:"bill"`
	Matched bool      `json:"matched"`
	NewType bool      `json:"newType"`
}

// handleQuickAdd creates a bill dated today from "<name> <amount>" text. An
// unknown name answers 409 until the request is repeated with confirm=true.
func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, ViewState{Anchor: s.today()}, errMalformedBody, nil)
		return
	}
	view := s.formView(p).Close()
	text := p.Get("text")

	var confirm quickadd.Confirm
	if p.Confirmed() {
		confirm = quickadd.Always
	}

	res, err := s.adder.Add(r.Context(), text, confirm)
	switch {
	case errors.Is(err, quickadd.ErrDeclined):
		s.metrics.QuickAdd(metrics.QuickAddDeclined)
		entry, _ := quickadd.Parse(text)
		s.fail(w, r, view, err, &confirmPrompt{
			Message: fmt.Sprintf("%q is not in your list. Add it as new?", entry.Name),
			Action:  "/quick-add",
			Fields:  fieldsOf(map[string]string{"text": text, "week": view.Anchor.String()}),
		})
		return
	case err != nil:
		if statusFor(err) < http.StatusInternalServerError {
			s.metrics.QuickAdd(metrics.QuickAddInvalid)
		}
		s.fail(w, r, view, err, nil)
		return
	}

	if res.NewType {
		s.metrics.QuickAdd(metrics.QuickAddNewType)
	} else {
		s.metrics.QuickAdd(metrics.QuickAddAdded)
	}

	if wantsJSON(r) {
		NewResponse().Status(http.StatusCreated).JSON(quickAddJSON{
			Bill:    res.Bill,
			Matched: res.Matched,
			NewType: res.NewType,
		}).Write(w)
		return
	}
	redirect(w, r, ViewState{Anchor: res.Bill.Date},
		fmt.Sprintf("Added: %s - %s", res.Bill.Name, money(res.Bill.Amount)))
}

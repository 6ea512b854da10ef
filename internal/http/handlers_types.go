package http

import (
	"fmt"
	"net/http"

	"billtracker/internal/core"
	applog "billtracker/internal/log"
)

func (s *Server) handleListBillTypes(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.store.BillTypes()).Write(w)
}

// handleAddBillType registers a label. Posted from the custom-type dialog,
// it returns to the add-bill form with the new label selected.
func (s *Server) handleAddBillType(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, ViewState{Anchor: s.today()}, errMalformedBody, nil)
		return
	}
	view := s.formView(p)
	label := p.Get("label")

	added, err := s.store.AddBillType(r.Context(), label)
	if err != nil {
		s.fail(w, r, view, err, nil)
		return
	}
	if !added {
		reason := "already exists"
		if label == "" {
			reason = "is required"
		}
		s.fail(w, r, view, core.NewValidationError("label", reason), nil)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Bill type added", applog.FieldBillType, label)
	if wantsJSON(r) {
		NewResponse().Status(http.StatusCreated).JSON(s.store.BillTypes()).Write(w)
		return
	}
	next := view.Close()
	if view.Mode == DialogCustomType {
		next = view.WithMode(DialogAddBill)
	}
	redirect(w, r, next, fmt.Sprintf("Added %q to bill types", label))
}

// handleDeleteBillType removes a label after confirmation. Bills using the
// label are kept.
func (s *Server) handleDeleteBillType(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, ViewState{Anchor: s.today()}, errMalformedBody, nil)
		return
	}
	view := s.formView(p).Close()
	label := p.Get("label")
	if label == "" {
		s.fail(w, r, view.WithMode(DialogDeleteType), core.NewValidationError("label", "is required"), nil)
		return
	}

	if !p.Confirmed() {
		s.fail(w, r, view, errConfirmRequired, &confirmPrompt{
			Message: fmt.Sprintf("Are you sure you want to delete %q from your bill types?", label),
			Action:  "/bill-types/delete",
			Fields:  fieldsOf(map[string]string{"label": label, "week": view.Anchor.String()}),
		})
		return
	}

	removed, err := s.store.DeleteBillType(r.Context(), label)
	if err != nil {
		s.fail(w, r, view, err, nil)
		return
	}
	if wantsJSON(r) {
		NewResponse().JSON(map[string]bool{"deleted": removed}).Write(w)
		return
	}
	redirect(w, r, view, "")
}

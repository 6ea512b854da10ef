package http

import (
	"bytes"
	"net/http"

	"billtracker/internal/core"
	applog "billtracker/internal/log"
)

func (s *Server) page(view ViewState) indexPage {
	return newIndexPage(view, s.today(), s.week(view.Anchor), s.store.BillTypes())
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page indexPage) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", page); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Unable to render page").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

// handleIndex renders the week view described by the query string.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := parseViewState(r.URL.Query(), s.today())
	page := s.page(view)
	page.Notice = sanitizeInput(r.URL.Query().Get("notice"))
	s.render(w, r, http.StatusOK, page)
}

type dayJSON struct {
	Date  core.Date   `json:"date"`
	Bills []core.Bill `json:"bills"`
	Total core.Amount `json:"total"`
}

type weekJSON struct {
	Start     core.Date `json:"start"`
	End       core.Date `json:"end"`
	Days      []dayJSON `json:"days"`
	BillCount int       `json:"billCount"`
	Total     string    `json:"total"`
}

func toWeekJSON(ov core.WeekOverview) weekJSON {
	out := weekJSON{
		Start:     ov.Window.Start,
		End:       ov.Window.End,
		BillCount: ov.Count,
		Total:     ov.Total,
	}
	for _, d := range ov.Days {
		bills := d.Bills
		if bills == nil {
			bills = []core.Bill{}
		}
		out.Days = append(out.Days, dayJSON{Date: d.Date, Bills: bills, Total: d.Total})
	}
	return out
}

func (s *Server) handleWeekAPI(w http.ResponseWriter, r *http.Request) {
	anchor := s.today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			JSONError(http.StatusUnprocessableEntity, "date must be a YYYY-MM-DD date").Write(w)
			return
		}
		anchor = d
	}
	NewResponse().JSON(toWeekJSON(s.week(anchor))).Write(w)
}

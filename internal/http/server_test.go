package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/backup"
	"billtracker/internal/bills"
	"billtracker/internal/blob/memory"
	"billtracker/internal/cache"
	"billtracker/internal/core"
	"billtracker/internal/metrics"
	"billtracker/internal/middleware/ratelimit"
	"billtracker/internal/quickadd"
)

// Wednesday; its week runs Sun Mar 9 to Sat Mar 15.
var fixedNow = time.Date(2025, time.March, 12, 9, 30, 0, 0, time.UTC)

type fakeShare struct {
	err       error
	filenames []string
}

func (f *fakeShare) Deliver(_ context.Context, filename string, _ []byte) error {
	f.filenames = append(f.filenames, filename)
	return f.err
}

type harness struct {
	srv     *Server
	store   *bills.Store
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, configure ...func(*Deps)) *harness {
	t.Helper()
	weeks := cache.NewWeekCache(8, time.Minute)
	m := metrics.New()
	clock := func() time.Time { return fixedNow }
	store := bills.New(memory.New(),
		bills.WithClock(clock),
		bills.WithNotifier(bills.Notifiers{weeks, m}))
	require.NoError(t, store.Load(context.Background()))

	deps := Deps{Store: store, WeekCache: weeks, Metrics: m, Now: clock}
	for _, c := range configure {
		c(&deps)
	}
	srv, err := NewServer(":0", deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &harness{srv: srv, store: store, metrics: m}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (h *harness) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) postJSON(target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return h.do(req)
}

func (h *harness) addBill(t *testing.T, name, amount, date string) core.Bill {
	t.Helper()
	b, err := h.store.AddBill(context.Background(), bills.NewBill{Name: name, Amount: amount, Date: date})
	require.NoError(t, err)
	return b
}

func billPath(b core.Bill) string {
	return "/bills/" + strconv.FormatInt(int64(b.ID), 10) + "/delete"
}

func TestNewServerRequiresStore(t *testing.T) {
	_, err := NewServer(":0", Deps{})
	assert.Error(t, err)
}

func TestIndexRendersWeek(t *testing.T) {
	h := newHarness(t)
	h.addBill(t, "Water", "45.50", "2025-03-12")
	h.addBill(t, "Netflix", "15.99", "2025-03-20")

	rec := h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Mar 9 - Mar 15, 2025")
	assert.Contains(t, body, "$45.50")
	assert.Contains(t, body, "Wednesday, Mar 12")
	assert.NotContains(t, body, "Netflix</p>")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestIndexNavigatesWeeks(t *testing.T) {
	h := newHarness(t)
	h.addBill(t, "Netflix", "15.99", "2025-03-20")

	rec := h.get("/?date=2025-03-19")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mar 16 - Mar 22, 2025")
	assert.Contains(t, rec.Body.String(), "$15.99")
	assert.Contains(t, rec.Body.String(), "date=2025-03-12")
}

func TestIndexDialogs(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/?mode=add-bill&selected=2025-03-14")
	assert.Contains(t, rec.Body.String(), `name="mode" value="add-bill"`)
	assert.Contains(t, rec.Body.String(), `value="2025-03-14"`)
	assert.NotContains(t, rec.Body.String(), "Delete Bill Type")

	rec = h.get("/?mode=delete-type")
	assert.Contains(t, rec.Body.String(), "Delete Bill Type")
	assert.NotContains(t, rec.Body.String(), `name="mode" value="add-bill"`)

	rec = h.get("/?mode=bogus")
	assert.NotContains(t, rec.Body.String(), `class="modal"`)
}

func TestCreateBillForm(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/bills", url.Values{
		"name": {"Water"}, "amount": {"45.50"}, "date": {"2025-03-20"}, "week": {"2025-03-12"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/?date=2025-03-20"))

	list := h.store.ListBills()
	require.Len(t, list, 1)
	assert.Equal(t, "Water", list[0].Name)
	assert.Equal(t, "45.5", list[0].Amount.String())
}

func TestCreateBillValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"missing name", url.Values{"amount": {"10"}, "date": {"2025-03-12"}}},
		{"bad amount", url.Values{"name": {"Water"}, "amount": {"abc"}, "date": {"2025-03-12"}}},
		{"negative amount", url.Values{"name": {"Water"}, "amount": {"-5"}, "date": {"2025-03-12"}}},
		{"bad date", url.Values{"name": {"Water"}, "amount": {"10"}, "date": {"03/12/2025"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.postForm("/bills", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), "validation failed")
			// The form stays open.
			assert.Contains(t, rec.Body.String(), `name="mode" value="add-bill"`)
		})
	}
	assert.Empty(t, h.store.ListBills())
}

func TestCreateBillJSON(t *testing.T) {
	h := newHarness(t)

	rec := h.postJSON("/bills", `{"name":"Water","amount":45.50,"date":"2025-03-12"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Water", got["name"])
	assert.Equal(t, 45.5, got["amount"])
	assert.Equal(t, "2025-03-12", got["date"])

	rec = h.postJSON("/bills", `{"name":"Water"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.postJSON("/bills", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeekAPI(t *testing.T) {
	h := newHarness(t)
	h.addBill(t, "Water", "45.50", "2025-03-12")
	h.addBill(t, "Electric Bill", "100", "2025-03-09")

	rec := h.get("/api/week?date=2025-03-15")
	require.Equal(t, http.StatusOK, rec.Code)

	var week weekJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
	assert.Equal(t, "2025-03-09", week.Start.String())
	assert.Equal(t, "2025-03-15", week.End.String())
	assert.Equal(t, 2, week.BillCount)
	assert.Equal(t, "145.50", week.Total)
	require.Len(t, week.Days, 7)
	assert.Len(t, week.Days[3].Bills, 1)
	assert.Empty(t, week.Days[1].Bills)

	rec = h.get("/api/week?date=tomorrow")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWeekCacheSeesMutations(t *testing.T) {
	h := newHarness(t)

	var week weekJSON
	require.NoError(t, json.Unmarshal(h.get("/api/week").Body.Bytes(), &week))
	assert.Equal(t, "0.00", week.Total)

	rec := h.postJSON("/bills", `{"name":"Water","amount":"20","date":"2025-03-12"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, json.Unmarshal(h.get("/api/week").Body.Bytes(), &week))
	assert.Equal(t, "20.00", week.Total)
}

func TestListBillsFilters(t *testing.T) {
	h := newHarness(t)
	h.addBill(t, "Water", "45.50", "2025-03-12")
	h.addBill(t, "Phone", "60", "2025-03-20")

	var list []core.Bill
	require.NoError(t, json.Unmarshal(h.get("/api/bills").Body.Bytes(), &list))
	assert.Len(t, list, 2)

	require.NoError(t, json.Unmarshal(h.get("/api/bills?date=2025-03-20").Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Phone", list[0].Name)

	require.NoError(t, json.Unmarshal(h.get("/api/bills?start=2025-03-01&end=2025-03-12").Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Water", list[0].Name)

	require.NoError(t, json.Unmarshal(h.get("/api/bills?date=2024-01-01").Body.Bytes(), &list))
	assert.NotNil(t, list)
	assert.Empty(t, list)

	assert.Equal(t, http.StatusUnprocessableEntity, h.get("/api/bills?start=2025-03-01").Code)
}

func TestDeleteBill(t *testing.T) {
	h := newHarness(t)
	b := h.addBill(t, "Water", "45.50", "2025-03-12")
	target := billPath(b) + "?date=2025-03-12"

	rec := h.postForm(target, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, h.store.ListBills())

	// Absent id is a no-op for browsers and a 404 for API clients.
	assert.Equal(t, http.StatusSeeOther, h.postForm(target, nil).Code)
	req := httptest.NewRequest(http.MethodDelete, billPath(b), nil)
	req.Header.Set("Accept", "application/json")
	assert.Equal(t, http.StatusNotFound, h.do(req).Code)

	assert.Equal(t, http.StatusUnprocessableEntity, h.postForm("/bills/abc/delete", nil).Code)
}

func TestDeleteBillJSON(t *testing.T) {
	h := newHarness(t)
	b := h.addBill(t, "Water", "45.50", "2025-03-12")

	req := httptest.NewRequest(http.MethodDelete, billPath(b), nil)
	req.Header.Set("Accept", "application/json")
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":true}`, rec.Body.String())
}

func TestQuickAddKnownName(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/quick-add", url.Values{"text": {"water 45.50"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	list := h.store.ListBills()
	require.Len(t, list, 1)
	assert.Equal(t, "Water", list[0].Name)
	assert.Equal(t, "2025-03-12", list[0].Date.String())
}

func TestQuickAddUnknownNameNeedsConfirmation(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/quick-add", url.Values{"text": {"Gym 30"}})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "is not in your list")
	assert.Contains(t, rec.Body.String(), `name="confirm" value="true"`)
	assert.Empty(t, h.store.ListBills())
	assert.False(t, h.store.HasBillType("Gym"))

	rec = h.postForm("/quick-add", url.Values{"text": {"Gym 30"}, "confirm": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, h.store.HasBillType("Gym"))
	require.Len(t, h.store.ListBills(), 1)
}

func TestQuickAddJSONErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown name", `{"text":"Gym 30"}`, http.StatusConflict},
		{"no amount", `{"text":"Water"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"text":"Water 0"}`, http.StatusUnprocessableEntity},
		{"confirmed", `{"text":"Gym 30","confirm":true}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.postJSON("/quick-add", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestBillTypes(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/bill-types", url.Values{"label": {"Car Payment"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, h.store.HasBillType("Car Payment"))

	rec = h.postForm("/bill-types", url.Values{"label": {"Car Payment"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")

	var types []string
	require.NoError(t, json.Unmarshal(h.get("/api/bill-types").Body.Bytes(), &types))
	assert.Equal(t, "Car Payment", types[len(types)-1])
}

func TestAddCustomTypeReturnsToAddForm(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/bill-types", url.Values{
		"label": {"Gym"}, "mode": {"custom-type"}, "week": {"2025-03-12"}, "date": {"2025-03-14"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "mode=add-bill")
	assert.Contains(t, loc, "selected=2025-03-14")
}

func TestDeleteBillTypeRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	h.addBill(t, "Hulu", "7.99", "2025-03-12")

	rec := h.postForm("/bill-types/delete", url.Values{"label": {"Hulu"}})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Are you sure")
	assert.True(t, h.store.HasBillType("Hulu"))

	rec = h.postForm("/bill-types/delete", url.Values{"label": {"Hulu"}, "confirm": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, h.store.HasBillType("Hulu"))
	// Bills keep their name.
	assert.Len(t, h.store.ListBills(), 1)

	assert.Equal(t, http.StatusUnprocessableEntity, h.postForm("/bill-types/delete", url.Values{}).Code)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.addBill(t, "Water", "45.50", "2025-03-12")

	rec := h.get("/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="bills-backup-2025-03-12.json"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	env, err := backup.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, backup.Version, env.Version)
	require.Len(t, env.Bills, 1)
	assert.Equal(t, "Water", env.Bills[0].Name)
}

func TestShare(t *testing.T) {
	t.Run("no share target downloads", func(t *testing.T) {
		h := newHarness(t)
		rec := h.postForm("/share", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "bills-share-2025-03-12.json")
	})

	t.Run("shared", func(t *testing.T) {
		share := &fakeShare{}
		h := newHarness(t, func(d *Deps) { d.Share = share })
		rec := h.postForm("/share", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, []string{"bills-2025-03-12.json"}, share.filenames)
		assert.Contains(t, rec.Header().Get("Location"), "notice=")
	})

	t.Run("share failure falls back", func(t *testing.T) {
		share := &fakeShare{err: errors.New("offline")}
		h := newHarness(t, func(d *Deps) { d.Share = share })
		rec := h.postForm("/share", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "bills-share-2025-03-12.json")
	})
}

const importBody = `{"bills":[{"id":1,"name":"Rent","amount":"1200","date":"2025-03-10"},` +
	`{"id":2,"name":"Gym","amount":-5,"date":"2025-03-11"}],` +
	`"billTypes":["Rent","Gym"],"exportDate":"2025-03-01T00:00:00Z","version":"1.0"}`

func multipartImport(t *testing.T, content string, confirm bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "bills-backup.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if confirm {
		require.NoError(t, mw.WriteField("confirm", "true"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	h.addBill(t, "Water", "45.50", "2025-03-12")

	rec := h.do(multipartImport(t, importBody, false))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, h.store.ListBills(), 1)

	beforeBills, beforeTypes := h.store.Snapshot()

	rec = h.do(multipartImport(t, `{"bills":[]}`, true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, beforeBills, h.store.ListBills())
	assert.Equal(t, beforeTypes, h.store.BillTypes())

	rec = h.do(multipartImport(t, `not json`, true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, beforeBills, h.store.ListBills())
	assert.Equal(t, beforeTypes, h.store.BillTypes())

	rec = h.do(multipartImport(t, importBody, true))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	list := h.store.ListBills()
	require.Len(t, list, 2)
	assert.Equal(t, "Rent", list[0].Name)
	assert.Equal(t, "1200", list[0].Amount.String())
	assert.True(t, list[1].Amount.IsZero())
	assert.Equal(t, []string{"Rent", "Gym"}, h.store.BillTypes())
}

func TestImportJSONBody(t *testing.T) {
	h := newHarness(t)

	rec := h.postJSON("/import?confirm=true", importBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bills":2,"billTypes":2}`, rec.Body.String())

	rec = h.postForm("/import", url.Values{"confirm": {"true"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReadyMetrics(t *testing.T) {
	h := newHarness(t)
	h.get("/")

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := h.get(path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	var ready struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(h.get("/readyz").Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Contains(t, ready.Checks, "week_cache")

	rec := h.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `billtracker_http_requests_total{method="GET",route="GET /{$}",status="200"}`)
	assert.Contains(t, rec.Body.String(), "billtracker_week_cache_misses_total")
}

func TestMutationsAreRateLimited(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.RateLimit = ratelimit.Config{RequestsPerMinute: 1} })

	assert.Equal(t, http.StatusSeeOther, h.postForm("/bill-types", url.Values{"label": {"A"}}).Code)
	rec := h.postForm("/bill-types", url.Values{"label": {"B"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, h.get("/").Code)
	assert.Equal(t, http.StatusOK, h.get("/api/bills").Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusNotFound, h.get("/nope").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.postForm("/api/bills", nil).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", core.NewValidationError("name", "is required"), http.StatusUnprocessableEntity},
		{"parse", &core.ParseError{Input: "x", Reason: "no amount"}, http.StatusUnprocessableEntity},
		{"format", &core.FormatError{Reason: "bad"}, http.StatusBadRequest},
		{"declined", fmt.Errorf("quick add: %w", quickadd.ErrDeclined), http.StatusConflict},
		{"not confirmed", backup.ErrNotConfirmed, http.StatusConflict},
		{"malformed", errMalformedBody, http.StatusBadRequest},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
	assert.NotContains(t, messageFor(errors.New("disk full"), http.StatusInternalServerError), "disk")
}

// Package bills owns the bill list and the bill-type list.
//
// The Store is the only writer of both lists. Every successful mutation is
// written through to a blob.ReadWriter before the call returns; if that write
// fails the in-memory state is rolled back and the error is returned, so the
// store and its persisted mirror never diverge on purpose.
package bills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"billtracker/internal/blob"
	"billtracker/internal/core"
	applog "billtracker/internal/log"
)

// Change operations reported to the Notifier.
const (
	OpAddBill        = "add_bill"
	OpDeleteBill     = "delete_bill"
	OpAddBillType    = "add_bill_type"
	OpDeleteBillType = "delete_bill_type"
	OpReplace        = "replace"
)

// Change describes a committed mutation.
type Change struct {
	Op        string
	BillCount int
	TypeCount int
	At        time.Time
}

// Notifier is told about every committed mutation.
type Notifier interface {
	NotifyChanged(ctx context.Context, c Change) error
}

// Notifiers fans a change out to several notifiers. Every notifier is
// called; their errors are joined.
type Notifiers []Notifier

func (ns Notifiers) NotifyChanged(ctx context.Context, c Change) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.NotifyChanged(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Store struct {
	mu       sync.Mutex
	blobs    blob.ReadWriter
	bills    []core.Bill
	types    []string
	lastID   core.BillID
	now      func() time.Time
	notifier Notifier
	logger   *slog.Logger
	validate *validator.Validate
}

type Option func(*Store)

// WithClock overrides time.Now for id assignment and change stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns an empty store seeded with DefaultBillTypes. Call Load to
// hydrate it from blobs.
func New(blobs blob.ReadWriter, opts ...Option) *Store {
	s := &Store{
		blobs:    blobs,
		bills:    []core.Bill{},
		types:    slices.Clone(DefaultBillTypes),
		now:      time.Now,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.WithComponent(nil, applog.ComponentStore)
	}
	return s
}

// Load hydrates the store. A missing bills key means no bills; a missing
// types key keeps the defaults. Text amounts left by older data are coerced.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bills := []core.Bill{}
	data, err := s.blobs.Get(ctx, blob.KeyBills)
	switch {
	case errors.Is(err, blob.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load bills: %w", err)
	default:
		if err := json.Unmarshal(data, &bills); err != nil {
			return &core.FormatError{Reason: "stored bills are not valid JSON", Err: err}
		}
	}

	types := slices.Clone(DefaultBillTypes)
	data, err = s.blobs.Get(ctx, blob.KeyBillTypes)
	switch {
	case errors.Is(err, blob.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load bill types: %w", err)
	default:
		var stored []string
		if err := json.Unmarshal(data, &stored); err != nil {
			return &core.FormatError{Reason: "stored bill types are not valid JSON", Err: err}
		}
		types = dedupe(stored)
	}

	s.bills = normalize(bills)
	s.types = types
	s.lastID = maxID(s.bills)
	s.assignMissingIDs()

	s.logger.InfoContext(ctx, "Bill store hydrated",
		applog.FieldBillCount, len(s.bills),
		applog.FieldTypeCount, len(s.types))
	return nil
}

// AddBill validates the form and appends a new bill with a fresh id. A name
// that is not yet a bill type is registered in the same write, so a failed
// save leaves neither behind.
func (s *Store) AddBill(ctx context.Context, in NewBill) (core.Bill, error) {
	bill, err := s.check(in)
	if err != nil {
		return core.Bill{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var registered bool
	err = s.commit(ctx, OpAddBill, func() {
		bill.ID = s.nextID()
		s.bills = append(s.bills, bill)
		if !slices.Contains(s.types, bill.Name) {
			s.types = append(slices.Clip(s.types), bill.Name)
			registered = true
		}
	})
	if err != nil {
		return core.Bill{}, err
	}
	if registered {
		s.logger.InfoContext(ctx, "Bill type added", applog.FieldBillType, bill.Name)
	}

	s.logger.InfoContext(ctx, "Bill created",
		applog.NewFields().
			WithBill(int64(bill.ID), bill.Name, bill.Amount.String(), bill.Date.String()).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	return bill, nil
}

// DeleteBill removes the bill with id. Unknown ids are a no-op and report false.
func (s *Store) DeleteBill(ctx context.Context, id core.BillID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.bills, func(b core.Bill) bool { return b.ID == id })
	if idx < 0 {
		return false, nil
	}

	err := s.commit(ctx, OpDeleteBill, func() {
		next := make([]core.Bill, 0, len(s.bills)-1)
		next = append(next, s.bills[:idx]...)
		s.bills = append(next, s.bills[idx+1:]...)
	})
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Bill deleted", applog.FieldBillID, int64(id))
	return true, nil
}

// ListBills returns every bill in insertion order.
func (s *Store) ListBills() []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bills)
}

// FilterByDateRange returns bills dated within [start, end].
func (s *Store) FilterByDateRange(start, end core.Date) []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.BillsBetween(s.bills, start, end)
}

func (s *Store) FilterByExactDate(d core.Date) []core.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.BillsOn(s.bills, d)
}

// Week builds the weekly overview around anchor.
func (s *Store) Week(anchor core.Date) core.WeekOverview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.NewWeekOverview(s.bills, anchor)
}

// BillTypes returns the recognised labels in insertion order.
func (s *Store) BillTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.types)
}

// HasBillType reports an exact, case-sensitive match.
func (s *Store) HasBillType(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.types, label)
}

// AddBillType appends label. Empty or already-present labels report false
// and write nothing.
func (s *Store) AddBillType(ctx context.Context, label string) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.types, label) {
		return false, nil
	}
	err := s.commit(ctx, OpAddBillType, func() {
		s.types = append(slices.Clip(s.types), label)
	})
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Bill type added", applog.FieldBillType, label)
	return true, nil
}

// DeleteBillType removes label from the picker. Bills that use it are kept.
func (s *Store) DeleteBillType(ctx context.Context, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.types, label)
	if idx < 0 {
		return false, nil
	}
	err := s.commit(ctx, OpDeleteBillType, func() {
		s.types = slices.Delete(slices.Clone(s.types), idx, idx+1)
	})
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Bill type deleted", applog.FieldBillType, label)
	return true, nil
}

// Replace swaps both lists wholesale. Amounts are clamped to be non-negative,
// duplicate labels in types collapse to their first occurrence, and bills
// without a usable id get a fresh one.
func (s *Store) Replace(ctx context.Context, bills []core.Bill, types []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.commit(ctx, OpReplace, func() {
		s.bills = normalize(bills)
		s.types = dedupe(types)
		s.lastID = maxID(s.bills)
		s.assignMissingIDs()
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Bill store replaced",
		applog.FieldBillCount, len(s.bills),
		applog.FieldTypeCount, len(s.types))
	return nil
}

// Snapshot returns copies of both lists taken under one lock.
func (s *Store) Snapshot() ([]core.Bill, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bills), slices.Clone(s.types)
}

// commit applies a mutation, saves, and rolls back on a failed save.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, op string, apply func()) error {
	prevBills, prevTypes, prevLast := s.bills, s.types, s.lastID

	apply()

	if err := s.save(ctx); err != nil {
		s.bills, s.types, s.lastID = prevBills, prevTypes, prevLast
		// The bills key may already hold the new list; put the old one back.
		if restoreErr := s.save(ctx); restoreErr != nil {
			s.logger.ErrorContext(ctx, "Failed to restore persisted state after write error",
				applog.FieldOperation, op, applog.FieldError, restoreErr)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, op)
	return nil
}

// save writes the full state under both keys.
func (s *Store) save(ctx context.Context) error {
	billsJSON, err := json.Marshal(s.bills)
	if err != nil {
		return fmt.Errorf("encode bills: %w", err)
	}
	typesJSON, err := json.Marshal(s.types)
	if err != nil {
		return fmt.Errorf("encode bill types: %w", err)
	}
	if err := s.blobs.Set(ctx, blob.KeyBills, billsJSON); err != nil {
		return fmt.Errorf("save bills: %w", err)
	}
	if err := s.blobs.Set(ctx, blob.KeyBillTypes, typesJSON); err != nil {
		return fmt.Errorf("save bill types: %w", err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, op string) {
	if s.notifier == nil {
		return
	}
	c := Change{Op: op, BillCount: len(s.bills), TypeCount: len(s.types), At: s.now()}
	if err := s.notifier.NotifyChanged(ctx, c); err != nil {
		// Persistence already succeeded; the mirror will catch up on resync.
		s.logger.WarnContext(ctx, "Failed to publish change notification",
			applog.FieldOperation, op, applog.FieldError, err)
	}
}

// nextID is the current Unix millisecond, bumped past the last id handed out.
func (s *Store) nextID() core.BillID {
	id := core.BillID(s.now().UnixMilli())
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// assignMissingIDs gives a fresh id to every bill whose id is zero or was
// already taken by an earlier bill. Callers hold s.mu and have set lastID.
func (s *Store) assignMissingIDs() {
	seen := make(map[core.BillID]struct{}, len(s.bills))
	for i := range s.bills {
		id := s.bills[i].ID
		if _, dup := seen[id]; id == 0 || dup {
			id = s.nextID()
			s.bills[i].ID = id
		}
		seen[id] = struct{}{}
	}
}

func normalize(in []core.Bill) []core.Bill {
	out := make([]core.Bill, len(in))
	for i, b := range in {
		b.Amount = b.Amount.NonNegative()
		out[i] = b
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func maxID(bills []core.Bill) core.BillID {
	var last core.BillID
	for _, b := range bills {
		if b.ID > last {
			last = b.ID
		}
	}
	return last
}

package quickadd

import (
	"context"
	"errors"
	"log/slog"

	"billtracker/internal/bills"
	"billtracker/internal/core"
	applog "billtracker/internal/log"
)

// ErrDeclined means the name was unknown and registering it was not confirmed.
var ErrDeclined = errors.New("quick add declined: unknown bill name")

// Confirm is asked whether an unknown name should become a new bill type.
type Confirm func(name string) bool

// Always confirms; handy for callers that already obtained consent.
func Always(string) bool { return true }

// Store is the part of bills.Store that quick-add needs.
type Store interface {
	BillTypes() []string
	// AddBill registers an unknown name as a bill type in the same write.
	AddBill(ctx context.Context, in bills.NewBill) (core.Bill, error)
}

// Result describes what a successful quick add did.
type Result struct {
	Bill      core.Bill
	Matched   bool
	NewType   bool
	Candidate string
}

type Adder struct {
	store  Store
	today  func() core.Date
	logger *slog.Logger
}

func NewAdder(store Store, logger *slog.Logger) *Adder {
	return &Adder{
		store:  store,
		today:  core.Today,
		logger: applog.WithComponent(logger, applog.ComponentQuickAdd),
	}
}

// WithToday overrides the local-date source.
func (a *Adder) WithToday(today func() core.Date) *Adder {
	a.today = today
	return a
}

// Add parses text, resolves its name and creates a bill dated today.
//
// Unknown names go through confirm; a nil confirm or a false answer returns
// ErrDeclined and changes nothing. A confirmed name is registered together
// with its bill, so a failed save registers neither.
func (a *Adder) Add(ctx context.Context, text string, confirm Confirm) (Result, error) {
	entry, err := Parse(text)
	if err != nil {
		return Result{}, err
	}
	// "0" passes the token pattern but can never become a bill; fail before
	// a new bill type is registered for it.
	if _, err := core.ParseAmount(entry.Amount); err != nil {
		return Result{}, core.NewValidationError("amount", "must be a positive number")
	}

	res := Result{Candidate: entry.Name}
	name, ok := Match(entry.Name, a.store.BillTypes())
	if ok {
		res.Matched = true
	} else {
		if confirm == nil || !confirm(entry.Name) {
			a.logger.InfoContext(ctx, "Quick add declined", applog.FieldBillName, entry.Name)
			return Result{}, ErrDeclined
		}
		name = entry.Name
		res.NewType = true
	}

	bill, err := a.store.AddBill(ctx, bills.NewBill{
		Name:   name,
		Amount: entry.Amount,
		Date:   a.today().String(),
	})
	if err != nil {
		return Result{}, err
	}
	res.Bill = bill

	a.logger.InfoContext(ctx, "Quick add created bill",
		applog.FieldBillID, int64(bill.ID),
		applog.FieldBillName, bill.Name,
		applog.FieldAmount, bill.Amount.String(),
		"matched", res.Matched)
	return res, nil
}

package bills

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"billtracker/internal/core"
)

// NewBill is the manual-entry form. All fields are raw user text.
type NewBill struct {
	Name   string `json:"name" validate:"required"`
	Amount string `json:"amount" validate:"required"`
	Date   string `json:"date" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check trims the form and converts it into a bill without an id.
func (s *Store) check(in NewBill) (core.Bill, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Amount = strings.TrimSpace(in.Amount)
	in.Date = strings.TrimSpace(in.Date)

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return core.Bill{}, core.NewValidationError(verrs[0].Field(), "is required")
		}
		return core.Bill{}, core.NewValidationError("", err.Error())
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Bill{}, core.NewValidationError("amount", "must be a positive number")
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Bill{}, core.NewValidationError("date", "must be a YYYY-MM-DD date")
	}

	return core.Bill{Name: in.Name, Amount: amount, Date: date}, nil
}

package service

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/store"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
)

// Clock returns the current time. Ledgers never read the system clock directly.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// NewValidator returns a validator aware of the ledger enums and money type.
func NewValidator() *validator.Validate {
	v := validator.New()
	registerLedgerValidations(v)
	return v
}

func registerLedgerValidations(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("fee_category", func(fl validator.FieldLevel) bool {
		return models.FeeCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return models.PaymentMethod(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
}

// ParseDueDate accepts an RFC3339 timestamp or a YYYY-MM-DD date (midnight UTC).
func ParseDueDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid due date %q, expected RFC3339 or YYYY-MM-DD", raw))
}

// ReportRange turns inclusive YYYY-MM-DD bounds into [start of from, end of to].
func ReportRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return start, end.Add(24*time.Hour - time.Millisecond), nil
}

// storeFailure maps a store error onto the domain taxonomy.
func storeFailure(err error, message string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, message)
	case errors.Is(err, store.ErrPreconditionFailed), errors.Is(err, store.ErrAlreadyExists):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	default:
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, message)
	}
}

func validationFailure(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

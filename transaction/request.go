package transaction

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a request leaves the currency empty
const DefaultCurrency = "USD"

// Request carries the caller's input for a new transaction
type Request struct {
	FromAccount string          `json:"fromAccount" validate:"required,max=20"`
	ToAccount   string          `json:"toAccount,omitempty" validate:"omitempty,max=20"`
	Type        Type            `json:"type" validate:"required,oneof=DEPOSIT WITHDRAWAL TRANSFER"`
	Amount      decimal.Decimal `json:"amount" validate:"positive_decimal"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Description string          `json:"description,omitempty" validate:"max=500"`
}

// minor units per ISO 4217 code where they differ from 2
var currencyScale = map[string]int32{
	"BIF": 0, "CLP": 0, "ISK": 0, "JPY": 0, "KRW": 0, "PYG": 0, "UGX": 0, "VND": 0, "XAF": 0, "XOF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// Scale returns how many decimal places amounts in currency may carry
func Scale(currency string) int32 {
	if s, ok := currencyScale[strings.ToUpper(currency)]; ok {
		return s
	}
	return 2
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// decimal.Decimal is a struct, so its positivity needs a custom rule
		_ = v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
			d, ok := fl.Field().Interface().(decimal.Decimal)
			return ok && d.IsPositive()
		})
		validate = v
	})
	return validate
}

// Normalize trims the request and fills defaults
func (r *Request) Normalize() {
	r.FromAccount = strings.TrimSpace(r.FromAccount)
	r.ToAccount = strings.TrimSpace(r.ToAccount)
	r.Type = Type(strings.ToUpper(strings.TrimSpace(string(r.Type))))
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
}

// Validate normalizes the request and checks every field,
// returning a *ValidationError that lists each problem found.
func (r *Request) Validate() error {
	r.Normalize()

	verr := &ValidationError{}
	if err := requestValidator().Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.add(jsonName(fe.Field()), reason(fe))
		}
	}

	switch r.Type {
	case Transfer:
		if r.ToAccount == "" {
			verr.add("toAccount", "is required for transfer transactions")
		} else if r.ToAccount == r.FromAccount {
			verr.add("toAccount", "must differ from fromAccount")
		}
	case Deposit, Withdrawal:
		if r.ToAccount != "" {
			verr.add("toAccount", "is only allowed for transfer transactions")
		}
	}

	if r.Amount.IsPositive() && -r.Amount.Exponent() > Scale(r.Currency) {
		if !r.Amount.Equal(r.Amount.Round(Scale(r.Currency))) {
			verr.add("amount", "has more decimal places than "+r.Currency+" allows")
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "positive_decimal":
		return "must be greater than 0"
	case "oneof":
		return "must be one of " + fe.Param()
	case "len":
		return "must be " + fe.Param() + " characters"
	case "max":
		return "cannot exceed " + fe.Param() + " characters"
	case "alpha":
		return "must contain only letters"
	default:
		return "is invalid"
	}
}

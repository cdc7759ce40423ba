package options

import "github.com/shopspring/decimal"

var _ Range = (*DecimalRange)(nil)

// DecimalRange bounds an amount; either bound is optional and both are inclusive
type DecimalRange struct {
	Low  *decimal.Decimal
	High *decimal.Decimal
}

func (r *DecimalRange) From() (interface{}, bool) {
	if r.Low != nil {
		return r.Low.String(), true
	}
	return nil, false
}

func (r *DecimalRange) To() (interface{}, bool) {
	if r.High != nil {
		return r.High.String(), true
	}
	return nil, false
}

// Contains reports whether v lies within the range
func (r *DecimalRange) Contains(v decimal.Decimal) bool {
	if r.Low != nil && v.LessThan(*r.Low) {
		return false
	}
	if r.High != nil && v.GreaterThan(*r.High) {
		return false
	}
	return true
}

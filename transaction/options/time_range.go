package options

import "time"

var _ Range = (*TimeRange)(nil)

// TimeRange bounds a timestamp; either bound is optional and both are inclusive
type TimeRange struct {
	Low  *time.Time
	High *time.Time
}

func (r *TimeRange) From() (interface{}, bool) {
	if r.Low != nil {
		return *r.Low, true
	}
	return nil, false
}

func (r *TimeRange) To() (interface{}, bool) {
	if r.High != nil {
		return *r.High, true
	}
	return nil, false
}

func (r *TimeRange) Contains(v time.Time) bool {
	if r.Low != nil && v.Before(*r.Low) {
		return false
	}
	if r.High != nil && v.After(*r.High) {
		return false
	}
	return true
}

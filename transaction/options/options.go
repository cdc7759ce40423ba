package options

// TransactionOptions represent options that can be used to configure a Find operation.
// Every set filter must match; values inside one filter are alternatives.
type TransactionOptions struct {
	// filters transactions whose internal id is in this slice
	IDs []int64
	// filters transactions whose transaction id is in this slice
	TransactionIDs []string
	// filters transactions where the account is the source or the destination
	Account string
	// filters transactions in any of these statuses
	Statuses []string
	// filters transactions of any of these types
	Types []string
	// filters transactions that have an amount in this range (inclusive)
	Amount *DecimalRange
	// filters transactions that were created in this range (inclusive)
	CreatedAt *TimeRange
}

func NewTransactionOptions() *TransactionOptions {
	return &TransactionOptions{}
}

func (o *TransactionOptions) SetIDs(v ...int64) *TransactionOptions {
	o.IDs = v
	return o
}

func (o *TransactionOptions) SetTransactionIDs(v ...string) *TransactionOptions {
	o.TransactionIDs = v
	return o
}

func (o *TransactionOptions) SetAccount(v string) *TransactionOptions {
	o.Account = v
	return o
}

func (o *TransactionOptions) SetStatuses(v ...string) *TransactionOptions {
	o.Statuses = v
	return o
}

func (o *TransactionOptions) SetTypes(v ...string) *TransactionOptions {
	o.Types = v
	return o
}

func (o *TransactionOptions) SetAmountRange(v *DecimalRange) *TransactionOptions {
	o.Amount = v
	return o
}

func (o *TransactionOptions) SetTimeRange(v *TimeRange) *TransactionOptions {
	o.CreatedAt = v
	return o
}

// Merge folds several option sets into one, later values winning
func Merge(opts ...*TransactionOptions) *TransactionOptions {
	merged := NewTransactionOptions()
	for _, o := range opts {
		if o == nil {
			continue
		}
		if len(o.IDs) > 0 {
			merged.IDs = o.IDs
		}
		if len(o.TransactionIDs) > 0 {
			merged.TransactionIDs = o.TransactionIDs
		}
		if o.Account != "" {
			merged.Account = o.Account
		}
		if len(o.Statuses) > 0 {
			merged.Statuses = o.Statuses
		}
		if len(o.Types) > 0 {
			merged.Types = o.Types
		}
		if o.Amount != nil {
			merged.Amount = o.Amount
		}
		if o.CreatedAt != nil {
			merged.CreatedAt = o.CreatedAt
		}
	}
	return merged
}

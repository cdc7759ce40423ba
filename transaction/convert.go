package transaction

import (
	api "transactions/api/v1"
)

// RequestFromAPI maps a wire request onto a Request; validation happens later
func RequestFromAPI(req *api.TransactionRequest) *Request {
	return &Request{
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Type:        Type(req.Type),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	}
}

func ToAPI(t *Transaction) *api.Transaction {
	return &api.Transaction{
		Id:            t.ID,
		TransactionId: t.TransactionID,
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Currency:      t.Currency,
		Status:        string(t.Status),
		Description:   t.Description,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

func ListToAPI(ts []*Transaction) []*api.Transaction {
	out := make([]*api.Transaction, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToAPI(t))
	}
	return out
}

// EventsToAPI renders snapshots as JSON text
func EventsToAPI(events []*Event) []*api.TransactionEvent {
	out := make([]*api.TransactionEvent, 0, len(events))
	for _, e := range events {
		out = append(out, &api.TransactionEvent{
			Id:            e.ID,
			TransactionId: e.TransactionID,
			EventType:     e.EventType,
			EventData:     string(e.Data),
			Version:       e.Version,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}

package transaction

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "transactions/api/v1"
	"transactions/transaction/options"
)

// Service is what the transports need from the orchestrator
type Service interface {
	Create(ctx context.Context, req *Request) (*Transaction, error)
	Execute(ctx context.Context, transactionID string) (*Transaction, error)
	Get(ctx context.Context, id int64) (*Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	ListByAccount(ctx context.Context, account string) ([]*Transaction, error)
	List(ctx context.Context, opts ...*options.TransactionOptions) ([]*Transaction, error)
	Events(ctx context.Context, transactionID string) ([]*Event, error)
}

var _ Service = (*Orchestrator)(nil)

// Creates a gRPC server and registers our Server with it
// Give the gRPC server a listener to accept incoming connections
func NewServer(config *ServerConfig, opts ...grpc.ServerOption) (*grpc.Server, error) {
	if config.Service == nil {
		return nil, errors.New("transaction server: nil service")
	}
	grpcServer := grpc.NewServer(opts...)
	Register(grpcServer, config)
	return grpcServer, nil
}

// Register adds the Transactions service to an existing gRPC server
func Register(grpcServer *grpc.Server, config *ServerConfig) {
	api.RegisterTransactionsServer(grpcServer, &Server{service: config.Service})
}

// ServerConfig used to create a new Server
type ServerConfig struct {
	Service Service
}

// guarantee Server satisfies the api.TransactionsServer interface
var _ api.TransactionsServer = (*Server)(nil)

type Server struct {
	service Service
}

// CreateTransaction returns the transaction even when the ledger rejected it;
// the failure is already recorded and shows in its status and failure reason.
func (s *Server) CreateTransaction(ctx context.Context, req *api.TransactionRequest) (*api.TransactionResponse, error) {
	t, err := s.service.Create(ctx, RequestFromAPI(req))
	if err != nil && !recorded(t, err) {
		return nil, grpcError(err)
	}
	return &api.TransactionResponse{Transaction: ToAPI(t)}, nil
}

func (s *Server) ExecuteTransaction(ctx context.Context, req *api.ExecuteTransactionRequest) (*api.TransactionResponse, error) {
	t, err := s.service.Execute(ctx, req.TransactionId)
	if err != nil && !recorded(t, err) {
		return nil, grpcError(err)
	}
	return &api.TransactionResponse{Transaction: ToAPI(t)}, nil
}

func (s *Server) GetTransaction(ctx context.Context, req *api.GetTransactionRequest) (*api.TransactionResponse, error) {
	t, err := s.service.Get(ctx, req.Id)
	if err != nil {
		return nil, grpcError(err)
	}
	return &api.TransactionResponse{Transaction: ToAPI(t)}, nil
}

func (s *Server) GetTransactionByTransactionId(ctx context.Context, req *api.GetTransactionByTransactionIdRequest) (*api.TransactionResponse, error) {
	t, err := s.service.GetByTransactionID(ctx, req.TransactionId)
	if err != nil {
		return nil, grpcError(err)
	}
	return &api.TransactionResponse{Transaction: ToAPI(t)}, nil
}

func (s *Server) ListTransactions(ctx context.Context, req *api.ListTransactionsRequest) (*api.ListTransactionsResponse, error) {
	opts := options.NewTransactionOptions().
		SetStatuses(req.Statuses...).
		SetTypes(req.Types...)

	ts, err := s.service.List(ctx, opts)
	if err != nil {
		return nil, grpcError(err)
	}
	return &api.ListTransactionsResponse{Transactions: ListToAPI(ts)}, nil
}

func (s *Server) ListAccountTransactions(ctx context.Context, req *api.ListAccountTransactionsRequest) (*api.ListTransactionsResponse, error) {
	if req.AccountNumber == "" {
		return nil, status.Error(codes.InvalidArgument, "accountNumber is required")
	}
	ts, err := s.service.ListByAccount(ctx, req.AccountNumber)
	if err != nil {
		return nil, grpcError(err)
	}
	return &api.ListTransactionsResponse{Transactions: ListToAPI(ts)}, nil
}

func (s *Server) ListTransactionEvents(ctx context.Context, req *api.ListTransactionEventsRequest) (*api.ListTransactionEventsResponse, error) {
	events, err := s.service.Events(ctx, req.TransactionId)
	if err != nil {
		return nil, grpcError(err)
	}
	return &api.ListTransactionEventsResponse{Events: EventsToAPI(events)}, nil
}

// recorded reports whether err is a ledger failure already persisted on t
func recorded(t *Transaction, err error) bool {
	var ledgerErr *LedgerError
	return t != nil && t.Status == Failed && errors.As(err, &ledgerErr)
}

// grpcError keeps errors that carry their own status and hides the rest behind Internal
func grpcError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Err()
	}
	return status.Error(codes.Internal, err.Error())
}

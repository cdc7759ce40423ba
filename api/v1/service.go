package api

import (
	"context"

	"google.golang.org/grpc"
)

// The service descriptors below are maintained by hand; messages travel with
// the JSON codec, so every client call forces that content-subtype.

const (
	transactionsService = "transactions.v1.Transactions"
	ledgerService       = "ledger.v1.Ledger"
	logService          = "log.v1.Log"
)

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}

func fullMethod(service, method string) string {
	return "/" + service + "/" + method
}

type unaryHandlerFunc = func(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error)

func unary[S, Req, Resp any](
	service, method string,
	call func(S, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	name := fullMethod(service, method)
	var handler unaryHandlerFunc = func(
		srv interface{},
		ctx context.Context,
		dec func(interface{}) error,
		interceptor grpc.UnaryServerInterceptor,
	) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: name}
		next := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, next)
	}
	return grpc.MethodDesc{MethodName: method, Handler: handler}
}

// TransactionsServer is the API exposed by the transaction service
type TransactionsServer interface {
	CreateTransaction(context.Context, *TransactionRequest) (*TransactionResponse, error)
	ExecuteTransaction(context.Context, *ExecuteTransactionRequest) (*TransactionResponse, error)
	GetTransaction(context.Context, *GetTransactionRequest) (*TransactionResponse, error)
	GetTransactionByTransactionId(context.Context, *GetTransactionByTransactionIdRequest) (*TransactionResponse, error)
	ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsResponse, error)
	ListAccountTransactions(context.Context, *ListAccountTransactionsRequest) (*ListTransactionsResponse, error)
	ListTransactionEvents(context.Context, *ListTransactionEventsRequest) (*ListTransactionEventsResponse, error)
}

var transactionsServiceDesc = grpc.ServiceDesc{
	ServiceName: transactionsService,
	HandlerType: (*TransactionsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(transactionsService, "CreateTransaction", TransactionsServer.CreateTransaction),
		unary(transactionsService, "ExecuteTransaction", TransactionsServer.ExecuteTransaction),
		unary(transactionsService, "GetTransaction", TransactionsServer.GetTransaction),
		unary(transactionsService, "GetTransactionByTransactionId", TransactionsServer.GetTransactionByTransactionId),
		unary(transactionsService, "ListTransactions", TransactionsServer.ListTransactions),
		unary(transactionsService, "ListAccountTransactions", TransactionsServer.ListAccountTransactions),
		unary(transactionsService, "ListTransactionEvents", TransactionsServer.ListTransactionEvents),
	},
	Metadata: "api/v1/transaction.go",
}

func RegisterTransactionsServer(s *grpc.Server, srv TransactionsServer) {
	s.RegisterService(&transactionsServiceDesc, srv)
}

type TransactionsClient interface {
	CreateTransaction(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error)
	ExecuteTransaction(ctx context.Context, in *ExecuteTransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error)
	GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error)
	GetTransactionByTransactionId(ctx context.Context, in *GetTransactionByTransactionIdRequest, opts ...grpc.CallOption) (*TransactionResponse, error)
	ListTransactions(ctx context.Context, in *ListTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error)
	ListAccountTransactions(ctx context.Context, in *ListAccountTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error)
	ListTransactionEvents(ctx context.Context, in *ListTransactionEventsRequest, opts ...grpc.CallOption) (*ListTransactionEventsResponse, error)
}

func NewTransactionsClient(cc grpc.ClientConnInterface) TransactionsClient {
	return &transactionsClient{cc}
}

type transactionsClient struct {
	cc grpc.ClientConnInterface
}

func (c *transactionsClient) CreateTransaction(ctx context.Context, in *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	err := c.cc.Invoke(ctx, fullMethod(transactionsService, "CreateTransaction"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionsClient) ExecuteTransaction(ctx context.Context, in *ExecuteTransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	err := c.cc.Invoke(ctx, fullMethod(transactionsService, "ExecuteTransaction"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionsClient) GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	err := c.cc.Invoke(ctx, fullMethod(transactionsService, "GetTransaction"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionsClient) GetTransactionByTransactionId(ctx context.Context, in *GetTransactionByTransactionIdRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	err := c.cc.Invoke(ctx, fullMethod(transactionsService, "GetTransactionByTransactionId"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionsClient) ListTransactions(ctx context.Context, in *ListTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error) {
	out := new(ListTransactionsResponse)
	err := c.cc.Invoke(ctx, fullMethod(transactionsService, "ListTransactions"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionsClient) ListAccountTransactions(ctx context.Context, in *ListAccountTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error) {
	out := new(ListTransactionsResponse)
	err := c.cc.Invoke(ctx, fullMethod(transactionsService, "ListAccountTransactions"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionsClient) ListTransactionEvents(ctx context.Context, in *ListTransactionEventsRequest, opts ...grpc.CallOption) (*ListTransactionEventsResponse, error) {
	out := new(ListTransactionEventsResponse)
	err := c.cc.Invoke(ctx, fullMethod(transactionsService, "ListTransactionEvents"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LedgerServer is implemented by the external account ledger
type LedgerServer interface {
	AdjustBalance(context.Context, *AdjustBalanceRequest) (*AdjustBalanceResponse, error)
}

var ledgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ledgerService,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ledgerService, "AdjustBalance", LedgerServer.AdjustBalance),
	},
	Metadata: "api/v1/ledger.go",
}

func RegisterLedgerServer(s *grpc.Server, srv LedgerServer) {
	s.RegisterService(&ledgerServiceDesc, srv)
}

type LedgerClient interface {
	AdjustBalance(ctx context.Context, in *AdjustBalanceRequest, opts ...grpc.CallOption) (*AdjustBalanceResponse, error)
}

func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient {
	return &ledgerClient{cc}
}

type ledgerClient struct {
	cc grpc.ClientConnInterface
}

func (c *ledgerClient) AdjustBalance(ctx context.Context, in *AdjustBalanceRequest, opts ...grpc.CallOption) (*AdjustBalanceResponse, error) {
	out := new(AdjustBalanceResponse)
	err := c.cc.Invoke(ctx, fullMethod(ledgerService, "AdjustBalance"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LogServer serves the event topic to consumers
type LogServer interface {
	Consume(context.Context, *ConsumeRequest) (*ConsumeResponse, error)
	ConsumeStream(*ConsumeRequest, Log_ConsumeStreamServer) error
}

type Log_ConsumeStreamServer interface {
	Send(*ConsumeResponse) error
	grpc.ServerStream
}

type logConsumeStreamServer struct {
	grpc.ServerStream
}

func (x *logConsumeStreamServer) Send(m *ConsumeResponse) error {
	return x.ServerStream.SendMsg(m)
}

func logConsumeStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ConsumeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(LogServer).ConsumeStream(m, &logConsumeStreamServer{stream})
}

var logServiceDesc = grpc.ServiceDesc{
	ServiceName: logService,
	HandlerType: (*LogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(logService, "Consume", LogServer.Consume),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ConsumeStream",
			Handler:       logConsumeStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "api/v1/log.go",
}

func RegisterLogServer(s *grpc.Server, srv LogServer) {
	s.RegisterService(&logServiceDesc, srv)
}

type LogClient interface {
	Consume(ctx context.Context, in *ConsumeRequest, opts ...grpc.CallOption) (*ConsumeResponse, error)
	ConsumeStream(ctx context.Context, in *ConsumeRequest, opts ...grpc.CallOption) (Log_ConsumeStreamClient, error)
}

type Log_ConsumeStreamClient interface {
	Recv() (*ConsumeResponse, error)
	grpc.ClientStream
}

func NewLogClient(cc grpc.ClientConnInterface) LogClient {
	return &logClient{cc}
}

type logClient struct {
	cc grpc.ClientConnInterface
}

func (c *logClient) Consume(ctx context.Context, in *ConsumeRequest, opts ...grpc.CallOption) (*ConsumeResponse, error) {
	out := new(ConsumeResponse)
	err := c.cc.Invoke(ctx, fullMethod(logService, "Consume"), in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *logClient) ConsumeStream(ctx context.Context, in *ConsumeRequest, opts ...grpc.CallOption) (Log_ConsumeStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &logServiceDesc.Streams[0], fullMethod(logService, "ConsumeStream"), callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &logConsumeStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type logConsumeStreamClient struct {
	grpc.ClientStream
}

func (x *logConsumeStreamClient) Recv() (*ConsumeResponse, error) {
	m := new(ConsumeResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

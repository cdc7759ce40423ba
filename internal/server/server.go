package server

import (
	"context"
	"errors"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_auth "github.com/grpc-ecosystem/go-grpc-middleware/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	api "transactions/api/v1"
)

const consumeAction = "consume"

var _ api.LogServer = (*grpcServer)(nil)

type Config struct {
	// topics served to consumers, by name
	Topics     map[string]CommitLog
	Authorizer Authorizer
}

// CommitLog is a partitioned topic as seen by consumers
type CommitLog interface {
	Read(partition uint32, offset uint64) (*api.Record, error)
	// Wait blocks until the partition holds offset
	Wait(ctx context.Context, partition uint32, offset uint64) error
}

type Authorizer interface {
	Authorize(subject, object, action string) error
}

type grpcServer struct {
	*Config
}

// NewGRPCServer serves the Log service on a new gRPC server.
// With an Authorizer configured, callers must present a verified client certificate.
func NewGRPCServer(config *Config, opts ...grpc.ServerOption) (*grpc.Server, error) {
	if config.Authorizer != nil {
		opts = append(opts,
			grpc.ChainStreamInterceptor(grpc_middleware.ChainStreamServer(grpc_auth.StreamServerInterceptor(Authenticate))),
			grpc.ChainUnaryInterceptor(grpc_middleware.ChainUnaryServer(grpc_auth.UnaryServerInterceptor(Authenticate))),
		)
	}
	gsrv := grpc.NewServer(opts...)
	if err := Register(gsrv, config); err != nil {
		return nil, err
	}
	return gsrv, nil
}

// Register adds the Log service to an existing gRPC server
func Register(gsrv *grpc.Server, config *Config) error {
	if len(config.Topics) == 0 {
		return errors.New("log server: no topics")
	}
	api.RegisterLogServer(gsrv, &grpcServer{config})
	return nil
}

func (s *grpcServer) topic(name string) (CommitLog, error) {
	topic, ok := s.Topics[name]
	if !ok {
		return nil, api.ErrUnknownTopic{Topic: name}
	}
	return topic, nil
}

func (s *grpcServer) authorize(ctx context.Context, topic string) error {
	if s.Authorizer == nil {
		return nil
	}
	return s.Authorizer.Authorize(subject(ctx), topic, consumeAction)
}

func (s *grpcServer) Consume(ctx context.Context, req *api.ConsumeRequest) (*api.ConsumeResponse, error) {
	if err := s.authorize(ctx, req.Topic); err != nil {
		return nil, err
	}
	topic, err := s.topic(req.Topic)
	if err != nil {
		return nil, err
	}

	record, err := topic.Read(req.Partition, req.Offset)
	if err != nil {
		return nil, err
	}
	return &api.ConsumeResponse{Record: record}, nil
}

// ConsumeStream sends every record of the partition from req.Offset on,
// then keeps waiting for new ones until the client goes away.
func (s *grpcServer) ConsumeStream(req *api.ConsumeRequest, stream api.Log_ConsumeStreamServer) error {
	ctx := stream.Context()
	if err := s.authorize(ctx, req.Topic); err != nil {
		return err
	}
	topic, err := s.topic(req.Topic)
	if err != nil {
		return err
	}

	for offset := req.Offset; ; offset++ {
		if err := topic.Wait(ctx, req.Partition, offset); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		record, err := topic.Read(req.Partition, offset)
		if err != nil {
			return err
		}
		if err = stream.Send(&api.ConsumeResponse{Record: record}); err != nil {
			return err
		}
	}
}

// Authenticate reads the subject out of the client's verified certificate and stores it in the context
func Authenticate(ctx context.Context) (context.Context, error) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return ctx, status.New(codes.Unknown, "couldn't find peer info").Err()
	}
	if p.AuthInfo == nil {
		return ctx, status.New(codes.Unauthenticated, "no transport security used").Err()
	}

	tlsInfo, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok || len(tlsInfo.State.VerifiedChains) == 0 || len(tlsInfo.State.VerifiedChains[0]) == 0 {
		return ctx, status.New(codes.Unauthenticated, "no verified client certificate").Err()
	}
	subject := tlsInfo.State.VerifiedChains[0][0].Subject.CommonName
	return context.WithValue(ctx, subjectContextKey{}, subject), nil
}

func subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectContextKey{}).(string)
	return s
}

type subjectContextKey struct{}

package agent

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/soheilhy/cmux"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	api "transactions/api/v1"
	"transactions/internal/auth"
	"transactions/internal/loadbalance"
	"transactions/internal/log"
	"transactions/internal/publish"
	"transactions/internal/server"
	"transactions/internal/web"
	"transactions/ledger"
	"transactions/transaction"
	"transactions/transaction/memory"
	"transactions/transaction/postgres"
	"transactions/transaction/sqlite"
)

// Stores the agent can run on
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	// directory holding the event topics and the default sqlite database
	DataDir string
	// address gRPC and HTTP clients connect to, e.g. "127.0.0.1:8400"
	BindAddr string

	// one of StoreMemory, StoreSQLite or StorePostgres; memory when empty
	Store      string
	SQLitePath string
	Postgres   *postgres.Config

	// partitions per event topic; 1 when zero
	Partitions uint32
	Segment    log.Config

	// when set, events are also published to this RabbitMQ broker
	AMQPURL      string
	AMQPExchange string
	// bound on events waiting to be published
	PublishQueueSize int

	// comma separated; calls rotate over every address
	LedgerAddr      string
	LedgerTLSConfig *tls.Config
	Ledger          ledger.Config

	ServerTLSConfig *tls.Config
	// authorization config files; consumers need a verified client certificate when set
	ACLModelFile  string
	ACLPolicyFile string

	// how long Shutdown waits for open requests before cutting them off; 10s when zero
	ShutdownTimeout time.Duration

	Logger *zap.Logger
}

// Agent runs one transactions node: stores, event topics, the ledger client,
// and the gRPC and HTTP servers sharing one port.
type Agent struct {
	Config Config

	logger       *zap.Logger
	transactions transaction.TransactionRepo
	events       transaction.EventRepo
	topics       map[string]*log.Topic
	publisher    *publish.AsyncPublisher
	ledger       *ledger.GRPCClient
	orchestrator *transaction.Orchestrator
	// what the servers call; writes are tracked so shutdown can wait for them
	service *inflight

	// multiplexer serving gRPC and HTTP on the same port
	mux    cmux.CMux
	grpcLn net.Listener
	httpLn net.Listener
	server *grpc.Server
	http   *fiber.App

	// run in reverse order on shutdown
	closers []func() error

	shutdown     bool
	shutdownLock sync.Mutex
}

func New(config Config) (*Agent, error) {
	a := &Agent{
		Config: config,
		logger: config.Logger,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	setup := []func() error{
		// order matters here
		a.setupStores,
		a.setupTopics,
		a.setupPublisher,
		a.setupLedger,
		a.setupOrchestrator,
		a.setupMux,
		a.setupServer,
		a.setupHTTP,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			_ = a.Shutdown()
			return nil, err
		}
	}

	go a.serve()

	a.logger.Info("agent started",
		zap.String("addr", a.Addr()),
		zap.String("store", a.store()),
	)
	return a, nil
}

// Addr is where the agent accepts connections
func (a *Agent) Addr() string {
	return a.Config.BindAddr
}

func (a *Agent) store() string {
	if a.Config.Store == "" {
		return StoreMemory
	}
	return a.Config.Store
}

func (a *Agent) serve() {
	if err := a.mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
		a.logger.Error("mux stopped", zap.Error(err))
		_ = a.Shutdown()
	}
}

func (a *Agent) setupStores() error {
	switch a.store() {
	case StoreMemory:
		a.transactions = memory.NewTransactionRepo()
		a.events = memory.NewEventRepo()

	case StoreSQLite:
		path := a.Config.SQLitePath
		if path == "" {
			path = filepath.Join(a.Config.DataDir, "transactions.db")
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.transactions = sqlite.NewTransactionRepo(db)
		a.events = sqlite.NewEventRepo(db)

	case StorePostgres:
		if a.Config.Postgres == nil {
			return errors.New("agent: postgres store needs a postgres config")
		}
		db, err := postgres.Connect(a.Config.Postgres)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if a.transactions, err = transaction.NewPostgresRepo(db); err != nil {
			return err
		}
		if a.events, err = transaction.NewPostgresEventRepo(db); err != nil {
			return err
		}

	default:
		return fmt.Errorf("agent: unknown store %q", a.Config.Store)
	}
	return nil
}

func (a *Agent) setupTopics() error {
	segment := a.Config.Segment
	if segment.Segment.MaxStoreBytes == 0 {
		segment.Segment.MaxStoreBytes = 16 << 20
	}
	if segment.Segment.MaxIndexBytes == 0 {
		segment.Segment.MaxIndexBytes = 1 << 20
	}

	a.topics = make(map[string]*log.Topic)
	for _, name := range []string{transaction.TopicCreated, transaction.TopicCompleted} {
		topic, err := log.NewTopic(filepath.Join(a.Config.DataDir, "topics"), log.TopicConfig{
			Name:       name,
			Partitions: a.Config.Partitions,
			Log:        segment,
		})
		if err != nil {
			return err
		}
		a.topics[name] = topic
		a.closers = append(a.closers, topic.Close)
	}
	return nil
}

func (a *Agent) setupPublisher() error {
	appenders := make(map[string]publish.Appender, len(a.topics))
	for name, topic := range a.topics {
		appenders[name] = topic
	}
	logPublisher, err := publish.NewLogPublisher(appenders, a.logger)
	if err != nil {
		return err
	}
	publishers := publish.Multi{logPublisher}

	if a.Config.AMQPURL != "" {
		exchange := a.Config.AMQPExchange
		if exchange == "" {
			exchange = "transactions"
		}
		amqpPublisher, err := publish.DialAMQP(a.Config.AMQPURL, exchange, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, amqpPublisher.Close)
		publishers = append(publishers, amqpPublisher)
	}

	a.publisher = publish.NewAsyncPublisher(publishers, a.Config.PublishQueueSize, a.logger)
	a.closers = append(a.closers, func() error {
		a.publisher.Close()
		return nil
	})
	return nil
}

func (a *Agent) setupLedger() error {
	if a.Config.LedgerAddr == "" {
		return errors.New("agent: ledger address is required")
	}
	creds := insecure.NewCredentials()
	if a.Config.LedgerTLSConfig != nil {
		creds = credentials.NewTLS(a.Config.LedgerTLSConfig)
	}
	var addrs []string
	for _, addr := range strings.Split(a.Config.LedgerAddr, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	conn, err := grpc.Dial(loadbalance.Target(addrs), grpc.WithTransportCredentials(creds))
	if err != nil {
		return fmt.Errorf("dialing ledger: %w", err)
	}
	a.closers = append(a.closers, conn.Close)

	config := a.Config.Ledger
	if config.Logger == nil {
		config.Logger = a.logger
	}
	a.ledger = ledger.NewGRPCClient(api.NewLedgerClient(conn), config)
	return nil
}

func (a *Agent) setupOrchestrator() error {
	var err error
	a.orchestrator, err = transaction.NewOrchestrator(&transaction.OrchestratorConfig{
		Transactions:  a.transactions,
		Events:        a.events,
		Ledger:        a.ledger,
		Publisher:     a.publisher,
		Logger:        a.logger,
		LedgerTimeout: a.Config.Ledger.Timeout,
	})
	if err != nil {
		return err
	}
	a.service = newInflight(a.orchestrator)
	// runs after both servers stopped and before anything the orchestrator uses closes
	a.closers = append(a.closers, a.service.drain)
	return nil
}

func (a *Agent) shutdownTimeout() time.Duration {
	if a.Config.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return a.Config.ShutdownTimeout
}

// Setup our multiplexer to accept connections
func (a *Agent) setupMux() error {
	ln, err := net.Listen("tcp", a.Config.BindAddr)
	if err != nil {
		return err
	}
	a.mux = cmux.New(ln)
	// matchers are tried in order: HTTP/1 requests go to the gateway, the rest is gRPC
	a.httpLn = a.mux.Match(cmux.HTTP1Fast())
	a.grpcLn = a.mux.Match(cmux.Any())
	a.closers = append(a.closers, func() error {
		a.mux.Close()
		return nil
	})
	return nil
}

func (a *Agent) setupServer() error {
	topics := make(map[string]server.CommitLog, len(a.topics))
	for name, topic := range a.topics {
		topics[name] = topic
	}
	serverConfig := &server.Config{Topics: topics}

	if a.Config.ACLModelFile != "" || a.Config.ACLPolicyFile != "" {
		if a.Config.ServerTLSConfig == nil {
			return errors.New("agent: ACL files need a server TLS config")
		}
		serverConfig.Authorizer = auth.New(a.Config.ACLModelFile, a.Config.ACLPolicyFile)
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpc_recovery.UnaryServerInterceptor(),
			grpc_zap.UnaryServerInterceptor(a.logger),
		),
		grpc.ChainStreamInterceptor(
			grpc_recovery.StreamServerInterceptor(),
			grpc_zap.StreamServerInterceptor(a.logger),
		),
	}
	if a.Config.ServerTLSConfig != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(a.Config.ServerTLSConfig)))
	}

	var err error
	a.server, err = server.NewGRPCServer(serverConfig, opts...)
	if err != nil {
		return err
	}
	transaction.Register(a.server, &transaction.ServerConfig{Service: a.service})
	a.closers = append(a.closers, a.stopServer)

	go func() {
		if err := a.server.Serve(a.grpcLn); err != nil {
			a.logger.Debug("grpc server stopped", zap.Error(err))
		}
	}()
	return nil
}

// stopServer lets running RPCs finish. Consumers holding a stream open
// would keep GracefulStop waiting forever, so they are cut off after the timeout.
func (a *Agent) stopServer() error {
	stopped := make(chan struct{})
	go func() {
		a.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(a.shutdownTimeout()):
		a.logger.Warn("grpc graceful stop timed out, closing open streams")
		a.server.Stop()
		<-stopped
	}
	return nil
}

func (a *Agent) setupHTTP() error {
	var err error
	a.http, err = web.NewApp(&web.Config{Service: a.service, Logger: a.logger})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error {
		return a.http.ShutdownWithTimeout(a.shutdownTimeout())
	})

	go func() {
		if err := a.http.Listener(a.httpLn); err != nil {
			a.logger.Debug("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the servers, waits for running executions, drains pending events
// and closes the stores.
// Calling it more than once is a no-op.
func (a *Agent) Shutdown() error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()

	if a.shutdown {
		return nil
	}
	a.shutdown = true

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

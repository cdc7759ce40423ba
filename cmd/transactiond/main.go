package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"transactions/config"
	"transactions/internal/agent"
	"transactions/internal/logging"
	"transactions/ledger"
	"transactions/transaction/postgres"
)

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "transactiond",
		Short:   "transactiond: orchestrates deposits, withdrawals and transfers against the ledger",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

type cli struct {
	cfg cfg
}

type cfg struct {
	agent.Config
	Logging         logging.Config
	ServerTLSConfig config.TLSConfig
	LedgerTLSConfig config.TLSConfig
}

// Reads the config fields from flags or a file and setups the agent's config
func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", configFile, err)
		}
	}

	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	c.cfg.Logging = logging.Config{
		Level:       viper.GetString("log-level"),
		Format:      viper.GetString("log-format"),
		Development: viper.GetBool("log-development"),
	}

	ac := &c.cfg.Config
	ac.DataDir = viper.GetString("data-dir")
	ac.BindAddr = viper.GetString("bind-addr")
	ac.Store = viper.GetString("store")
	ac.SQLitePath = viper.GetString("sqlite-path")
	ac.Partitions = uint32(viper.GetUint("partitions"))
	ac.AMQPURL = viper.GetString("amqp-url")
	ac.AMQPExchange = viper.GetString("amqp-exchange")
	ac.PublishQueueSize = viper.GetInt("publish-queue-size")
	ac.ShutdownTimeout = viper.GetDuration("shutdown-timeout")
	ac.LedgerAddr = viper.GetString("ledger-addr")
	ac.Ledger = ledger.Config{
		Timeout: viper.GetDuration("ledger-timeout"),
		Breaker: ledger.BreakerConfig{
			ConsecutiveFailures: uint32(viper.GetUint("ledger-breaker-failures")),
			OpenTimeout:         viper.GetDuration("ledger-breaker-open-timeout"),
		},
	}
	ac.ACLModelFile = viper.GetString("acl-model-file")
	ac.ACLPolicyFile = viper.GetString("acl-policy-file")

	if ac.Store == agent.StorePostgres {
		// POSTGRES_* variables, see postgres.Parse
		if ac.Postgres, err = postgres.Parse(nil); err != nil {
			return err
		}
	}

	c.cfg.ServerTLSConfig = config.TLSConfig{
		CAFile:   viper.GetString("server-tls-ca-file"),
		CertFile: viper.GetString("server-tls-cert-file"),
		KeyFile:  viper.GetString("server-tls-key-file"),
	}
	if c.cfg.ServerTLSConfig.CertFile != "" && c.cfg.ServerTLSConfig.KeyFile != "" {
		c.cfg.ServerTLSConfig.Server = true
		if ac.ServerTLSConfig, err = config.SetupTLSConfig(c.cfg.ServerTLSConfig); err != nil {
			return err
		}
	}

	c.cfg.LedgerTLSConfig = config.TLSConfig{
		CAFile:   viper.GetString("ledger-tls-ca-file"),
		CertFile: viper.GetString("ledger-tls-cert-file"),
		KeyFile:  viper.GetString("ledger-tls-key-file"),
	}
	if c.cfg.LedgerTLSConfig.CAFile != "" {
		if ac.LedgerTLSConfig, err = config.SetupTLSConfig(c.cfg.LedgerTLSConfig); err != nil {
			return err
		}
	}

	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(c.cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	c.cfg.Config.Logger = logger

	a, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc // block until the OS terminates the program
	logger.Info("shutting down", zap.String("signal", sig.String()))
	return a.Shutdown()
}

func setupFlags(cmd *cobra.Command) error {
	fs := cmd.Flags()

	fs.String("config-file", "", "Path to config file")

	dataDir := path.Join(os.TempDir(), "transactions")
	fs.String("data-dir", dataDir, "Directory to store event topics and the sqlite database")
	fs.String("bind-addr", fmt.Sprintf("127.0.0.1:%d", 8400), "Address serving gRPC and HTTP")

	fs.String("store", agent.StoreSQLite, "Transaction store: memory, sqlite or postgres (configured by POSTGRES_* variables)")
	fs.String("sqlite-path", "", "Path to the sqlite database, defaults to <data-dir>/transactions.db")

	fs.Uint("partitions", 4, "Partitions per event topic")
	fs.String("amqp-url", "", "RabbitMQ URL; events are also published there when set")
	fs.String("amqp-exchange", "transactions", "RabbitMQ topic exchange")
	fs.Int("publish-queue-size", 1024, "Events buffered for publishing before new ones are dropped")

	fs.String("ledger-addr", "127.0.0.1:8300", "Ledger gRPC address")
	fs.Duration("ledger-timeout", 10*time.Second, "Bound on each ledger call")
	fs.Duration("shutdown-timeout", 10*time.Second, "How long shutdown waits for open requests")
	fs.Uint("ledger-breaker-failures", 5, "Consecutive ledger transport failures that open the breaker")
	fs.Duration("ledger-breaker-open-timeout", 30*time.Second, "How long the breaker stays open")
	fs.String("ledger-tls-cert-file", "", "Path to ledger client tls cert")
	fs.String("ledger-tls-key-file", "", "Path to ledger client tls key")
	fs.String("ledger-tls-ca-file", "", "Path to ledger certificate authority")

	// files in CONFIG_DIR turn on TLS and the ACL unless overridden
	var aclModel, aclPolicy, serverCert, serverKey, serverCA string
	if _, ok := config.Dir(); ok {
		aclModel, aclPolicy = config.ACLModelFile, config.ACLPolicyFile
		serverCert, serverKey, serverCA = config.ServerCertFile, config.ServerKeyFile, config.CAFile
	}
	fs.String("acl-model-file", aclModel, "Path to ACL model")
	fs.String("acl-policy-file", aclPolicy, "Path to ACL policy")
	fs.String("server-tls-cert-file", serverCert, "Path to server tls cert")
	fs.String("server-tls-key-file", serverKey, "Path to server tls key")
	fs.String("server-tls-ca-file", serverCA, "Path to server certificate authority")

	fs.String("log-level", "info", "Log level")
	fs.String("log-format", "json", "Log format: json or console")
	fs.Bool("log-development", false, "Development logging")

	return viper.BindPFlags(cmd.Flags())
}

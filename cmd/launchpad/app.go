package main

import (
	"context"
	"crypto/ed25519"
	"io"
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/code-payments/launchpad-server/pkg/launchpad"
	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger/memory"
	"github.com/code-payments/launchpad-server/pkg/launchpad/wallet"
	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/rate"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

const (
	offlineStartingBalance = 10 * 1_000_000_000
	offlineFaucetRate      = 0.1
	newRelicShutdownWait   = 5 * time.Second
)

// runtime holds everything a command needs to run a workflow.
type runtime struct {
	log     *logrus.Entry
	service *launchpad.Service
	app     *newrelic.Application
	out     io.Writer
}

// newRuntime loads configuration, configures logging and metrics, and wires a
// launchpad.Service against either the configured cluster or an in-memory
// ledger.
func newRuntime(c *cli.Context) (*runtime, error) {
	config, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("cluster") {
		config.Cluster = c.String("cluster")
	}
	if c.IsSet("rpc") {
		config.RPCEndpoint = c.String("rpc")
	}
	if c.IsSet("keypair") {
		config.KeypairPath = c.String("keypair")
	}
	if c.IsSet("log-level") {
		config.LogLevel = c.String("log-level")
	}

	var metricsProvider *newrelic.Application
	if config.NewRelicLicenseKey != "" {
		metricsProvider, err = newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return nil, errors.Wrap(err, "error configuring new relic")
		}
	}

	configureLogger(config, metricsProvider)
	log := logrus.StandardLogger().WithField("type", "cmd/launchpad")

	environment, endpoint, err := resolveEnvironment(config)
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}

	var key ed25519.PrivateKey
	if config.KeypairPath != "" {
		key, err = loadKeypair(config.KeypairPath)
		if err != nil {
			return nil, err
		}
	}

	var approver wallet.Approver
	if c.Bool("yes") {
		approver = wallet.NewAutoApprover()
	} else {
		approver = wallet.NewPromptApprover(os.Stdin, c.App.Writer)
	}

	var l ledger.Ledger
	var submitter wallet.Submitter

	if c.Bool("offline") {
		local := memory.New(memory.WithFaucetLimiter(rate.NewLocalRateLimiter(offlineFaucetRate, 1)))
		if len(key) == ed25519.PrivateKeySize {
			local.Fund(key.Public().(ed25519.PublicKey), offlineStartingBalance)
		}
		l, submitter = local, local
		environment = solana.EnvironmentDev

		log.Info("using in-memory ledger")
	} else {
		client := solana.New(endpoint)
		l, submitter = ledger.NewRPCLedger(client, ledger.WithEnvConfigs()), client

		log.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"cluster":  environment.Cluster(),
		}).Debug("using rpc ledger")
	}

	signer := wallet.NewLocalSigner(key, submitter, approver)

	return &runtime{
		log:     log,
		service: launchpad.NewService(l, signer, environment, launchpad.WithEnvConfigs()),
		app:     metricsProvider,
		out:     c.App.Writer,
	}, nil
}

// run executes fn within a metrics transaction named after the command.
func (r *runtime) run(c *cli.Context, fn func(ctx context.Context) error) error {
	ctx := metrics.NewContext(c.Context, r.app)
	ctx, end := metrics.StartTransaction(ctx, "cli/"+c.Command.Name)

	err := fn(ctx)
	end()

	if r.app != nil {
		r.app.Shutdown(newRelicShutdownWait)
	}
	return err
}

func configureLogger(config *processConfig, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	// Command output goes to stdout, so logs go to stderr.
	logrus.SetOutput(os.Stderr)
}

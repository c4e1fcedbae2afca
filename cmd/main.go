// Command dcabot runs the scheduled dollar-cost-averaging agent.
// On every configured execution hour (UTC) it checks the fiat balance,
// looks up market prices and places limit buy orders for the
// configured basket of currencies. Client order ids derived from the
// scheduling slot keep re-invocations idempotent.
//
// Usage:
//
//	dcabot                     (policy from environment variables)
//	dcabot --config dca.yaml
//	dcabot --setup             (interactive config wizard)
//
// Required environment variables when no --config is given:
//
//	API_KEY, API_SECRET, DCA_CURRENCIES, DCA_AMOUNTS
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jvdwalt/dcabot/config"
	"github.com/jvdwalt/dcabot/internal/clients"
	"github.com/jvdwalt/dcabot/internal/dca"
	"github.com/jvdwalt/dcabot/internal/gateway"
	"github.com/jvdwalt/dcabot/internal/setup"
	"github.com/jvdwalt/dcabot/internal/web"
)

const journalDir = "./journal"

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	runSetup := flag.Bool("setup", false, "run the interactive setup wizard and exit")
	flag.Parse()

	if *runSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// resolve is called again at the start of every run so currency,
	// budget and hour changes apply without a restart. Credentials and
	// platform are fixed for the process lifetime.
	resolve := config.FromEnv
	if *configPath != "" {
		path := *configPath
		resolve = func() (config.Policy, error) { return config.FromYaml(path) }
	}

	policy, err := resolve()
	if err != nil {
		logger.Fatal("failed to resolve configuration", zap.Error(err))
	}

	exchange, err := newExchange(policy)
	if err != nil {
		logger.Fatal("failed to create exchange gateway", zap.Error(err))
	}

	journal, err := dca.NewJournal(journalDir)
	if err != nil {
		logger.Fatal("failed to open run journal", zap.Error(err))
	}
	defer journal.Close()

	runner := dca.NewRunner(exchange, resolve, logger, dca.WithJournal(journal))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return schedule(ctx, runner, logger)
	})

	if policy.TriggerSecret != "" {
		server := web.NewServer(policy.ListenAddr, runner, policy.TriggerSecret, logger)
		g.Go(func() error {
			logger.Info("manual trigger listening", zap.String("addr", policy.ListenAddr))
			return server.Start(ctx)
		})
	}

	logger.Info("started",
		zap.String("platform", policy.Platform),
		zap.Strings("currencies", policy.Currencies),
		zap.Ints("execution_hours", policy.ExecutionHours))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err.Error())
	}
}

// schedule invokes the runner once at startup and then at the top of
// every hour. Off-hours invocations are free: the runner's time gate
// returns before any exchange call.
func schedule(ctx context.Context, runner *dca.Runner, logger *zap.Logger) error {
	if _, err := runner.Run(ctx); err != nil {
		logger.Error("run failed", zap.Error(err))
	}

	for {
		next := time.Now().UTC().Truncate(time.Hour).Add(time.Hour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := runner.Run(ctx); err != nil {
			logger.Error("run failed", zap.Error(err))
		}
	}
}

func newExchange(policy config.Policy) (gateway.Exchange, error) {
	switch policy.Platform {
	case "valr":
		return gateway.NewValrGateway(clients.NewValrClient(policy.APIKey, policy.APISecret)), nil
	case "binance":
		return gateway.NewBinanceGateway(clients.NewBinanceClient(policy.APIKey, policy.APISecret)), nil
	case "bybit":
		return gateway.NewBybitGateway(clients.NewBybitClient(policy.APIKey, policy.APISecret)), nil
	default:
		return nil, errors.Errorf("unsupported platform: %s", policy.Platform)
	}
}

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/broker/alpaca"
	"github.com/quantpipe/quantpipe/broker/sim"
	"github.com/quantpipe/quantpipe/compliance"
	"github.com/quantpipe/quantpipe/config"
	"github.com/quantpipe/quantpipe/execution"
	"github.com/quantpipe/quantpipe/internal/obs"
	"github.com/quantpipe/quantpipe/journal"
	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/marketdata"
	"github.com/quantpipe/quantpipe/orchestrator"
	"github.com/quantpipe/quantpipe/risk"
	sig "github.com/quantpipe/quantpipe/signal"
)

type runFlags struct {
	paper       bool
	enable      bool
	metricsAddr string
}

func newRunCmd(root *RootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(root, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.paper, "paper", true, "Use the paper trading environment")
	cmd.Flags().BoolVar(&flags.enable, "enable-trading", false, "Arm live order submission (default: simulate intents)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")

	return cmd
}

func runPipeline(root *RootFlags, flags *runFlags) error {
	cfg := config.Default()
	if root.ConfigPath != "" {
		loaded, err := config.LoadFromFile(root.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log, err := newLogger(root.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	b, barSource, tickSource, err := newBroker(cfg, flags.paper)
	if err != nil {
		return err
	}

	jnl, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jnl.Close()

	ocfg := cfg.OrchestratorConfig()

	md := marketdata.NewEngine(log, marketdata.DefaultCapacity)
	signals := sig.NewEngine(barSource, sig.HeuristicScorer{}, md, log)
	rsk := risk.NewEngine(b, cfg.RiskLimits(), log)
	cmp := compliance.NewEngine(b, cfg.ComplianceConfig(), ocfg.Hours, jnl, log)
	exe := execution.NewEngine(b, cfg.ExecutionConfig(), log)
	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)

	o := orchestrator.New(ocfg, signals, rsk, cmp, exe, md, metrics, log)
	o.EnableTrading(flags.enable)

	if flags.metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("serving metrics", zap.String("addr", flags.metricsAddr))
			if err := http.ListenAndServe(flags.metricsAddr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := o.Start(ctx); err != nil {
		return err
	}
	o.StartTickPolling(ctx, tickSource, tickPollInterval)
	log.Info("pipeline running",
		zap.Strings("universe", cfg.Universe),
		zap.Bool("trading_enabled", flags.enable))

	<-ctx.Done()
	log.Info("shutting down")
	o.Stop()
	return nil
}

// tickPollInterval is the cadence at which the run command polls the tick
// source for the universe while the market is open.
const tickPollInterval = 5 * time.Second

// newBroker builds the configured brokerage. The sim backend doubles as the
// bar and tick source; alpaca serves both from its data API.
func newBroker(cfg *config.Config, paper bool) (broker.Broker, market.BarSource, market.TickSource, error) {
	switch cfg.Broker.Type {
	case "sim":
		s := sim.New(broker.Account{
			ID:          "SIM-001",
			Equity:      100000,
			Cash:        100000,
			BuyingPower: 100000,
		})
		return s, s, s, nil
	case "alpaca":
		keyID, secret := cfg.Broker.Credentials()
		if keyID == "" || secret == "" {
			return nil, nil, nil, fmt.Errorf("alpaca credentials missing: set broker.key_id/secret_key or APCA_API_KEY_ID/APCA_API_SECRET_KEY")
		}
		c := alpaca.NewClient(keyID, secret, paper || cfg.Broker.Paper)
		return c, c, c, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown broker type %q", cfg.Broker.Type)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"StockPredictor/internal/di"
	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	"StockPredictor/internal/services/model"
	"StockPredictor/internal/usecase"
	"StockPredictor/pkg/config"
	"StockPredictor/pkg/server"
)

const defaultConfigPath = "config/config.yaml"

func newRootCmd(ctx context.Context) *cobra.Command {
	var (
		configPath string
		cfg        *config.Config
	)
	root := &cobra.Command{
		Use:           "stockpred",
		Short:         "Equity direction prediction: train, backtest and serve",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file path")

	get := func() *config.Config { return cfg }
	root.AddCommand(trainCmd(ctx, get))
	root.AddCommand(backtestCmd(ctx, get))
	root.AddCommand(serveCmd(ctx, get))
	root.AddCommand(ingestCmd(ctx, get))
	return root
}

// loadConfig reads path; a missing default file falls back to built-in defaults.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("config load failed: %w", err)
}

func trainCmd(ctx context.Context, cfg func() *config.Config) *cobra.Command {
	var symbol, period string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a model on the symbol's history and save the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			p, cleanup, err := di.InitializePipeline(c)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := p.Train(ctx, pick(symbol, c.DataSource.Symbol), domrepo.NormalizePeriod(pick(period, c.DataSource.Period)))
			if err != nil {
				return err
			}
			printTraining(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "ticker (defaults to data_source.symbol)")
	cmd.Flags().StringVar(&period, "period", "", "lookback: 1mo 3mo 6mo 1y 2y 5y 10y max")
	return cmd
}

func backtestCmd(ctx context.Context, cfg func() *config.Config) *cobra.Command {
	var (
		modelPath, symbol, period, regime string
		testOnly                          bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a saved model's signals through the backtest engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			var forced models.VolatilityRegime
			switch regime {
			case "", "model", "auto":
			default:
				r, ok := models.ParseRegime(regime)
				if !ok {
					return fmt.Errorf("--regime must be model, auto or a regime name, got %q", regime)
				}
				forced = r
			}
			if modelPath == "latest" {
				latest, err := model.LatestArtifact(c.ModelDir)
				if err != nil {
					return err
				}
				modelPath = latest
			}
			p, cleanup, err := di.InitializePipeline(c)
			if err != nil {
				return err
			}
			defer cleanup()

			req := usecase.BacktestRequest{
				ModelPath:  modelPath,
				Symbol:     symbol,
				TestOnly:   testOnly,
				RegimeAuto: regime == "auto",
				Regime:     forced,
			}
			if period != "" {
				req.Period = domrepo.NormalizePeriod(period)
			}
			out, err := p.Backtest(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "regime %s, %d trades, final equity %.2f\n",
				out.Regime, out.Report.NumTrades, out.Report.FinalEquity)
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model-path", "", "artifact file, or \"latest\"")
	cmd.Flags().StringVar(&symbol, "symbol", "", "ticker (defaults to the model's symbol)")
	cmd.Flags().StringVar(&period, "period", "", "lookback (defaults to the model's period)")
	cmd.Flags().BoolVar(&testOnly, "test-only", false, "replay only the chronological test fold")
	cmd.Flags().StringVar(&regime, "regime", "model", "risk regime: model (stored at training), auto, or LOW|MEDIUM|HIGH|VERY_HIGH")
	_ = cmd.MarkFlagRequired("model-path")
	return cmd
}

func serveCmd(ctx context.Context, cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions and the run ledger over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := di.InitializeApp(cfg())
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			app.OnShutdown("resources", server.CloseFunc(func() error {
				cleanup()
				return nil
			}))
			return app.Run(ctx)
		},
	}
}

func ingestCmd(ctx context.Context, cfg func() *config.Config) *cobra.Command {
	var (
		symbols []string
		period  string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Copy daily bars from Yahoo into the ClickHouse bar table",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			ing, cleanup, err := di.InitializeIngestor(c)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(symbols) == 0 {
				symbols = []string{c.DataSource.Symbol}
			}
			res, err := ing.Ingest(ctx, symbols, domrepo.NormalizePeriod(pick(period, c.DataSource.Period)))
			if res != nil {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for sym, n := range res.Written {
					fmt.Fprintf(w, "%s\t%d rows\n", sym, n)
				}
				for sym, ferr := range res.Failed {
					fmt.Fprintf(w, "%s\tfailed: %v\n", sym, ferr)
				}
				_ = w.Flush()
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "tickers to ingest (defaults to data_source.symbol)")
	cmd.Flags().StringVar(&period, "period", "max", "lookback to fetch")
	return cmd
}

func printTraining(w io.Writer, out *usecase.TrainOutcome) {
	res := out.Result
	fmt.Fprintf(w, "model saved to %s\n", out.Path)
	fmt.Fprintf(w, "regime %s (annualized sigma %.2f%%)\n", out.Artifact.Regime(), out.Artifact.Profile.SigmaAnnual*100)
	fmt.Fprintf(w, "rows: %d train, %d test (test from %s)\n", res.TrainRows, res.TestRows, res.TestStart.Format("2006-01-02"))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "fold\taccuracy\tprecision\trecall\tf1")
	fmt.Fprintf(tw, "train\t%.4f\t%.4f\t%.4f\t%.4f\n", res.TrainMetrics.Accuracy, res.TrainMetrics.Precision, res.TrainMetrics.Recall, res.TrainMetrics.F1)
	fmt.Fprintf(tw, "test\t%.4f\t%.4f\t%.4f\t%.4f\n", res.TestMetrics.Accuracy, res.TestMetrics.Precision, res.TestMetrics.Recall, res.TestMetrics.F1)
	_ = tw.Flush()

	fmt.Fprintln(w, "top features:")
	for i, fi := range res.Importances {
		if i == 10 {
			break
		}
		fmt.Fprintf(w, "  %2d. %-24s %.4f\n", i+1, fi.Feature, fi.Importance)
	}
}

func pick(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/api/rest"
	"github.com/fortuna/propscout/internal/config"
	"github.com/fortuna/propscout/internal/logger"
	"github.com/fortuna/propscout/internal/pipeline"
	"github.com/fortuna/propscout/internal/publisher"
	"github.com/fortuna/propscout/internal/schedule"
	"github.com/fortuna/propscout/internal/scheduler"
	"github.com/fortuna/propscout/internal/scoring"
)

const serviceName = "propscout"

type globals struct {
	cfg    *config.Config
	logger *zap.Logger
	debug  bool
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Score the day's player prop lines",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if g.debug {
				cfg.Debug = true
			}
			log, err := logger.New(cfg.Debug)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			g.cfg = cfg
			g.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(scoreCommand(g), serveCommand(g), restCommand(g))
	return rootCmd
}

func scoreCommand(g *globals) *cobra.Command {
	var (
		format  string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Fetch today's board, score it once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be table or json, got %q", format)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := pipeline.NewRunner(a.sources, g.cfg.Scoring(), g.logger).Run(ctx)
			if err != nil {
				return err
			}

			if publish {
				client, err := publisher.NewRedisClient(ctx, g.cfg.RedisURL)
				if err != nil {
					return err
				}
				defer client.Close()
				if _, err := publisher.NewRedisStreamPublisher(client, g.logger).PublishBoard(ctx, report); err != nil {
					return err
				}
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeTable(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&publish, "publish", false, "Also append the board to the Redis stream")
	return cmd
}

func serveCommand(g *globals) *cobra.Command {
	var noPublish bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Score daily on a schedule and serve the latest board over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := g.logger
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := buildApp(ctx, g.cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			var boardPublisher scheduler.BoardPublisher
			if !noPublish {
				client, err := publisher.NewRedisClient(ctx, g.cfg.RedisURL)
				if err != nil {
					return err
				}
				defer client.Close()
				boardPublisher = publisher.NewRedisStreamPublisher(client, log)
				log.Info("connected to Redis")
			}

			runner := pipeline.NewRunner(a.sources, g.cfg.Scoring(), log)
			schedConfig := scheduler.DefaultConfig()
			schedConfig.DailyRunHour = g.cfg.DailyRunHour
			sched := scheduler.NewOrchestrator(runner, boardPublisher, schedConfig, log)
			schedDone := startScheduler(ctx, sched.Start)

			restServer := rest.NewServer(g.cfg.RESTPort, rest.NewHandler(sched, a.teams), log)
			go func() {
				log.Info("REST API listening", zap.String("port", g.cfg.RESTPort))
				if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("REST server error", zap.Error(err))
					cancel()
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigChan:
			case <-ctx.Done():
			}

			log.Info("shutting down")
			sched.Stop()
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := restServer.Shutdown(shutdownCtx); err != nil {
				log.Error("REST server shutdown error", zap.Error(err))
			}

			// a run in flight still holds the store and the Redis client
			<-schedDone
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "Do not publish boards to Redis")
	return cmd
}

// startScheduler runs start in its own goroutine; the returned channel closes once it returns
func startScheduler(ctx context.Context, start func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		start(ctx)
	}()
	return done
}

func restCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rest TEAM",
		Short: "Show a team's rest situation going into today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team := strings.ToUpper(args[0])

			a, err := buildApp(cmd.Context(), g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			games, err := a.teams.TeamGames(cmd.Context(), team)
			if err != nil {
				return err
			}
			situation, err := schedule.Classify(team, games, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (last game %s, recent %s)\n",
				situation.Situation.Describe(team), situation.LastGame, strings.Join(situation.RecentDays, ", "))
			return nil
		},
	}
}

func writeTable(w io.Writer, report *scoring.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPOS\tOPP\tTYPE\tLINE\tPOISSON\tDVP\tDVP_SCALED\tSCORE")
	for _, r := range report.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			r.Name, r.Position, r.Opponent, r.ProjectionType, r.SetLine,
			r.PoissonOdds, r.DvpMetric, r.DvpMetricScaled, r.ModelScore)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Excluded) > 0 || len(report.Warnings) > 0 {
		fmt.Fprintf(w, "\n%d scored, %d excluded, %d dvp fallbacks\n",
			len(report.Rows), len(report.Excluded), len(report.Warnings))
	}
	return nil
}

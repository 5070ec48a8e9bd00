// Command simulate runs the aid delivery simulation from the command line
// and writes the round, parcel and ward reports.
package main

import (
	"aid-delivery-sim/internal/adapters/repositories"
	"aid-delivery-sim/internal/config"
	"aid-delivery-sim/internal/domain"
	"aid-delivery-sim/internal/platform/obs"
	"aid-delivery-sim/internal/ports"
	"aid-delivery-sim/internal/report"
	"aid-delivery-sim/internal/runs"
	"aid-delivery-sim/internal/scenario"
	"aid-delivery-sim/internal/services"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

type options struct {
	req       runs.Request
	reportDir string
	jsonOut   string
	dbPath    string
	logLevel  string
	// concurrent replications
	parallelism int
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	config.LoadEnv()

	settings, err := config.LoadSettings()
	if err != nil {
		return options{}, err
	}
	p, err := config.SimParams()
	if err != nil {
		return options{}, err
	}
	grid := scenario.DefaultGrid()

	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	var (
		opts     options
		strategy = string(p.Strategy)
	)

	fs.StringVar(&opts.req.ScenarioPath, "scenario", settings.ScenarioPath, "scenario YAML file; a grid is generated when empty")
	fs.IntVar(&grid.Rows, "rows", grid.Rows, "grid rows")
	fs.IntVar(&grid.Cols, "cols", grid.Cols, "grid columns")
	fs.Float64Var(&grid.Spacing, "spacing", grid.Spacing, "distance between grid nodes")
	fs.IntVar(&grid.Depots, "depots", grid.Depots, "depots on the grid")
	fs.IntVar(&grid.Wards, "wards", grid.Wards, "wards on the grid")
	fs.IntVar(&grid.MaxHouseholds, "max-households", grid.MaxHouseholds, "largest ward on the grid")

	fs.Int64VarP(&p.Seed, "seed", "s", p.Seed, "random seed")
	fs.IntVarP(&p.Ticks, "ticks", "t", p.Ticks, "ticks to simulate")
	fs.IntVarP(&p.Drivers, "drivers", "d", p.Drivers, "number of drivers")
	fs.IntVarP(&p.Bays, "bays", "b", p.Bays, "loading bays per depot")
	fs.IntVar(&p.ManifestSize, "manifest-size", p.ManifestSize, "households per load")
	fs.IntVar(&p.LoadsPerRound, "loads-per-round", p.LoadsPerRound, "loads a driver takes per round")
	fs.Float64Var(&p.LoadingTime, "loading-time", p.LoadingTime, "ticks a driver spends in a bay")
	fs.Float64Var(&p.DeliveryTime, "delivery-time", p.DeliveryTime, "ticks spent at each drop")
	fs.Float64Var(&p.ProbFailedDelivery, "p-fail", p.ProbFailedDelivery, "chance a delivery attempt fails")
	fs.Float64Var(&p.ProbBreakdown, "p-breakdown", p.ProbBreakdown, "chance per tick a moving vehicle breaks down")
	fs.StringVar(&strategy, "strategy", strategy, "batch order: fifo, distance, priority, vulnerability or random")
	fs.IntVarP(&opts.req.Replications, "replications", "n", 1, "runs with consecutive seeds")

	fs.StringVarP(&opts.reportDir, "report-dir", "o", settings.ReportDir, "directory for the text reports; skipped when empty")
	fs.StringVar(&opts.jsonOut, "json", "", "write all records as JSON to this file, - for stdout")
	fs.StringVar(&opts.dbPath, "db", "", "also store the records in this sqlite database")
	fs.StringVar(&opts.logLevel, "log-level", settings.LogLevel, "error, info, debug or trace")
	fs.IntVarP(&opts.parallelism, "parallel", "j", settings.Parallelism, "replications run at once")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments %v", fs.Args())
	}

	p.Strategy, err = services.ParseBatchStrategy(strategy)
	if err != nil {
		return options{}, err
	}
	if err := p.Validate(); err != nil {
		return options{}, err
	}

	opts.req.Params = p
	opts.req.Grid = grid
	return opts, nil
}

func run(args []string, stdout io.Writer) (err error) {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	logger, err := obs.NewLogger(opts.logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = obs.IntoContext(ctx, logger)

	var repo ports.RecordRepository
	if opts.dbPath != "" {
		conn, err := sql.Open("sqlite", opts.dbPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", opts.dbPath, err)
		}
		conn.SetMaxOpenConns(1)
		defer func() { err = multierr.Append(err, conn.Close()) }()

		if err := repositories.InitSchema(conn); err != nil {
			return err
		}
		repo = repositories.NewSqliteRecordRepository(conn)
	}

	recs, err := runs.NewService(repo, opts.parallelism).Run(ctx, opts.req)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		printSummary(stdout, rec.Summary)

		if opts.reportDir == "" {
			continue
		}
		p := opts.req.Params
		p.Seed = rec.Summary.Seed
		paths, err := report.WriteAll(opts.reportDir, p.Header(), rec)
		if err != nil {
			return err
		}
		for _, path := range paths {
			logger.V(obs.DEBUG).Info("report written", "path", path)
		}
	}

	if opts.jsonOut != "" {
		return writeJSON(opts.jsonOut, stdout, recs)
	}
	return nil
}

func printSummary(w io.Writer, s domain.RunSummary) {
	fmt.Fprintf(w, "run %s seed %d (%s, %s): %d loads, %d delivered, %d failed, %d pending, %d rounds, %d breakdowns\n",
		s.RunID, s.Seed, s.Scenario, s.Strategy, s.Loads, s.Delivered, s.Failed, s.Pending, s.Rounds, s.Breakdowns)
}

func writeJSON(path string, stdout io.Writer, recs []domain.RunRecords) (err error) {
	if path == "-" {
		return report.WriteJSON(stdout, recs)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	return report.WriteJSON(f, recs)
}

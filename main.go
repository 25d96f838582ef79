package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/danielhkuo/quickly-vote/audit"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/ledger"
	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/router"
	"github.com/danielhkuo/quickly-vote/store"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

const (
	programName = "quickly-vote"

	shutdownTimeout = 10 * time.Second
	auditWorkers    = 4
)

// errFindings makes the audit command exit 2 instead of 1
var errFindings = errors.New("integrity findings reported")

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Quickly Vote election server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(auditCommand())
	rootCmd.AddCommand(migrateCommand())

	if err := rootCmd.Execute(); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			// usage already printed by the flag set
		case errors.Is(err, errFindings):
			os.Exit(2)
		default:
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}
}

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), "component", programName)
}

// commonRun configures logging and GOMAXPROCS for every subcommand.
func commonRun(debug bool, out io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		AddSource: debug,
		Level:     logLevel,
	}))
	slog.SetDefault(logger)

	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		logger.Error("failed to set GOMAXPROCS", "error", err)
	}
	return logger
}

// parseArgs hands the raw arguments to cliparse so that every subcommand
// accepts the same configuration flags.
func parseArgs(args []string, extra ...func(*flag.FlagSet)) (cliparse.Config, bool, error) {
	var debug bool
	extra = append(extra, func(flags *flag.FlagSet) {
		flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	})

	cfg, err := cliparse.ParseFlags(args, extra...)
	return cfg, debug, err
}

// openDatabase connects and creates the schema if it is missing.
func openDatabase(ctx context.Context, cfg cliparse.Config) (*sql.DB, db.Dialect, error) {
	dialect, err := db.ParseDialect(cfg.DatabaseType)
	if err != nil {
		return nil, "", err
	}

	conn, err := db.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, "", err
	}

	if err := db.CreateSchema(conn, dialect); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("schema creation failed: %w", err)
	}
	return conn, dialect, nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "serve [flags]",
		Short:              "Run the HTTP API",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, debug, err := parseArgs(args)
			if err != nil {
				return err
			}
			return serveRun(cmd.Context(), cfg, commonRun(debug, os.Stdout))
		},
	}
}

func serveRun(ctx context.Context, cfg cliparse.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Error("database setup failed", "error", err)
		return err
	}
	defer conn.Close()
	logger.Info("database schema ready", "dialect", string(dialect))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New()
	m.Register(registry)

	svc, err := router.Wire(conn, dialect, cfg, m, logger)
	if err != nil {
		logger.Error("service wiring failed", "error", err)
		return err
	}
	svc.Gatherer = registry

	server := &http.Server{
		Handler:           middleware.CORS(router.NewRouter(svc, cfg)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port, "metrics", cfg.MetricsEnabled)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("server closed")
	return nil
}

// electionIDs collects repeated --election flags
type electionIDs []int64

func (e *electionIDs) String() string {
	parts := make([]string, len(*e))
	for i, id := range *e {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (e *electionIDs) Set(value string) error {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid election id %q", value)
	}
	*e = append(*e, id)
	return nil
}

func auditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit [--election ID]... [flags]",
		Short: "Check ballot logs against candidate counters",
		Long: "Runs the integrity check for the given elections, or every election when\n" +
			"none is named. Exits 2 when any election reports findings.",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids electionIDs
			cfg, debug, err := parseArgs(args, func(flags *flag.FlagSet) {
				flags.Var(&ids, "election", "Election ID to audit (repeatable)")
			})
			if err != nil {
				return err
			}
			logger := commonRun(debug, os.Stderr)
			return auditRun(cmd.Context(), cfg, ids, cmd.OutOrStdout(), logger)
		},
	}
}

func auditRun(ctx context.Context, cfg cliparse.Config, ids []int64, out io.Writer, logger *slog.Logger) error {
	conn, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.Error("database setup failed", "error", err)
		return err
	}
	defer conn.Close()

	s := store.New(conn, dialect, logger)
	auditor := audit.New(s, ledger.New(conn, dialect, logger), audit.WithLogger(logger))

	if len(ids) == 0 {
		elections, err := s.ListElections(ctx)
		if err != nil {
			return err
		}
		for _, e := range elections {
			ids = append(ids, e.ID)
		}
	}

	var mu sync.Mutex
	reports := make([]models.IntegrityReport, 0, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(auditWorkers)
	for _, id := range ids {
		g.Go(func() error {
			report, err := auditor.Verify(gctx, id)
			if err != nil {
				return fmt.Errorf("election %d: %w", id, err)
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("audit failed", "error", err)
		return err
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ElectionID < reports[j].ElectionID
	})

	findings := 0
	for _, r := range reports {
		printReport(out, r)
		if !r.Clean() {
			findings++
		}
	}
	fmt.Fprintf(out, "%s %s checked, %s with findings\n",
		humanize.Comma(int64(len(reports))), plural(len(reports), "election"),
		humanize.Comma(int64(findings)))

	if findings > 0 {
		return errFindings
	}
	return nil
}

func printReport(out io.Writer, r models.IntegrityReport) {
	status := "clean"
	if !r.Clean() {
		status = "FINDINGS"
	}
	fmt.Fprintf(out, "election %d: %s %s, %s (checked %s)\n",
		r.ElectionID,
		humanize.Comma(r.BallotCount), plural(int(r.BallotCount), "ballot"),
		status, humanize.Time(r.CheckedAt))

	if n := len(r.Duplicates); n > 0 {
		fmt.Fprintf(out, "  %s duplicate voter %s\n", humanize.Comma(int64(n)), plural(n, "key"))
	}
	for _, m := range r.CountMismatches {
		fmt.Fprintf(out, "  candidate %d: stored %s, ballots %s\n",
			m.CandidateID, humanize.Comma(m.Stored), humanize.Comma(m.Actual))
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate [flags]",
		Short:              "Create the database schema and exit",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, debug, err := parseArgs(args)
			if err != nil {
				return err
			}
			logger := commonRun(debug, os.Stdout)

			conn, dialect, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				logger.Error("migration failed", "error", err)
				return err
			}
			defer conn.Close()

			logger.Info("database schema ready", "dialect", string(dialect))
			return nil
		},
	}
}

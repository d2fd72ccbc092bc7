package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cognicore/moodlens/internal/logging"
	"github.com/cognicore/moodlens/pkg/moodlens"
	"github.com/cognicore/moodlens/pkg/moodlens/config"
	"github.com/cognicore/moodlens/pkg/moodlens/journal"
	"github.com/cognicore/moodlens/pkg/moodlens/journal/memstore"
	"github.com/cognicore/moodlens/pkg/moodlens/journal/sqlite"
	"github.com/cognicore/moodlens/pkg/moodlens/journal/valkeystore"
	"github.com/cognicore/moodlens/pkg/moodlens/metrics"
	"github.com/cognicore/moodlens/pkg/moodlens/retry"
)

const usage = `Usage: moodlens [flags] [command] [args]

Commands:
  analyze <text>             analyse text once and print the result as JSON
  add [-mood N] [-tags a,b] <text>
                             analyse text and save it as a journal entry
  list                       show journal entries, newest first
  trend                      show the tone trend, oldest first
  delete <id>                remove a journal entry

Without a command, every line read from stdin is added as an entry.

Flags:
`

type options struct {
	configPath  string
	envFile     string
	dbPath      string
	initTimeout time.Duration
	metricsAddr string
	command     string
	args        []string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("moodlens", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	fs.StringVar(&opts.envFile, "env", ".env", "dotenv file (ignored when missing)")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite journal path (selects the sqlite driver)")
	fs.DurationVar(&opts.initTimeout, "init-timeout", 10*time.Second, "How long to wait for the model to load")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address in interactive mode")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.initTimeout <= 0 {
		return options{}, fmt.Errorf("-init-timeout must be positive")
	}
	if rest := fs.Args(); len(rest) > 0 {
		opts.command = rest[0]
		opts.args = rest[1:]
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}
	if opts.dbPath != "" {
		cfg.JournalDriver = config.DriverSQLite
		cfg.SQLitePath = opts.dbPath
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat, stderr)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	analyzer, err := buildAnalyzer(ctx, cfg, opts.initTimeout, analyzes(opts.command), logger, m)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	if opts.command == "analyze" {
		return runAnalyze(ctx, analyzer, opts.args, stdout)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	j, err := journal.Open(ctx, journal.Options{Store: store, Analyzer: analyzer, Logger: logger})
	if err != nil {
		store.Close()
		return err
	}
	defer j.Close()

	switch opts.command {
	case "add":
		return runAdd(ctx, j, opts.args, stdout, stderr)
	case "list":
		return runList(j, stdout)
	case "trend":
		return runTrend(j, stdout)
	case "delete":
		if len(opts.args) != 1 {
			return fmt.Errorf("delete needs exactly one entry id")
		}
		if err := j.Delete(ctx, opts.args[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %s\n", opts.args[0])
		return nil
	case "":
		if opts.metricsAddr != "" {
			srv := serveMetrics(opts.metricsAddr, reg, logger)
			defer srv.Close()
		}
		return runInteractive(ctx, j, stdin, stdout)
	default:
		return fmt.Errorf("unknown command %q", opts.command)
	}
}

// analyzes reports whether command scores text and so needs the model.
func analyzes(command string) bool {
	switch command {
	case "analyze", "add", "":
		return true
	default:
		return false
	}
}

func buildAnalyzer(ctx context.Context, cfg config.Config, initTimeout time.Duration, initialize bool, logger *slog.Logger, m *metrics.Metrics) (*moodlens.Analyzer, error) {
	loader := config.Loader{Config: cfg, Logger: logger, Metrics: m}
	components, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	analyzer, err := components.Analyzer(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	if !initialize {
		return analyzer, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := analyzer.Initialize(initCtx); err != nil {
		logger.Warn("Sentiment model not loaded, tone scores will be random",
			slog.String("error", err.Error()))
	}
	return analyzer, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (journal.Store, error) {
	switch cfg.JournalDriver {
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.JournalKey)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return st, nil
	case config.DriverValkey:
		policy := retry.DefaultPolicy()
		policy.MaxAttempts = cfg.FetchAttempts
		return valkeystore.Dial(ctx, cfg.ValkeyAddr, cfg.ValkeyPassword, valkeystore.Options{
			Key:    cfg.JournalKey,
			Policy: policy,
			Logger: logger,
		})
	default:
		return memstore.New(), nil
	}
}

func runAnalyze(ctx context.Context, analyzer *moodlens.Analyzer, args []string, stdout io.Writer) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("analyze needs some text")
	}
	res, err := analyzer.Analyze(ctx, text, nil)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

func runAdd(ctx context.Context, j *journal.Journal, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mood := fs.Int("mood", journal.DefaultMood, "Mood from 1 (very low) to 5 (very good)")
	tags := fs.String("tags", "", "Comma separated mood tags: "+strings.Join(journal.MoodTags, ","))
	if err := fs.Parse(args); err != nil {
		return err
	}

	entry, err := j.Submit(ctx, journal.Draft{
		Content: strings.Join(fs.Args(), " "),
		Mood:    *mood,
		Tags:    splitTags(*tags),
	})
	if err != nil {
		return err
	}
	printEntry(stdout, entry, time.Now())
	return nil
}

func runInteractive(ctx context.Context, j *journal.Journal, stdin io.Reader, stdout io.Writer) error {
	fmt.Fprintln(stdout, "How are you feeling? One entry per line (Ctrl+D to exit):")

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := j.Submit(ctx, journal.Draft{Content: line})
		if err != nil {
			fmt.Fprintln(stdout, "Error:", err)
			continue
		}
		printEntry(stdout, entry, time.Now())
	}
	fmt.Fprintln(stdout)
	return scanner.Err()
}

func runList(j *journal.Journal, stdout io.Writer) error {
	entries := j.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No entries yet.")
		return nil
	}
	now := time.Now()
	for _, e := range entries {
		printEntry(stdout, e, now)
	}
	fmt.Fprintf(stdout, "%s entries\n", humanize.Comma(int64(len(entries))))
	return nil
}

func runTrend(j *journal.Journal, stdout io.Writer) error {
	points := j.Trend()
	if len(points) == 0 {
		fmt.Fprintln(stdout, "No entries yet.")
		return nil
	}
	for _, p := range points {
		label := p.Date
		if t, err := time.Parse(time.RFC3339, p.Date); err == nil {
			label = t.Local().Format("01-02 15:04")
		}
		fmt.Fprintf(stdout, "%s %+.2f %s\n", label, p.Score, bar(p.Score))
	}
	return nil
}

func printEntry(w io.Writer, e journal.Entry, now time.Time) {
	source := string(e.Analysis.Outcome)
	if e.Analysis.Reason != "" {
		source += ": " + string(e.Analysis.Reason)
	}
	fmt.Fprintf(w, "\n[%s] %s · mood %d · tone %+.2f (%s)\n",
		e.ID, humanize.RelTime(e.Date, now, "ago", "from now"), e.Mood, e.Analysis.ToneScore, source)
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "  tags: %s\n", strings.Join(e.Tags, ", "))
	}
	fmt.Fprintf(w, "  %s\n", e.Content)
	if len(e.Analysis.Keywords) > 0 {
		fmt.Fprintf(w, "  keywords: %s\n", strings.Join(e.Analysis.Keywords, ", "))
	}
	for _, s := range e.Analysis.Suggestions {
		fmt.Fprintln(w, "  •", s)
	}
}

// bar draws a score in [-1,1] as a ten-cell bar either side of zero.
func bar(score float64) string {
	n := int(score*10 + 0.5*sign(score))
	switch {
	case n > 0:
		return strings.Repeat(" ", 10) + "|" + strings.Repeat("+", min(n, 10))
	case n < 0:
		return strings.Repeat(" ", 10-min(-n, 10)) + strings.Repeat("-", min(-n, 10)) + "|"
	default:
		return strings.Repeat(" ", 10) + "|"
	}
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	logger.Info("Serving metrics", slog.String("addr", addr))
	return srv
}

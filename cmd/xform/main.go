// Command xform runs pipeline scripts against CSV, SQLite and stored query
// tables, or serves them over HTTP.
//
//	xform --data-dir ./data report.xql
//	echo "read WebRequest; count" | xform -
//	xform --serve --config config.yml
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/xform/bootstrap"
	"github.com/kbukum/xform/config"
	apperrors "github.com/kbukum/xform/errors"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/observability"
	"github.com/kbukum/xform/server"
	"github.com/kbukum/xform/version"
	"github.com/kbukum/xform/xform"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type flags struct {
	configFile  string
	envFile     string
	script      string
	dataDir     string
	sqlite      string
	format      string
	limit       int
	quiet       bool
	serve       bool
	showVersion bool
	args        []string
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fs := pflag.NewFlagSet("xform", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.configFile, "config", "c", "", "config file (default: ./config.yml when present)")
	fs.StringVar(&f.envFile, "env", "", ".env file (default: ./.env when present)")
	fs.StringVarP(&f.script, "script", "e", "", "inline script to run instead of a file")
	fs.StringVarP(&f.dataDir, "data-dir", "d", "", "directory holding the Table and Query folders")
	fs.StringVar(&f.sqlite, "sqlite", "", "SQLite database to expose as tables")
	fs.StringVarP(&f.format, "format", "f", formatTable, "output format: table, csv or json")
	fs.IntVarP(&f.limit, "limit", "n", 100, "maximum rows to print; 0 prints all")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "run the script without printing its rows")
	fs.BoolVar(&f.serve, "serve", false, "serve the HTTP API")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: xform [flags] [script-file | -]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.args = fs.Args()
	if f.limit < 0 {
		return nil, fmt.Errorf("--limit must not be negative")
	}
	if !validFormat(f.format) {
		return nil, fmt.Errorf("--format must be one of table, csv or json")
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err == pflag.ErrHelp {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if f.showVersion {
		fmt.Fprintln(stdout, "xform", version.Get().String())
		return exitOK
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	var opts []bootstrap.Option
	if f.serve {
		opts = append(opts, bootstrap.WithSummary(stderr))
	}
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	engine, metrics, err := newEngine(app)
	if err != nil {
		app.Logger.Error("engine setup failed", logger.ErrorFields("setup", err))
		_ = app.Shutdown()
		return exitError
	}

	if f.serve {
		return exitCode(serve(ctx, app, engine, metrics), stderr)
	}

	script, err := readScript(f, stdin)
	if err != nil {
		_ = app.Shutdown()
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	err = app.RunTask(ctx, func(ctx context.Context) error {
		return execute(ctx, engine, script, f, stdout)
	})
	return exitCode(err, stderr)
}

func loadConfig(f *flags) (*config.Config, error) {
	cfg := &config.Config{}
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	if err := config.LoadConfig("xform", cfg, opts...); err != nil {
		return nil, err
	}
	if f.dataDir != "" {
		cfg.Engine.DataDir = f.dataDir
	}
	if f.sqlite != "" {
		cfg.Engine.SQLitePath = f.sqlite
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().String()
	}
	if !f.serve && cfg.Logging.Level == "" && !cfg.Debug {
		cfg.Logging.Level = "warn"
	}
	return cfg, nil
}

// newEngine builds the engine and, when tracing is enabled, the OTLP
// providers. Shutdown is registered as stop hooks.
func newEngine(app *bootstrap.App[*config.Config]) (*xform.Engine, *observability.EngineMetrics, error) {
	cfg := app.Cfg
	var metrics *observability.EngineMetrics
	if cfg.Tracing.Enabled {
		if err := initTelemetry(app); err != nil {
			return nil, nil, err
		}
		m, err := observability.NewEngineMetrics(observability.Meter("xform"))
		if err != nil {
			return nil, nil, err
		}
		metrics = m
	}

	engine, err := xform.New(cfg.Engine,
		xform.WithLogger(logger.Get(logger.ComponentEngine)),
		xform.WithMetrics(metrics),
	)
	if err != nil {
		return nil, nil, err
	}
	app.OnStop(func(context.Context) error { return engine.Close() })
	for _, name := range engine.Tables() {
		app.Summary.Add("table", name, "")
	}
	return engine, metrics, nil
}

func initTelemetry(app *bootstrap.App[*config.Config]) error {
	cfg := app.Cfg
	ctx := context.Background()

	tc := observability.DefaultTracerConfig(cfg.Name)
	tc.ServiceVersion = cfg.Version
	tc.Environment = cfg.Environment
	tc.Endpoint = cfg.Tracing.Endpoint
	tc.Insecure = cfg.Tracing.Insecure
	tc.SampleRate = cfg.Tracing.SampleRate
	tp, err := observability.InitTracer(ctx, tc)
	if err != nil {
		return err
	}
	app.OnStop(tp.Shutdown)

	mc := observability.DefaultMeterConfig(cfg.Name)
	mc.ServiceVersion = cfg.Version
	mc.Environment = cfg.Environment
	mc.Endpoint = cfg.Tracing.Endpoint
	mc.Insecure = cfg.Tracing.Insecure
	mc.Interval = cfg.Tracing.Interval
	mp, err := observability.InitMeter(ctx, mc)
	if err != nil {
		return err
	}
	app.OnStop(mp.Shutdown)
	app.Summary.Add("telemetry", cfg.Tracing.Endpoint, "otlp http")
	return nil
}

func serve(ctx context.Context, app *bootstrap.App[*config.Config], engine *xform.Engine, metrics *observability.EngineMetrics) error {
	cfg := app.Cfg
	srv := server.New(cfg.Server, engine,
		server.WithLogger(logger.Get(logger.ComponentServer)),
		server.WithService(cfg.Name),
		server.WithRowLimit(cfg.Engine.RowLimit),
		server.WithMetrics(metrics),
	)
	app.OnStart(srv.Start)
	app.OnStop(srv.Stop)
	scheme := "http"
	if cfg.Server.TLS.IsEnabled() {
		scheme = "https"
	}
	app.Summary.Add("server", cfg.Server.Addr, scheme)
	for _, route := range srv.Routes() {
		app.Summary.Add("route", route, "")
	}
	return app.Run(ctx)
}

func execute(ctx context.Context, engine *xform.Engine, script string, f *flags, stdout io.Writer) error {
	if f.quiet {
		_, err := engine.RunScript(ctx, script)
		return err
	}
	result, err := engine.Execute(ctx, script, f.limit)
	if err != nil {
		return err
	}
	return render(stdout, result, f.format)
}

func readScript(f *flags, stdin io.Reader) (string, error) {
	switch {
	case f.script != "" && len(f.args) > 0:
		return "", fmt.Errorf("pass either --script or a script file, not both")
	case f.script != "":
		return f.script, nil
	case len(f.args) == 0:
		return "", fmt.Errorf("no script given; pass a file, '-' for stdin or --script")
	case len(f.args) > 1:
		return "", fmt.Errorf("expected one script file, got %d", len(f.args))
	}
	var (
		b   []byte
		err error
	)
	if f.args[0] == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(f.args[0])
	}
	if err != nil {
		return "", apperrors.IO("read", f.args[0], err)
	}
	return string(b), nil
}

// exitCode prints err and maps it to the process exit code. Script usage
// errors print their diagnostic as is.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	if usage, ok := apperrors.AsUsageError(err); ok {
		fmt.Fprint(stderr, usage.Error())
		return exitUsage
	}
	fmt.Fprintln(stderr, err)
	return exitError
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"orlint/internal/analyzer"
	"orlint/internal/config"
	"orlint/internal/diag"
	"orlint/internal/driver"
	"orlint/internal/logx"
	"orlint/internal/observ"
	"orlint/internal/prof"
	"orlint/internal/project"
	"orlint/internal/rules"
	"orlint/internal/version"
)

const envPrefix = "ORLINT"

// app is the per-invocation state built by setup from flags and ORLINT_*
// environment variables.
type app struct {
	v        *viper.Viper
	logger   *log.Logger
	reg      *rules.Registry
	metrics  *observ.Metrics
	prof     *prof.Session
	tracing  func(context.Context) error
	color    bool
	progress bool
}

var active *app

// setup binds every flag of cmd to viper so that ORLINT_MAX_DIAGNOSTICS and
// friends override defaults; an explicitly set flag still wins.
func setup(cmd *cobra.Command, _ []string) error {
	v, err := bindFlags(cmd.Flags())
	if err != nil {
		return err
	}

	a := &app{v: v}
	if _, err := logx.ParseLevel(v.GetString("log-level")); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := logx.New(cmd.ErrOrStderr(), logx.Options{Level: v.GetString("log-level"), Prefix: "orlint"})
	a.logger = logger

	useColor, err := colorEnabled(v.GetString("color"))
	if err != nil {
		return err
	}
	a.color = useColor
	color.NoColor = !useColor

	progress, err := readUIMode(v.GetString("progress"))
	if err != nil {
		return err
	}
	a.progress = shouldUseTUI(progress) && !v.GetBool("quiet")

	reg, err := rules.Default()
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	a.reg = reg

	if v.GetString("metrics") != "" {
		a.metrics = observ.NewMetrics()
	}
	if v.GetBool("trace-spans") {
		a.tracing = observ.SetupTracing(logger)
	}

	session, err := prof.Start(prof.Options{
		CPU:   v.GetString("cpuprofile"),
		Mem:   v.GetString("memprofile"),
		Trace: v.GetString("runtime-trace"),
	})
	if err != nil {
		return err
	}
	a.prof = session
	active = a
	return nil
}

// bindFlags returns a viper instance reading every flag of fs, with
// ORLINT_<FLAG_NAME> as the fallback for flags left unset.
func bindFlags(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		err = multierr.Append(err, v.BindPFlag(f.Name, f))
	})
	if err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

// teardown flushes what setup started. It is safe without a prior setup.
func teardown() error {
	a := active
	active = nil
	if a == nil {
		return nil
	}
	var err error
	if path := a.v.GetString("metrics"); path != "" {
		err = multierr.Append(err, a.metrics.WriteTextfile(path))
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = multierr.Append(err, a.tracing(ctx))
		cancel()
	}
	return multierr.Append(err, a.prof.Stop())
}

func colorEnabled(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "", nil
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
}

// overrides turns --severity and --disable into the highest-precedence
// config layer.
func (a *app) overrides() (*config.File, error) {
	f := &config.File{}
	f.Rules.Disabled = append(f.Rules.Disabled, a.v.GetStringSlice("disable")...)
	for _, item := range a.v.GetStringSlice("severity") {
		id, level, ok := strings.Cut(item, "=")
		id, level = strings.TrimSpace(id), strings.TrimSpace(level)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --severity %q (expected rule=level)", item)
		}
		if strings.EqualFold(level, "off") {
			f.Rules.Disabled = append(f.Rules.Disabled, id)
			continue
		}
		sev, err := diag.ParseSeverity(level)
		if err != nil {
			return nil, fmt.Errorf("invalid --severity %q: %w", item, err)
		}
		f.Rules.Enabled = append(f.Rules.Enabled, id)
		switch sev {
		case diag.SevError:
			f.Rules.Error = append(f.Rules.Error, id)
		case diag.SevWarning:
			f.Rules.Warning = append(f.Rules.Warning, id)
		case diag.SevInfo:
			f.Rules.Info = append(f.Rules.Info, id)
		default:
			f.Rules.Hint = append(f.Rules.Hint, id)
		}
	}
	return f, nil
}

// resolver builds the config resolver bounded by --root, or by the project
// root found above the working directory.
func (a *app) resolver() (*config.Resolver, error) {
	overrides, err := a.overrides()
	if err != nil {
		return nil, err
	}
	root := a.v.GetString("root")
	if root == "" {
		if found, ok, err := project.FindProjectRoot("."); err == nil && ok {
			root = found
		}
	}
	return config.NewResolver(config.Defaults(a.reg), config.ResolverOptions{
		Root:      root,
		Overrides: overrides,
		Logger:    a.logger,
	}), nil
}

func (a *app) analyzerOptions(only []string) (analyzer.Options, error) {
	opts := analyzer.Options{
		Metrics: a.metrics,
		Tracer:  observ.Tracer(),
		Logger:  a.logger,
	}
	for _, name := range a.v.GetStringSlice("exclude-category") {
		cat, err := rules.ParseCategory(name)
		if err != nil {
			return opts, err
		}
		opts.ExcludeCategories = append(opts.ExcludeCategories, cat)
	}
	for _, id := range only {
		code := diag.Code(id)
		if !a.reg.Has(code) {
			return opts, fmt.Errorf("unknown rule %q", id)
		}
		opts.Only = append(opts.Only, code)
	}
	return opts, nil
}

func (a *app) driverOptions(aopts analyzer.Options) (driver.Options, error) {
	opts := driver.Options{
		Jobs:      a.v.GetInt("jobs"),
		Analyzer:  aopts,
		CacheSalt: version.Version,
		Logger:    a.logger,
	}
	if a.v.GetBool("cache") {
		var (
			cache *driver.DiskCache
			err   error
		)
		if dir := a.v.GetString("cache-dir"); dir != "" {
			cache, err = driver.NewDiskCache(dir)
		} else {
			cache, err = driver.OpenDiskCache("orlint")
		}
		if err != nil {
			// без кэша анализ всё равно работает
			a.logger.Warn("disk cache disabled", "err", err)
		} else {
			opts.Cache = cache
		}
	}
	if wd, err := os.Getwd(); err == nil {
		opts.BaseDir = wd
	}
	return opts, nil
}

// notice writes a status line to w unless --quiet is set.
func (a *app) notice(w io.Writer, format string, args ...any) {
	if a.v.GetBool("quiet") {
		return
	}
	fmt.Fprintf(w, format, args...)
}

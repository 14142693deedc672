// Package cmd is the adfilter CLI entry point.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/fcchbjm/adfilter/filter"
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/internal/dnsmsg"
	"github.com/fcchbjm/adfilter/internal/dnssvc"
	"github.com/fcchbjm/adfilter/internal/handler"
	dnsnetutil "github.com/fcchbjm/adfilter/internal/netutil"
	"github.com/fcchbjm/adfilter/internal/ratelimit"
	"github.com/fcchbjm/adfilter/internal/version"
)

// Main is the entrypoint of adfilter CLI.
func Main() {
	conf, exitCode, err := parseConfig(os.Args[0], os.Args[1:], os.Stdout)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, fmt.Errorf("parsing options: %w", err))
	}

	if conf == nil {
		os.Exit(exitCode)
	}

	logOutput := os.Stdout
	if conf.LogOutput != "" {
		// #nosec G302 -- Trust the file path that is given in the
		// configuration.
		logOutput, err = os.OpenFile(conf.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, fmt.Errorf("cannot create a log file: %s", err))

			os.Exit(osutil.ExitCodeArgumentError)
		}
	}

	lvl := slog.LevelInfo
	if conf.Verbose {
		lvl = slog.LevelDebug
	}

	l := slogutil.New(&slogutil.Config{
		Output:       logOutput,
		Format:       slogutil.FormatDefault,
		Level:        lvl,
		AddTimestamp: true,
	})

	ctx := context.Background()

	exitCode = osutil.ExitCodeSuccess
	if conf.CheckFilters {
		exitCode = runCheck(ctx, l, conf)
	} else if err = run(ctx, l, conf); err != nil {
		l.ErrorContext(ctx, "running adfilter", slogutil.KeyError, err)
		exitCode = osutil.ExitCodeFailure
	}

	// As defers are skipped in case of os.Exit, close logOutput manually.
	if logOutput != os.Stdout {
		_ = logOutput.Close()
	}

	os.Exit(exitCode)
}

// runCheck reports the invalid rules of the filter lists to stdout and returns
// the exit code.  l must not be nil.
func runCheck(ctx context.Context, l *slog.Logger, conf *configuration) (exitCode int) {
	n, err := checkFilters(ctx, l, conf, os.Stdout)
	if err != nil {
		l.ErrorContext(ctx, "checking filters", slogutil.KeyError, err)

		return osutil.ExitCodeFailure
	} else if n > 0 {
		l.WarnContext(ctx, "found invalid rules", "count", n)

		return osutil.ExitCodeFailure
	}

	l.InfoContext(ctx, "all rules are valid")

	return osutil.ExitCodeSuccess
}

// run starts the DNS service and runs it until the program receives SIGINT or
// SIGTERM.  SIGHUP reloads the filter lists.  l must not be nil.
func run(ctx context.Context, l *slog.Logger, conf *configuration) (err error) {
	l.InfoContext(
		ctx,
		"adfilter starting",
		"version", version.Version(),
		"revision", version.Revision(),
		"branch", version.Branch(),
		"commit_time", version.CommitTime(),
	)

	strg, err := newStorage(ctx, l.With(slogutil.KeyPrefix, "filterlist"), conf)
	if err != nil {
		return fmt.Errorf("loading filters: %w", err)
	}

	r := &reloader{
		logger:  l.With(slogutil.KeyPrefix, "reloader"),
		conf:    conf,
		current: strg,
	}
	defer func() { err = errors.WithDeferred(err, r.close()) }()

	engine, err := filter.NewDNSEngine(ctx, &filter.DNSEngineConfig{
		Logger:  l.With(slogutil.KeyPrefix, "dns_engine"),
		Storage: strg,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	r.engine = engine
	l.InfoContext(ctx, "filters loaded", "rules", engine.RulesCount())

	hosts, err := readHosts(ctx, l, conf)
	if err != nil {
		return err
	}

	if hosts != nil {
		defer func() { err = errors.WithDeferred(err, hosts.Close()) }()
	}

	svc := newService(l, conf, engine, hosts)

	err = svc.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signalChannel {
		if sig != syscall.SIGHUP {
			l.InfoContext(ctx, "received signal", "signal", sig)

			break
		}

		r.reload(ctx)
	}

	err = svc.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("stopping service: %w", err)
	}

	return nil
}

// newService creates the DNS service filtering the requests with engine and
// resolving them from hosts, which may be nil.  conf must be valid.
func newService(
	l *slog.Logger,
	conf *configuration,
	engine *filter.DNSEngine,
	hosts *handler.Hosts,
) (svc *dnssvc.Service) {
	msgs := dnsmsg.DefaultMessageConstructor{}
	h := handler.NewFilter(&handler.FilterConfig{
		Logger:       l.With(slogutil.KeyPrefix, "filter_handler"),
		Messages:     msgs,
		Engine:       engine,
		Hosts:        hosts,
		BlockingMode: conf.BlockingMode,
		HaltIPv6:     conf.IPv6Disabled,
	})

	allowlist, _ := parseAddrs(conf.RatelimitAllowlist)
	limiter := ratelimit.New(&ratelimit.Config{
		Logger:         l.With(slogutil.KeyPrefix, "ratelimit"),
		AllowlistAddrs: allowlist,
		Ratelimit:      conf.Ratelimit,
		SubnetLenIPv4:  conf.RatelimitSubnetLenIPv4,
		SubnetLenIPv6:  conf.RatelimitSubnetLenIPv6,
	})

	var cacheSize uint
	if conf.Cache {
		cacheSize = uint(conf.CacheSizeBytes.Bytes())
	}

	ups, _ := parseUpstream(conf.Upstream)

	return dnssvc.New(&dnssvc.Config{
		Logger:      l.With(slogutil.KeyPrefix, "dnssvc"),
		Handler:     h,
		Messages:    msgs,
		Limiter:     limiter,
		Upstream:    ups,
		ListenAddrs: conf.listenAddrs(),
		Timeout:     time.Duration(conf.Timeout),
		CacheSize:   cacheSize,
	})
}

// readHosts returns the resolver of the hosts files of conf or nil if they're
// disabled.  The files that can't be read are skipped.
func readHosts(
	ctx context.Context,
	l *slog.Logger,
	conf *configuration,
) (hosts *handler.Hosts, err error) {
	if !conf.HostsFileEnabled {
		return nil, nil
	}

	paths := conf.HostsFiles
	if len(paths) == 0 {
		paths, err = dnsnetutil.DefaultHostsPaths()
		if err != nil {
			return nil, fmt.Errorf("getting default system hosts paths: %w", err)
		}
	}

	l.DebugContext(ctx, "reading hosts files", "paths", paths)

	hosts, err = handler.NewHosts(ctx, &handler.HostsConfig{
		Logger:  l.With(slogutil.KeyPrefix, "hosts"),
		Paths:   paths,
		MaxSize: conf.MaxListSize,
	})
	if hosts == nil {
		return nil, fmt.Errorf("reading hosts files: %w", err)
	} else if err != nil {
		l.WarnContext(ctx, "reading hosts files", slogutil.KeyError, err)
	}

	l.InfoContext(ctx, "hosts files loaded", "records", hosts.RulesCount())

	return hosts, nil
}

// reloader replaces the rules of the engine with the ones read from the filter
// lists again.
type reloader struct {
	logger *slog.Logger
	conf   *configuration
	engine *filter.DNSEngine

	// current is the storage used by the engine.
	current *filterlist.RuleStorage

	// previous is the storage replaced by the last reload.  It's closed by the
	// next one, since the requests started before the last reload may still
	// use it.
	previous *filterlist.RuleStorage
}

// reload reads the filter lists and replaces the rules of the engine.  The
// errors are logged and the engine keeps the current rules.
func (r *reloader) reload(ctx context.Context) {
	r.logger.InfoContext(ctx, "reloading filters")

	strg, err := newStorage(ctx, r.logger, r.conf)
	if err != nil {
		r.logger.ErrorContext(ctx, "loading filters", slogutil.KeyError, err)

		return
	}

	err = r.engine.Reload(ctx, strg)
	if err != nil {
		r.logger.ErrorContext(ctx, "reloading engine", slogutil.KeyError, err)
		if err = strg.Close(); err != nil {
			r.logger.DebugContext(ctx, "closing storage", slogutil.KeyError, err)
		}

		return
	}

	if r.previous != nil {
		if err = r.previous.Close(); err != nil {
			r.logger.DebugContext(ctx, "closing storage", slogutil.KeyError, err)
		}
	}

	r.previous, r.current = r.current, strg
	r.logger.InfoContext(ctx, "filters reloaded", "rules", r.engine.RulesCount())
}

// close closes the storages of r.
func (r *reloader) close() (err error) {
	var errs []error
	for _, s := range []*filterlist.RuleStorage{r.current, r.previous} {
		if s != nil {
			errs = append(errs, s.Close())
		}
	}

	return errors.Join(errs...)
}

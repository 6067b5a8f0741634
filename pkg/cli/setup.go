// Package cli implements the hdsview command-line commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/directory"
	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
	"github.com/DeBrosOfficial/hdsview/pkg/preferences"
	"github.com/DeBrosOfficial/hdsview/pkg/session"
)

// ConfigFileName is the CLI's config file inside the config directory.
const ConfigFileName = "hdsview.yaml"

// Options are the global flags shared by every command.
type Options struct {
	Format     string
	Timeout    time.Duration
	ConfigPath string

	// LogFile sends logs to a file instead of stderr.
	LogFile string

	Out    io.Writer
	ErrOut io.Writer
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o Options) errOut() io.Writer {
	if o.ErrOut == nil {
		return os.Stderr
	}
	return o.ErrOut
}

// runtime is the wiring shared by the commands.
type runtime struct {
	cfg     *config.Config
	logger  *logging.ColoredLogger
	metrics *metrics.Registry
	factory *directory.Factory
	prefs   *preferences.Store
}

// LoadConfig reads the config file, then applies HDS_* overrides and
// validates the result.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		p, err := config.DefaultPath(ConfigFileName)
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	errs := cfg.ApplyEnv()
	errs = append(errs, cfg.Validate()...)
	if len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	return cfg, nil
}

func newRuntime(opts Options) (*runtime, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		cfg.Directory.RequestTimeout = opts.Timeout
	}

	logger, err := newLogger(cfg.Logging, opts)
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	dopts, err := directory.OptionsFromConfig(cfg, reg)
	if err != nil {
		return nil, err
	}

	prefs, err := preferences.NewStore("")
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: reg,
		factory: directory.NewFactory(dopts, logger.Logger),
		prefs:   prefs,
	}, nil
}

func newLogger(lc config.LoggingConfig, opts Options) (*logging.ColoredLogger, error) {
	path := opts.LogFile
	if path == "" {
		path = lc.OutputFile
	}

	var sink zapcore.WriteSyncer = zapcore.AddSync(opts.errOut())
	colors := opts.ErrOut == nil
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		sink = zapcore.AddSync(f)
		colors = false
	}

	level := logging.ParseLevel(lc.Level)
	// Commands print their own results; keep routine logs out of the way.
	if opts.LogFile == "" && lc.OutputFile == "" && level < zapcore.WarnLevel {
		level = zapcore.WarnLevel
	}

	return logging.New(logging.Options{
		Level:  level,
		JSON:   lc.Format == "json",
		Colors: colors,
		Output: sink,
	}), nil
}

func (rt *runtime) newSession(opts ...session.Option) *session.Session {
	opts = append([]session.Option{
		session.WithLogger(rt.logger.Logger),
		session.WithMetrics(rt.metrics),
	}, opts...)
	return session.New(rt.factory.Dial, opts...)
}

// resolveHost picks the directory to talk to: the argument, then the
// configured default, then the saved preference.
func (rt *runtime) resolveHost(arg string) (string, error) {
	if h := strings.TrimSpace(arg); h != "" {
		return h, nil
	}
	if rt.cfg.Directory.DefaultHost != "" {
		return rt.cfg.Directory.DefaultHost, nil
	}
	if d, err := rt.prefs.Load(); err == nil {
		return d.Host, nil
	}
	return "", fmt.Errorf("no directory host given and no default saved (use --host or `hdsview default set <host>`)")
}

// connect resolves the host and returns a connected session.
func (rt *runtime) connect(ctx context.Context, host string) (*session.Session, error) {
	addr, err := rt.resolveHost(host)
	if err != nil {
		return nil, err
	}
	sess := rt.newSession()
	if err := sess.Connect(ctx, addr); err != nil {
		return nil, err
	}
	rt.logger.ComponentDebug(logging.ComponentGeneral, "connected", zap.String("address", addr))
	return sess, nil
}

func (rt *runtime) timeout() time.Duration {
	// Discovery issues one request per topic; give it room beyond one request.
	return rt.cfg.Directory.RequestTimeout * 4
}

func joinErrors(errs []error) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
}

func fail(opts Options, msg string, err error) {
	reportFailure(opts.errOut(), msg, err)
	os.Exit(1)
}

// reportFailure prints the error and, for transient failures, a retry hint.
func reportFailure(w io.Writer, msg string, err error) {
	fmt.Fprintf(w, "❌ %s: %v\n", msg, err)
	if errors.ShouldRetry(err) {
		category := errors.GetCategory(errors.GetErrorCode(err))
		fmt.Fprintf(w, "💡 This looks transient (%s). Try again, or raise --timeout if the directory is slow.\n", category)
	}
}

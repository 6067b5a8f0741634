package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/directory"
	"github.com/DeBrosOfficial/hdsview/pkg/discovery"
	"github.com/DeBrosOfficial/hdsview/pkg/inspector"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
	"github.com/DeBrosOfficial/hdsview/pkg/preferences"
	"github.com/DeBrosOfficial/hdsview/pkg/session"
)

func setupLogger(cfg *config.Config) *logging.ColoredLogger {
	return logging.New(logging.Options{
		Component: logging.ComponentGeneral,
		Level:     logging.ParseLevel(cfg.Logging.Level),
		JSON:      cfg.Logging.Format == "json",
		Colors:    cfg.Logging.Format != "json",
	})
}

func main() {
	cfg, err := parseInspectorConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	defer logger.Sync()
	logConfig(logger, cfg)

	reg := metrics.DefaultRegistry()
	opts, err := directory.OptionsFromConfig(cfg, reg)
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to configure directory transport", zap.Error(err))
		os.Exit(1)
	}
	factory := directory.NewFactory(opts, logger.Logger)

	sess := session.New(factory.Dial,
		session.WithLogger(logger.Logger),
		session.WithMetrics(reg),
	)
	disc := discovery.NewService(sess, discovery.Config{
		MaxConcurrentFetches: cfg.Topology.MaxConcurrentFetches,
	}, logger.Logger, reg)

	prefs, err := preferences.NewStore("")
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to open preferences", zap.Error(err))
		os.Exit(1)
	}

	srv, err := inspector.New(inspector.Deps{
		Config:      cfg.Inspector,
		Session:     sess,
		Discovery:   disc,
		Preferences: prefs,
		Metrics:     reg,
		Logger:      logger.Logger,
	})
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to initialize inspector", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if host := startupHost(logger, cfg, prefs); host != "" {
		go connectAtStartup(ctx, logger, sess, host)
	}

	if err := srv.Start(ctx); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "inspector stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.ComponentInfo(logging.ComponentGeneral, "Inspector shutdown complete")
}

// startupHost decodes the launch link once. Without one it falls back to
// the configured directory, then the saved default.
func startupHost(logger *logging.ColoredLogger, cfg *config.Config, prefs *preferences.Store) string {
	if cfg.Inspector.LaunchURL != "" {
		host, err := session.ParseLaunchFragment(cfg.Inspector.LaunchURL)
		if err != nil {
			logger.ComponentWarn(logging.ComponentGeneral, "ignoring launch link", zap.Error(err))
			return ""
		}
		return host
	}
	if cfg.Directory.DefaultHost != "" {
		return cfg.Directory.DefaultHost
	}
	if d, err := prefs.Load(); err == nil {
		return d.Host
	}
	return ""
}

// connectAtStartup connects the session. A failure only leaves
// the session in the failed state for the UI to show.
func connectAtStartup(ctx context.Context, logger *logging.ColoredLogger, sess *session.Session, host string) {
	if err := sess.Connect(ctx, host); err != nil {
		logger.ComponentWarn(logging.ComponentGeneral, "startup connect failed",
			zap.String("host", host), zap.Error(err))
		return
	}
	logger.ComponentInfo(logging.ComponentGeneral, "connected at startup", zap.String("host", host))
}
